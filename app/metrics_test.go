package app

import (
	"context"
	"testing"
	"time"

	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsFollowFinalizedBlocks(t *testing.T) {
	app, s := newTestApp(t, 10)
	reg := prometheus.NewRegistry()
	app.EnableMetrics("test", reg)

	create := s[0].tx(t, tx.HACTxTypeCreateProposal, &tx.CreateProposalTx{Description: "metrics"})
	s[0].nonce++
	badVote := s[0].tx(t, tx.HACTxTypeVote, &tx.VoteTx{Proposal: 9, VoteType: types.VoteFor})
	runBlock(t, app, 1, genesisTime.Add(time.Second), create, badVote)

	assert.Equal(t, float64(1), testutil.ToFloat64(app.metrics.height))
	assert.Equal(t, float64(1), testutil.ToFloat64(app.metrics.txResults.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(app.metrics.txResults.WithLabelValues("2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(app.metrics.events.WithLabelValues(types.EventProposalCreatedType)))

	proc, err := app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{
		Height: 2,
		Time:   genesisTime.Add(2 * time.Second),
		Txs:    [][]byte{[]byte("garbage")},
	})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(app.metrics.rejected))

	n, err := testutil.GatherAndCount(reg, "test_hac_tx_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
