package tx

import (
	"testing"

	"github.com/calehh/hac-gov/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalTypedBody(t *testing.T) {
	btx := &HACTx{
		Version:   HACTxVersion1,
		Type:      HACTxTypeVote,
		Nonce:     3,
		Validator: 65537,
		Tx:        &VoteTx{Proposal: 7, VoteType: types.VoteAgainst},
	}
	dat, err := MarshalHACTx(btx)
	require.NoError(t, err)

	got, err := UnmarshalHACTx(dat)
	require.NoError(t, err)
	assert.Equal(t, HACTxTypeVote, got.Type)
	assert.Equal(t, uint64(3), got.Nonce)
	vtx, ok := got.Tx.(*VoteTx)
	require.True(t, ok)
	assert.Equal(t, uint64(7), vtx.Proposal)
	assert.Equal(t, types.VoteAgainst, vtx.VoteType)
}

func TestUnmarshalProposalRef(t *testing.T) {
	for _, tp := range []HACTxType{HACTxTypeFinalizeProposal, HACTxTypeQueueProposal, HACTxTypeExecuteProposal, HACTxTypeCancelProposal} {
		dat, err := MarshalHACTx(&HACTx{Type: tp, Tx: &ProposalRefTx{Proposal: 9}})
		require.NoError(t, err)
		got, err := UnmarshalHACTx(dat)
		require.NoError(t, err)
		ref, ok := got.Tx.(*ProposalRefTx)
		require.True(t, ok, tp.String())
		assert.Equal(t, uint64(9), ref.Proposal)
	}
}

func TestUnmarshalUnsupported(t *testing.T) {
	_, err := UnmarshalHACTx([]byte(`{"type":200,"tx":{}}`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)

	_, err = UnmarshalHACTx([]byte(`not json`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)

	_, err = UnmarshalHACTx([]byte(`{"version":9,"type":2,"tx":{"amount":1}}`))
	require.ErrorIs(t, err, ErrUnsupportedTxVersion)
}

func TestSignRoundTrip(t *testing.T) {
	priv := ed25519.GenPrivKey()
	cfg := types.DefaultVotingConfig()
	btx := &HACTx{
		Version:   HACTxVersion1,
		Type:      HACTxTypeCreateProposal,
		Validator: 65536,
		Tx:        &CreateProposalTx{Description: "lower quorum", ConfigUpdate: cfg},
	}
	require.NoError(t, btx.Sign("hac-test", priv.Sign))
	require.Len(t, btx.Sig, 1)

	dat, err := MarshalHACTx(btx)
	require.NoError(t, err)
	got, err := UnmarshalHACTx(dat)
	require.NoError(t, err)

	msg, err := got.SigData([]byte("hac-test"))
	require.NoError(t, err)
	assert.True(t, priv.PubKey().VerifySignature(msg, got.Sig[0]))

	other, err := got.SigData([]byte("other-chain"))
	require.NoError(t, err)
	assert.False(t, priv.PubKey().VerifySignature(other, got.Sig[0]))

	ctx := got.Tx.(*CreateProposalTx)
	require.NotNil(t, ctx.ConfigUpdate)
	assert.Equal(t, int64(100), ctx.ConfigUpdate.ProposalThreshold.Int64())
}
