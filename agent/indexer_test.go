package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/calehh/hac-gov/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creator = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	voterA  = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	voterB  = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)

type fakeChain struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
}

func (f *fakeChain) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	return &coretypes.ResultStatus{SyncInfo: coretypes.SyncInfo{LatestBlockHeight: f.latest}}, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error) {
	if *height > f.latest {
		return nil, errors.New("height not available")
	}
	return &coretypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func (f *fakeChain) add(height int64, events ...abci.Event) {
	f.blocks[height] = append(f.blocks[height], &abci.ExecTxResult{Events: events})
	if height > f.latest {
		f.latest = height
	}
}

func newTestIndexer(t *testing.T, chain *fakeChain) (*ChainIndexer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexer.db")
	db, err := gorm.Open("sqlite3", path)
	require.NoError(t, err)
	c, err := NewChainIndexerWithDB(cmtlog.NewNopLogger(), db, chain)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func vote(id uint64, voter string, vt types.VoteType, w int64) abci.Event {
	return (&types.EventVoteCast{ProposalId: id, Voter: voter, VoteType: vt, Weight: big.NewInt(w)}).Encode()
}

func seededChain() *fakeChain {
	chain := &fakeChain{blocks: map[int64][]*abci.ExecTxResult{}}
	chain.add(1, types.EncodeEventLedger(&types.EventLedger{Type: types.EventDepositType, Account: 65536, Address: voterA, Amount: 10, Stake: 600}))
	chain.add(2, (&types.EventProposalCreated{ProposalId: 1, Creator: creator, Description: "first"}).Encode())
	chain.add(2, (&types.EventProposalCreated{ProposalId: 2, Creator: voterB, Description: "second"}).Encode())
	chain.add(3, vote(1, voterA, types.VoteFor, 600))
	chain.add(3, vote(1, voterB, types.VoteAgainst, 150))
	chain.blocks[3] = append(chain.blocks[3], &abci.ExecTxResult{Code: 5, Log: "already voted"})
	chain.add(4, (&types.EventProposalFinalized{
		ProposalId: 1, Caller: voterA, State: types.ProposalStateSucceeded,
		ForWeight: big.NewInt(600), AgainstWeight: big.NewInt(150), AbstainWeight: big.NewInt(0),
	}).Encode())
	chain.add(5, (&types.EventProposalQueued{ProposalId: 1, Caller: voterA, Eta: 900}).Encode())
	chain.add(5, (&types.EventProposalCancelled{ProposalId: 2, Caller: voterB}).Encode())
	return chain
}

func TestIndexerFollowsProposalLifecycle(t *testing.T) {
	c, _ := newTestIndexer(t, seededChain())
	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, int64(6), c.Height)

	p, err := c.getProposalById(1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint8(types.ProposalStateQueued), p.State)
	assert.Equal(t, "600", p.ForWeight)
	assert.Equal(t, "150", p.AgainstWeight)
	assert.Equal(t, uint64(2), p.VoteCount)
	assert.Equal(t, uint64(900), p.Eta)
	assert.Equal(t, uint64(4), p.FinalizedHeight)

	p, err = c.getProposalById(2)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.ProposalStateCancelled), p.State)
	assert.Equal(t, uint64(5), p.ClosedHeight)

	votes, total, err := c.getVotes(1, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, voterA, votes[0].VoterAddress)

	acc, err := c.getAccountByAddress(voterA)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, uint64(600), acc.Stake)
}

func TestIndexerResumesFromStoredHeight(t *testing.T) {
	chain := seededChain()
	c, path := newTestIndexer(t, chain)
	require.NoError(t, c.Sync(context.Background()))
	require.NoError(t, c.Close())

	db, err := gorm.Open("sqlite3", path)
	require.NoError(t, err)
	c2, err := NewChainIndexerWithDB(cmtlog.NewNopLogger(), db, chain)
	require.NoError(t, err)
	defer c2.Close()
	assert.Equal(t, int64(6), c2.Height)

	chain.add(6, vote(9, voterA, types.VoteFor, 1))
	err = c2.Sync(context.Background())
	require.ErrorIs(t, err, ErrUnknownProposal)
	assert.Equal(t, int64(6), c2.Height)

	_, total, err := c2.getVotes(0, voterA, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServiceEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := newTestIndexer(t, seededChain())
	require.NoError(t, c.Sync(context.Background()))
	h := NewService("127.0.0.1:0", c).Handler()

	w := post(t, h, "/getProposals", GetProposalsReq{})
	require.Equal(t, http.StatusOK, w.Code)
	var all GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, uint64(2), all.Total)
	require.Len(t, all.Proposals, 2)
	assert.Equal(t, uint64(2), all.Proposals[0].Proposal.Id)

	w = post(t, h, "/getProposals", GetProposalsReq{Creator: voterB})
	var mine GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, uint64(1), mine.Total)

	queued := uint8(types.ProposalStateQueued)
	w = post(t, h, "/getProposals", GetProposalsReq{State: &queued, WithVotes: true})
	var byState GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byState))
	require.Len(t, byState.Proposals, 1)
	assert.Len(t, byState.Proposals[0].Votes, 2)

	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: 42})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, h, "/getVotes", GetVotesReq{Voter: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"})
	require.Equal(t, http.StatusOK, w.Code)
	var votes GetVotesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &votes))
	assert.Equal(t, uint64(1), votes.Total)
	assert.Equal(t, uint8(types.VoteAgainst), votes.Votes[0].VoteType)

	w = post(t, h, "/getVotes", GetVotesReq{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, h, "/getAccount", GetAccountReq{Address: voterA})
	assert.Equal(t, http.StatusOK, w.Code)
	w = post(t, h, "/getAccount", GetAccountReq{Address: creator})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
