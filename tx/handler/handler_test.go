package handler

import (
	"context"
	"testing"

	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	priv ed25519.PrivKey
	addr string
	idx  uint64
}

type harness struct {
	t     *testing.T
	db    *state.StateDB
	st    *state.State
	hdlrs map[tx.HACTxType]TxHandler
	admin *account
	alice *account
}

func newHarness(t *testing.T) *harness {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	h := &harness{t: t, db: db, hdlrs: Handlers(cmtlog.NewNopLogger())}
	st := db.NewState()
	st.SetChainId("hac-test")
	stakes := []uint64{4000, 6000}
	accs := make([]*account, len(stakes))
	for i, stake := range stakes {
		priv := ed25519.GenPrivKey()
		a := &state.Account{Stake: stake}
		a.SetPubKey(priv.PubKey().Bytes())
		require.NoError(t, st.AddAccount(a))
		accs[i] = &account{priv: priv, addr: a.Address(), idx: a.Index}
	}
	h.admin, h.alice = accs[0], accs[1]
	st.SetAdmin(h.admin.addr)
	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
	h.st = db.NewState()
	h.st.SetBlock(h.st.Header().Height, 1000)
	return h
}

func (h *harness) nonce(a *account) uint64 {
	acnt, err := h.st.Signer(a.idx)
	require.NoError(h.t, err)
	return acnt.Nonce
}

func (h *harness) run(a *account, typ tx.HACTxType, body any) (*abcitypes.ExecTxResult, error) {
	btx := &tx.HACTx{Version: tx.HACTxVersion1, Type: typ, Validator: a.idx, Nonce: h.nonce(a), Tx: body}
	return h.hdlrs[typ].Process(context.Background(), h.st, btx)
}

func (h *harness) check(a *account, typ tx.HACTxType, body any) *abcitypes.ResponseCheckTx {
	btx := &tx.HACTx{Version: tx.HACTxVersion1, Type: typ, Validator: a.idx, Nonce: h.nonce(a), Tx: body}
	res, err := h.hdlrs[typ].Check(context.Background(), h.st, btx)
	require.NoError(h.t, err)
	return res
}

func TestHandlersCoverEveryTxType(t *testing.T) {
	hdlrs := Handlers(cmtlog.NewNopLogger())
	for typ := tx.HACTxTypeRegister; typ <= tx.HACTxTypeCancelProposal; typ++ {
		assert.Contains(t, hdlrs, typ, typ.String())
	}
}

func TestGovernanceFlowThroughHandlers(t *testing.T) {
	h := newHarness(t)

	res := h.check(h.alice, tx.HACTxTypeCreateProposal, &tx.CreateProposalTx{Description: "x"})
	assert.Equal(t, gov.CodeNotInit, res.Code)

	cfg := types.DefaultVotingConfig()
	cfg.VotingPeriod = 100
	cfg.ExecutionDelay = 10
	cfg.ProposalThreshold.SetUint64(1000)

	_, err := h.run(h.alice, tx.HACTxTypeInitVotingConfig, &tx.InitVotingConfigTx{Config: cfg})
	require.ErrorIs(t, err, gov.ErrUnauthorized)

	nonce := h.nonce(h.admin)
	exec, err := h.run(h.admin, tx.HACTxTypeInitVotingConfig, &tx.InitVotingConfigTx{Config: cfg})
	require.NoError(t, err)
	require.Len(t, exec.Events, 1)
	assert.Equal(t, nonce+1, h.nonce(h.admin))

	update := cfg.Clone()
	update.QuorumBps = 3000
	exec, err = h.run(h.alice, tx.HACTxTypeCreateProposal, &tx.CreateProposalTx{Description: "raise quorum", ConfigUpdate: update})
	require.NoError(t, err)
	assert.Equal(t, "1", string(exec.Data))
	require.Len(t, exec.Events, 1)
	created := types.DecodeEventProposalCreated(exec.Events[0])
	require.NotNil(t, created)
	assert.Equal(t, h.alice.addr, created.Creator)

	exec, err = h.run(h.alice, tx.HACTxTypeVote, &tx.VoteTx{Proposal: 1, VoteType: types.VoteFor})
	require.NoError(t, err)
	assert.Equal(t, "6000", string(exec.Data))

	res = h.check(h.alice, tx.HACTxTypeVote, &tx.VoteTx{Proposal: 1, VoteType: types.VoteAgainst})
	assert.Equal(t, gov.CodeAlreadyVoted, res.Code)

	res = h.check(h.admin, tx.HACTxTypeFinalizeProposal, &tx.ProposalRefTx{Proposal: 1})
	assert.Equal(t, gov.CodeVotingActive, res.Code)

	h.st.SetBlock(h.st.Header().Height, 1100)
	exec, err = h.run(h.admin, tx.HACTxTypeFinalizeProposal, &tx.ProposalRefTx{Proposal: 1})
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStateSucceeded.String(), string(exec.Data))

	exec, err = h.run(h.admin, tx.HACTxTypeQueueProposal, &tx.ProposalRefTx{Proposal: 1})
	require.NoError(t, err)
	assert.Equal(t, "1110", string(exec.Data))

	_, err = h.run(h.admin, tx.HACTxTypeExecuteProposal, &tx.ProposalRefTx{Proposal: 1})
	require.ErrorIs(t, err, gov.ErrTimelock)

	h.st.SetBlock(h.st.Header().Height, 1110)
	_, err = h.run(h.admin, tx.HACTxTypeExecuteProposal, &tx.ProposalRefTx{Proposal: 1})
	require.NoError(t, err)

	vc, err := h.st.VotingConfig()
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), vc.QuorumBps)
	assert.Equal(t, uint64(2), vc.Version)
}

func TestCheckDoesNotMutateState(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(h.admin, tx.HACTxTypeInitVotingConfig, &tx.InitVotingConfigTx{Config: types.DefaultVotingConfig()})
	require.NoError(t, err)

	res := h.check(h.alice, tx.HACTxTypeCreateProposal, &tx.CreateProposalTx{Description: "dry"})
	assert.Equal(t, gov.CodeOK, res.Code)
	assert.Equal(t, uint64(0), h.st.ProposalCount())
	assert.Equal(t, uint64(0), h.nonce(h.alice))
}

func TestCancelByAdmin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(h.admin, tx.HACTxTypeInitVotingConfig, &tx.InitVotingConfigTx{Config: types.DefaultVotingConfig()})
	require.NoError(t, err)
	_, err = h.run(h.alice, tx.HACTxTypeCreateProposal, &tx.CreateProposalTx{Description: "to cancel"})
	require.NoError(t, err)

	exec, err := h.run(h.admin, tx.HACTxTypeCancelProposal, &tx.ProposalRefTx{Proposal: 1})
	require.NoError(t, err)
	id, caller, ok := types.DecodeProposalTransition(exec.Events[0])
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, h.admin.addr, caller)

	res := h.check(h.alice, tx.HACTxTypeVote, &tx.VoteTx{Proposal: 1, VoteType: types.VoteFor})
	assert.Equal(t, gov.CodeVotingClosed, res.Code)
	res = h.check(h.alice, tx.HACTxTypeCancelProposal, &tx.ProposalRefTx{Proposal: 9})
	assert.Equal(t, gov.CodeNotFound, res.Code)
}

func TestLedgerHandlers(t *testing.T) {
	h := newHarness(t)
	bob := ed25519.GenPrivKey()

	reg := &tx.RegisterTx{PubKey: bob.PubKey().Bytes(), Name: "bob"}
	btx := &tx.HACTx{Version: tx.HACTxVersion1, Type: tx.HACTxTypeRegister, Tx: reg}
	exec, err := h.hdlrs[tx.HACTxTypeRegister].Process(context.Background(), h.st, btx)
	require.NoError(t, err)
	ev := types.DecodeEventLedger(exec.Events[0])
	require.NotNil(t, ev)
	assert.Equal(t, types.EventRegisterType, ev.Type)

	res, err := h.hdlrs[tx.HACTxTypeRegister].Check(context.Background(), h.st, btx)
	require.NoError(t, err)
	assert.Equal(t, gov.CodeInvalidInput, res.Code)

	b := &account{priv: bob, addr: ev.Address, idx: ev.Account}
	res = h.check(b, tx.HACTxTypeRetract, &tx.RetractTx{Amount: 1})
	assert.Equal(t, gov.CodeNoVotingPower, res.Code)

	exec, err = h.run(b, tx.HACTxTypeDeposit, &tx.DepositTx{Amount: 700})
	require.NoError(t, err)
	ev = types.DecodeEventLedger(exec.Events[0])
	assert.Equal(t, uint64(700), ev.Stake)

	power, err := h.st.PowerOf(b.addr, 0)
	require.NoError(t, err)
	assert.Equal(t, "700", power.String())

	res = h.check(b, tx.HACTxTypeRetract, &tx.RetractTx{Amount: 701})
	assert.Equal(t, gov.CodeInvalidInput, res.Code)
	_, err = h.run(b, tx.HACTxTypeRetract, &tx.RetractTx{Amount: 200})
	require.NoError(t, err)
	assert.Equal(t, uint64(10500), h.st.Header().TotalStake)
}

func TestResultCode(t *testing.T) {
	assert.Equal(t, gov.CodeUnauthorized, ResultCode(state.ErrTxSigInvalid))
	assert.Equal(t, gov.CodeInvalidInput, ResultCode(tx.ErrUnsupportedTxType))
	assert.Equal(t, gov.CodeTimelock, ResultCode(gov.ErrTimelock))
	assert.Equal(t, gov.CodeInternal, ResultCode(assert.AnError))

	exec := FailedExec(gov.ErrAlreadyVoted)
	assert.Equal(t, gov.CodeAlreadyVoted, exec.Code)
	assert.Equal(t, "hac", exec.Codespace)
}
