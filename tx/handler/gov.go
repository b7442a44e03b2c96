package handler

import (
	"context"
	"strconv"

	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// govCall runs one engine operation for the verified signer and returns the
// bytes placed in ExecTxResult.Data.
type govCall func(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error)

type GovTxHandler struct {
	logger cmtlog.Logger
	typ    tx.HACTxType
	call   govCall
}

func NewGovTxHandler(logger cmtlog.Logger, typ tx.HACTxType, call govCall) *GovTxHandler {
	return &GovTxHandler{
		logger: logger.With("module", typ.String()+"Tx"),
		typ:    typ,
		call:   call,
	}
}

func (h *GovTxHandler) Check(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error) {
	res, err = dryRun(ctx, h, st, btx)
	if res != nil && res.Code != 0 {
		h.logger.Info("CheckTx fail", "code", res.Code, "log", res.Log)
	}
	return
}

func (h *GovTxHandler) Process(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ExecTxResult, err error) {
	if btx.Type != h.typ {
		return nil, tx.ErrUnmatchedTxType
	}
	signer, err := st.Signer(btx.Validator)
	if err != nil {
		return nil, err
	}
	cfg, err := st.VotingConfig()
	if err != nil {
		return nil, err
	}
	admin, err := st.Admin()
	if err != nil {
		return nil, err
	}
	sink := gov.NewCollectSink()
	env := &gov.Env{
		Now:    st.Now(),
		Config: cfg,
		Auth:   gov.SignerAuthorizer{Signer: signer.Address(), Admin: admin},
		Events: gov.NewLogSink(sink, h.logger),
	}
	data, err := h.call(gov.NewEngine(st, st, h.logger), env, signer.Address(), btx.Tx)
	if err != nil {
		return nil, err
	}
	if err = st.IncNonce(btx.Validator); err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Data:   data,
		Events: sink.Events(),
	}
	return
}

func uintData(v uint64) []byte {
	return []byte(strconv.FormatUint(v, 10))
}

func initVotingConfig(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	itx, ok := body.(*tx.InitVotingConfigTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	return nil, e.InitVotingConfig(env, signer, itx.Config)
}

func createProposal(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	ptx, ok := body.(*tx.CreateProposalTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	var opts []gov.ProposalOption
	if ptx.ConfigUpdate != nil {
		opts = append(opts, gov.WithConfigUpdate(ptx.ConfigUpdate))
	}
	id, err := e.CreateProposal(env, signer, ptx.Description, opts...)
	if err != nil {
		return nil, err
	}
	return uintData(id), nil
}

func castVote(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	vtx, ok := body.(*tx.VoteTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	weight, err := e.Vote(env, vtx.Proposal, vtx.VoteType, signer)
	if err != nil {
		return nil, err
	}
	return []byte(weight.String()), nil
}

func finalizeProposal(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	ref, ok := body.(*tx.ProposalRefTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	st, err := e.Finalize(env, ref.Proposal, signer)
	if err != nil {
		return nil, err
	}
	return []byte(st.String()), nil
}

func queueProposal(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	ref, ok := body.(*tx.ProposalRefTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	eta, err := e.Queue(env, ref.Proposal, signer)
	if err != nil {
		return nil, err
	}
	return uintData(eta), nil
}

func executeProposal(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	ref, ok := body.(*tx.ProposalRefTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	return nil, e.Execute(env, ref.Proposal, signer)
}

func cancelProposal(e *gov.Engine, env *gov.Env, signer string, body any) ([]byte, error) {
	ref, ok := body.(*tx.ProposalRefTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	return nil, e.CancelProposal(env, ref.Proposal, signer)
}
