package handler

import (
	"context"
	"errors"

	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler applies one decoded tx to a working state. The envelope signature
// and nonce are verified by the caller before Check or Process runs.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ExecTxResult, err error)
}

var ledgerCodes = []struct {
	err  error
	code uint32
}{
	{state.ErrTxSigInvalid, gov.CodeUnauthorized},
	{state.ErrTxNonceInvalid, gov.CodeUnauthorized},
	{state.ErrTxValidatorNoexists, gov.CodeUnauthorized},
	{state.ErrAccountNoexists, gov.CodeNotFound},
	{state.ErrAccountAlreadyExists, gov.CodeInvalidInput},
	{state.ErrInvalidPubKey, gov.CodeInvalidInput},
	{state.ErrInvalidAmount, gov.CodeInvalidInput},
	{state.ErrInsufficientStake, gov.CodeInvalidInput},
	{state.ErrTxNotMembership, gov.CodeNoVotingPower},
	{tx.ErrInvalidTx, gov.CodeInvalidInput},
	{tx.ErrUnsupportedTxType, gov.CodeInvalidInput},
	{tx.ErrUnmatchedTxType, gov.CodeInvalidInput},
	{tx.ErrUnsupportedTxVersion, gov.CodeInvalidInput},
}

// ResultCode extends gov.Code with the ledger and envelope errors.
func ResultCode(err error) uint32 {
	if code := gov.Code(err); code != gov.CodeInternal {
		return code
	}
	for _, c := range ledgerCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return gov.CodeInternal
}

// FailedExec turns a rejected tx into the result recorded in the block.
func FailedExec(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{
		Code:      ResultCode(err),
		Log:       err.Error(),
		Codespace: "hac",
	}
}

// FailedCheck is the mempool rejection for err.
func FailedCheck(err error) *abcitypes.ResponseCheckTx {
	return &abcitypes.ResponseCheckTx{
		Code:      ResultCode(err),
		Log:       err.Error(),
		Codespace: "hac",
	}
}

// dryRun runs Process against a throwaway copy so CheckTx never touches st.
func dryRun(ctx context.Context, h TxHandler, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err = h.Process(ctx, st.Clone(), btx)
	if err != nil {
		return FailedCheck(err), nil
	}
	return &abcitypes.ResponseCheckTx{Code: gov.CodeOK}, nil
}

// Handlers returns the handler for every supported tx type.
func Handlers(logger cmtlog.Logger) map[tx.HACTxType]TxHandler {
	return map[tx.HACTxType]TxHandler{
		tx.HACTxTypeRegister:         NewRegisterTxHandler(logger),
		tx.HACTxTypeDeposit:          NewDepositTxHandler(logger),
		tx.HACTxTypeRetract:          NewRetractTxHandler(logger),
		tx.HACTxTypeInitVotingConfig: NewGovTxHandler(logger, tx.HACTxTypeInitVotingConfig, initVotingConfig),
		tx.HACTxTypeCreateProposal:   NewGovTxHandler(logger, tx.HACTxTypeCreateProposal, createProposal),
		tx.HACTxTypeVote:             NewGovTxHandler(logger, tx.HACTxTypeVote, castVote),
		tx.HACTxTypeFinalizeProposal: NewGovTxHandler(logger, tx.HACTxTypeFinalizeProposal, finalizeProposal),
		tx.HACTxTypeQueueProposal:    NewGovTxHandler(logger, tx.HACTxTypeQueueProposal, queueProposal),
		tx.HACTxTypeExecuteProposal:  NewGovTxHandler(logger, tx.HACTxTypeExecuteProposal, executeProposal),
		tx.HACTxTypeCancelProposal:   NewGovTxHandler(logger, tx.HACTxTypeCancelProposal, cancelProposal),
	}
}
