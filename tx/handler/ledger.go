package handler

import (
	"context"

	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type RegisterTxHandler struct {
	logger cmtlog.Logger
}

func NewRegisterTxHandler(logger cmtlog.Logger) (h *RegisterTxHandler) {
	logger = logger.With("module", "registerTx")
	h = &RegisterTxHandler{
		logger: logger,
	}
	return
}

func (h *RegisterTxHandler) Check(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error) {
	rtx, ok := btx.Tx.(*tx.RegisterTx)
	if !ok {
		return FailedCheck(tx.ErrUnmatchedTxType), nil
	}
	if _, err1 := st.Register(rtx, true); err1 != nil {
		h.logger.Info("CheckTx register fail", "err", err1)
		return FailedCheck(err1), nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0}, nil
}

func (h *RegisterTxHandler) Process(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ExecTxResult, err error) {
	rtx, ok := btx.Tx.(*tx.RegisterTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	event, err := st.Register(rtx, false)
	if err != nil {
		return nil, err
	}
	h.logger.Info("account registered", "index", event.Account, "addr", event.Address)
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventLedger(event)},
	}
	return
}

type DepositTxHandler struct {
	logger cmtlog.Logger
}

func NewDepositTxHandler(logger cmtlog.Logger) (h *DepositTxHandler) {
	logger = logger.With("module", "depositTx")
	h = &DepositTxHandler{
		logger: logger,
	}
	return
}

func (h *DepositTxHandler) Check(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error) {
	dtx, ok := btx.Tx.(*tx.DepositTx)
	if !ok {
		return FailedCheck(tx.ErrUnmatchedTxType), nil
	}
	if _, err1 := st.Deposit(dtx, btx.Validator, true); err1 != nil {
		h.logger.Info("CheckTx deposit fail", "err", err1)
		return FailedCheck(err1), nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0}, nil
}

func (h *DepositTxHandler) Process(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ExecTxResult, err error) {
	dtx, ok := btx.Tx.(*tx.DepositTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	event, err := st.Deposit(dtx, btx.Validator, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventLedger(event)},
	}
	return
}

type RetractTxHandler struct {
	logger cmtlog.Logger
}

func NewRetractTxHandler(logger cmtlog.Logger) (h *RetractTxHandler) {
	logger = logger.With("module", "retractTx")
	h = &RetractTxHandler{
		logger: logger,
	}
	return
}

func (h *RetractTxHandler) Check(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ResponseCheckTx, err error) {
	utx, ok := btx.Tx.(*tx.RetractTx)
	if !ok {
		return FailedCheck(tx.ErrUnmatchedTxType), nil
	}
	if _, err1 := st.Retract(utx, btx.Validator, true); err1 != nil {
		h.logger.Info("CheckTx retract fail", "err", err1)
		return FailedCheck(err1), nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0}, nil
}

func (h *RetractTxHandler) Process(ctx context.Context, st *state.State, btx *tx.HACTx) (res *abcitypes.ExecTxResult, err error) {
	utx, ok := btx.Tx.(*tx.RetractTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	event, err := st.Retract(utx, btx.Validator, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventLedger(event)},
	}
	return
}
