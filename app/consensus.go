package app

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/tx/handler"
	hac_types "github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoPendingState      = errors.New("commit without finalized block")
)

func blockTime(t time.Time) uint64 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}

// blockState opens the working state of the block at height, stamped with the
// consensus time every governance call reads as now.
func (app *HACApp) blockState(height int64, t time.Time) (st *state.State) {
	st = app.db.NewState()
	st.SetBlock(uint64(height), blockTime(t))
	return
}

func (app *HACApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.HACTx, err error) {
	btx, err = tx.UnmarshalHACTx(txDat)
	if err != nil {
		return
	}
	if btx != nil {
		_, err = st.Verify(btx, allowNonceGap)
	}
	return
}

// applyTx runs one tx against a copy of st. The copy is returned only when the
// tx succeeds, so a rejected tx leaves no trace beyond its result.
func (app *HACApp) applyTx(ctx context.Context, st *state.State, stx []byte) (next *state.State, res *abcitypes.ExecTxResult, err error) {
	stTmp := st.Clone()
	btx, err := app.parseTx(stTmp, stx, false)
	if err != nil {
		return nil, nil, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return nil, nil, tx.ErrUnsupportedTxType
	}
	res, err = h.Process(ctx, stTmp, btx)
	if err != nil {
		return nil, nil, err
	}
	if res == nil {
		return nil, nil, ErrUnexpectedTxProcess
	}
	return stTmp, res, nil
}

func (app *HACApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	st := app.db.State()
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		return handler.FailedCheck(err), nil
	}
	app.logger.Debug("check tx", "type", btx.Type, "validator", btx.Validator, "nonce", btx.Nonce)
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		return handler.FailedCheck(tx.ErrUnsupportedTxType), nil
	}
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		return handler.FailedCheck(err), nil
	}
	return
}

func (app *HACApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.blockState(proposal.Height, proposal.Time)
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if app.cfg.MaxTxsPerBlock > 0 && len(txs) >= app.cfg.MaxTxsPerBlock {
			break
		}
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			continue
		}
		next, _, err := app.applyTx(ctx, st, stx)
		if err != nil {
			app.logger.Info("drop tx from proposal", "err", err)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *HACApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if app.cfg.MaxTxsPerBlock > 0 && len(proposal.Txs) > app.cfg.MaxTxsPerBlock {
		app.logger.Error("too many txs in proposal", "txs", len(proposal.Txs), "max", app.cfg.MaxTxsPerBlock)
		app.metrics.rejected.Inc()
		return res, nil
	}
	st := app.blockState(proposal.Height, proposal.Time)
	for _, stx := range proposal.Txs {
		next, _, err := app.applyTx(ctx, st, stx)
		if err != nil {
			app.logger.Error("process fail", "err", err)
			app.metrics.rejected.Inc()
			return res, nil
		}
		st = next
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *HACApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (next *state.State, res []*abcitypes.ExecTxResult) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		stTmp, result, err := app.applyTx(ctx, st, stx)
		if err != nil {
			app.logger.Info("tx rejected", "index", i, "err", err)
			res[i] = handler.FailedExec(err)
			continue
		}
		st = stTmp
		res[i] = result
	}
	return st, res
}

func (app *HACApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.blockState(req.Height, req.Time)
	curVals, err := st.Validators()
	if err != nil {
		app.logger.Error("get validators fail", "err", err)
		return nil, err
	}
	st, res := app.finalize(ctx, st, req.Txs)
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	updateVals, err := st.ValidatorsUpdate(curVals)
	if err != nil {
		app.logger.Error("state update validators hash fail", "err", err)
		return nil, err
	}
	var events []abcitypes.Event
	if len(updateVals) != 0 {
		events = append(events, hac_types.EncodeEventUpdateValidators(&hac_types.EventUpdateValidators{Updates: updateVals}))
	}
	app.st = st
	app.metrics.observeBlock(req.Height, res)
	return &abcitypes.ResponseFinalizeBlock{
		TxResults:        res,
		AppHash:          h.Bytes(),
		ValidatorUpdates: updateVals,
		Events:           events,
	}, nil
}

func (app *HACApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
