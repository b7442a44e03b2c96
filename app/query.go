package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func (app *HACApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = 404
		res.Log = "unknown query path " + req.Path
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func queryFail(res *abcitypes.ResponseQuery, err error) *abcitypes.ResponseQuery {
	res.Code = gov.Code(err)
	res.Log = err.Error()
	return res
}

func queryValue(res *abcitypes.ResponseQuery, v any, height uint64) *abcitypes.ResponseQuery {
	dat, err := json.Marshal(v)
	if err != nil {
		return queryFail(res, err)
	}
	res.Value = dat
	res.Height = int64(height)
	return res
}

type accountReader interface {
	GetAccountByAddress(addr []byte) (*state.Account, uint64, error)
	GetAccountByIndex(idx uint64) (*state.Account, uint64, error)
}

type AccountQuerier struct {
	db     accountReader
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query takes a 20 byte address or a big endian account index of up to 8 bytes.
func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Account
	var height uint64
	var err2 error
	if len(req.Data) == 20 {
		a, height, err2 = q.db.GetAccountByAddress(req.Data)
	} else if len(req.Data) <= 8 {
		var idx uint64
		for _, v := range req.Data {
			idx <<= 8
			idx |= uint64(v)
		}
		a, height, err2 = q.db.GetAccountByIndex(idx)
	}
	if err2 != nil {
		return queryFail(res, err2), nil
	}
	if a == nil {
		return queryFail(res, gov.ErrNotFound), nil
	}
	return queryValue(res, a, height), nil
}

type ValidatorQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewValidatorQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ValidatorQuerier) {
	q = &ValidatorQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ValidatorQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	validators, height, err := q.db.State().ValidatorAccounts()
	if err != nil {
		return queryFail(res, err), nil
	}
	return queryValue(res, validators, height), nil
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) *ProposalQuerier {
	return &ProposalQuerier{db: db, logger: logger}
}

// Query takes the decimal proposal id.
func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	id, err := strconv.ParseUint(string(req.Data), 10, 64)
	if err != nil {
		return queryFail(res, gov.ErrInvalidInput), nil
	}
	p, height, err := q.db.GetProposal(id)
	if err != nil {
		return queryFail(res, err), nil
	}
	if p == nil {
		return queryFail(res, gov.ErrNotFound), nil
	}
	return queryValue(res, p, height), nil
}

type ReceiptQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewReceiptQuerier(db *state.StateDB, logger cmtlog.Logger) *ReceiptQuerier {
	return &ReceiptQuerier{db: db, logger: logger}
}

// Query takes "<id>/<voter address>".
func (q *ReceiptQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	sid, voter, found := strings.Cut(string(req.Data), "/")
	if !found || voter == "" {
		return queryFail(res, gov.ErrInvalidInput), nil
	}
	id, err := strconv.ParseUint(sid, 10, 64)
	if err != nil {
		return queryFail(res, gov.ErrInvalidInput), nil
	}
	r, height, err := q.db.GetReceipt(id, strings.ToUpper(voter))
	if err != nil {
		return queryFail(res, err), nil
	}
	if r == nil {
		return queryFail(res, gov.ErrNotFound), nil
	}
	return queryValue(res, r, height), nil
}

// ConfigResponse is the value of a /config/ query.
type ConfigResponse struct {
	Admin  string              `json:"admin"`
	Config *types.VotingConfig `json:"config"`
}

type ConfigQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewConfigQuerier(db *state.StateDB, logger cmtlog.Logger) *ConfigQuerier {
	return &ConfigQuerier{db: db, logger: logger}
}

func (q *ConfigQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	cfg, admin, height, err := q.db.GetVotingConfig()
	if err != nil {
		return queryFail(res, err), nil
	}
	if cfg == nil {
		return queryFail(res, gov.ErrNotInitialized), nil
	}
	return queryValue(res, &ConfigResponse{Admin: admin, Config: cfg}, height), nil
}

// PowerResponse is the value of a /power/ query.
type PowerResponse struct {
	Address string `json:"address"`
	Power   string `json:"power"`
	Total   string `json:"total"`
}

type PowerQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewPowerQuerier(db *state.StateDB, logger cmtlog.Logger) *PowerQuerier {
	return &PowerQuerier{db: db, logger: logger}
}

// Query takes the hex address.
func (q *PowerQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	addr := strings.ToUpper(string(req.Data))
	if addr == "" {
		return queryFail(res, gov.ErrInvalidInput), nil
	}
	power, total, height, err := q.db.GetPower(addr)
	if err != nil {
		return queryFail(res, err), nil
	}
	return queryValue(res, &PowerResponse{Address: addr, Power: power.String(), Total: total.String()}, height), nil
}
