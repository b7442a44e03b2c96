package gov

import (
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/calehh/hac-gov/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Env carries everything a single call needs from its host: the block time,
// the config in force, the capability check and the event sink.
type Env struct {
	Now    uint64
	Config *types.VotingConfig
	Auth   Authorizer
	Events EventSink
}

func (env *Env) emit(ev types.GovEvent) {
	if env.Events != nil {
		env.Events.Emit(ev)
	}
}

type Engine struct {
	store  Store
	oracle PowerOracle
	logger cmtlog.Logger
}

func NewEngine(store Store, oracle PowerOracle, logger cmtlog.Logger) *Engine {
	return &Engine{
		store:  store,
		oracle: oracle,
		logger: logger.With("module", "gov"),
	}
}

type ProposalOption func(p *types.Proposal)

// WithConfigUpdate attaches a config that replaces the current one when the
// proposal executes.
func WithConfigUpdate(cfg *types.VotingConfig) ProposalOption {
	return func(p *types.Proposal) {
		p.ConfigUpdate = cfg.Clone()
	}
}

func (e *Engine) InitVotingConfig(env *Env, admin string, cfg *types.VotingConfig) error {
	if !env.Auth.Authorized(admin) || !env.Auth.IsAdmin(admin) {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, admin)
	}
	existing, err := e.store.VotingConfig()
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: voting config already initialized", ErrUnauthorized)
	}
	if cfg == nil {
		return fmt.Errorf("%w: empty config", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n := cfg.Clone()
	n.Version = 1
	if err := e.store.SetVotingConfig(n); err != nil {
		return err
	}
	e.logger.Info("voting config initialized", "admin", admin, "quorumBps", n.QuorumBps, "period", n.VotingPeriod)
	env.emit(&types.EventVotingConfig{Admin: admin, Config: n.Clone()})
	return nil
}

func (e *Engine) CreateProposal(env *Env, creator, description string, opts ...ProposalOption) (id uint64, err error) {
	cfg := env.Config
	if cfg == nil {
		return 0, ErrNotInitialized
	}
	if !env.Auth.Authorized(creator) {
		return 0, fmt.Errorf("%w: creator did not sign", ErrUnauthorized)
	}
	if description == "" {
		return 0, fmt.Errorf("%w: empty description", ErrInvalidInput)
	}
	if len(description) > int(cfg.MaxDescriptionLen) || !utf8.ValidString(description) {
		return 0, fmt.Errorf("%w: description exceeds %d bytes or is not utf8", ErrInvalidInput, cfg.MaxDescriptionLen)
	}

	if env.Now > math.MaxUint64-cfg.VotingPeriod || env.Now+cfg.VotingPeriod > math.MaxUint64-cfg.ExecutionDelay {
		return 0, fmt.Errorf("%w: voting period %d and delay %d overflow at %d", ErrInvalidInput, cfg.VotingPeriod, cfg.ExecutionDelay, env.Now)
	}

	p := &types.Proposal{
		Creator:        creator,
		Description:    description,
		CreatedAt:      env.Now,
		VotingEndsAt:   env.Now + cfg.VotingPeriod,
		ForWeight:      new(big.Int),
		AgainstWeight:  new(big.Int),
		AbstainWeight:  new(big.Int),
		QuorumBps:      cfg.QuorumBps,
		MaxWeightBps:   cfg.MaxWeightBps,
		ExecutionDelay: cfg.ExecutionDelay,
		ConfigVersion:  cfg.Version,
		State:          types.ProposalStateActive,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ConfigUpdate != nil {
		if err := p.ConfigUpdate.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	power, err := e.oracle.PowerOf(creator, env.Now)
	if err != nil {
		return 0, err
	}
	if power.Cmp(cfg.ProposalThreshold) < 0 {
		return 0, fmt.Errorf("%w: power %v below threshold %v", ErrUnauthorized, power, cfg.ProposalThreshold)
	}
	supply, err := e.oracle.TotalPower(env.Now)
	if err != nil {
		return 0, err
	}
	p.TotalSupplySnapshot = new(big.Int).Set(supply)

	id, err = e.store.NextProposalId()
	if err != nil {
		return 0, err
	}
	p.Id = id
	if err = e.store.CreateProposal(p); err != nil {
		return 0, err
	}
	e.logger.Info("proposal created", "id", id, "creator", creator, "endsAt", p.VotingEndsAt, "supply", supply)
	env.emit(&types.EventProposalCreated{
		ProposalId:  id,
		Creator:     creator,
		Description: description,
	})
	return id, nil
}

// Vote admits one weighted vote per voter and returns the weight applied to the tally.
func (e *Engine) Vote(env *Env, id uint64, vt types.VoteType, voter string) (*big.Int, error) {
	if !env.Auth.Authorized(voter) {
		return nil, fmt.Errorf("%w: voter did not sign", ErrUnauthorized)
	}
	if !vt.Valid() {
		return nil, fmt.Errorf("%w: vote type %d", ErrInvalidInput, vt)
	}
	p, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if p.State != types.ProposalStateActive || env.Now >= p.VotingEndsAt {
		return nil, fmt.Errorf("%w: proposal %d is %v, ends at %d", ErrVotingClosed, id, p.State, p.VotingEndsAt)
	}
	r, err := e.store.GetReceipt(id, voter)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return nil, fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, voter, id)
	}
	power, err := e.oracle.PowerOf(voter, env.Now)
	if err != nil {
		return nil, err
	}
	if power.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVotingPower, voter)
	}
	supply := p.TotalSupplySnapshot
	if supply == nil {
		supply = new(big.Int)
	}
	weight := ClampWeight(power, supply, p.MaxWeightBps)
	if weight.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s weight clamped to zero", ErrNoVotingPower, voter)
	}

	updated := p.Clone()
	updated.AddWeight(vt, weight)
	receipt := &types.VoteReceipt{
		ProposalId: id,
		Voter:      voter,
		VoteType:   vt,
		Weight:     new(big.Int).Set(weight),
		CastAt:     env.Now,
	}
	if err = e.store.RecordVote(updated, receipt); err != nil {
		return nil, err
	}
	e.logger.Debug("vote cast", "id", id, "voter", voter, "type", vt, "weight", weight, "power", power)
	env.emit(&types.EventVoteCast{
		ProposalId: id,
		Voter:      voter,
		VoteType:   vt,
		Weight:     new(big.Int).Set(weight),
	})
	return weight, nil
}

// Finalize settles an Active proposal whose window has closed. Once settled,
// further calls return the stored state without writing or emitting.
func (e *Engine) Finalize(env *Env, id uint64, caller string) (types.ProposalState, error) {
	p, err := e.load(id)
	if err != nil {
		return types.ProposalStatePending, err
	}
	if p.State != types.ProposalStateActive {
		return p.State, nil
	}
	if env.Now < p.VotingEndsAt {
		return p.State, fmt.Errorf("%w: proposal %d ends at %d", ErrVotingActive, id, p.VotingEndsAt)
	}
	updated := p.Clone()
	updated.State = Outcome(p)
	if err = e.store.UpdateProposal(updated); err != nil {
		return p.State, err
	}
	e.logger.Info("proposal finalized", "id", id, "state", updated.State,
		"for", updated.ForWeight, "against", updated.AgainstWeight, "abstain", updated.AbstainWeight)
	env.emit(&types.EventProposalFinalized{
		ProposalId:    id,
		Caller:        caller,
		State:         updated.State,
		ForWeight:     updated.ForWeight,
		AgainstWeight: updated.AgainstWeight,
		AbstainWeight: updated.AbstainWeight,
	})
	return updated.State, nil
}

func (e *Engine) Queue(env *Env, id uint64, caller string) (eta uint64, err error) {
	p, err := e.load(id)
	if err != nil {
		return 0, err
	}
	if p.State != types.ProposalStateSucceeded {
		return 0, fmt.Errorf("%w: proposal %d is %v", ErrInvalidState, id, p.State)
	}
	if p.VotingEndsAt > math.MaxUint64-p.ExecutionDelay {
		return 0, fmt.Errorf("%w: proposal %d eta overflows", ErrInvalidState, id)
	}
	updated := p.Clone()
	updated.State = types.ProposalStateQueued
	updated.Eta = p.VotingEndsAt + p.ExecutionDelay
	if err = e.store.UpdateProposal(updated); err != nil {
		return 0, err
	}
	e.logger.Info("proposal queued", "id", id, "eta", updated.Eta)
	env.emit(&types.EventProposalQueued{ProposalId: id, Caller: caller, Eta: updated.Eta})
	return updated.Eta, nil
}

func (e *Engine) Execute(env *Env, id uint64, caller string) error {
	p, err := e.load(id)
	if err != nil {
		return err
	}
	if p.State != types.ProposalStateQueued {
		return fmt.Errorf("%w: proposal %d is %v", ErrInvalidState, id, p.State)
	}
	if env.Now < p.Eta {
		return fmt.Errorf("%w: proposal %d executable at %d", ErrTimelock, id, p.Eta)
	}
	var next *types.VotingConfig
	if p.ConfigUpdate != nil {
		if err := p.ConfigUpdate.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		next = p.ConfigUpdate.Clone()
		next.Version = 1
		if env.Config != nil {
			next.Version = env.Config.Version + 1
		}
	}
	updated := p.Clone()
	updated.State = types.ProposalStateExecuted
	if next != nil {
		if err = e.store.SetVotingConfig(next); err != nil {
			return err
		}
	}
	if err = e.store.UpdateProposal(updated); err != nil {
		return err
	}
	ev := &types.EventProposalExecuted{ProposalId: id, Caller: caller}
	if next != nil {
		ev.ConfigVersion = next.Version
		e.logger.Info("voting config updated by proposal", "id", id, "version", next.Version)
	}
	e.logger.Info("proposal executed", "id", id)
	env.emit(ev)
	return nil
}

func (e *Engine) CancelProposal(env *Env, id uint64, caller string) error {
	p, err := e.load(id)
	if err != nil {
		return err
	}
	if !env.Auth.Authorized(caller) {
		return fmt.Errorf("%w: caller did not sign", ErrUnauthorized)
	}
	// an unfinalized proposal past its window is judged by its tally
	st := p.State
	if st == types.ProposalStateActive && env.Now >= p.VotingEndsAt {
		st = Outcome(p)
	}
	if st.Terminal() || st == types.ProposalStatePending {
		return fmt.Errorf("%w: proposal %d is %v", ErrUnauthorized, id, st)
	}
	if caller != p.Creator && !env.Auth.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is neither creator nor admin", ErrUnauthorized, caller)
	}
	updated := p.Clone()
	updated.State = types.ProposalStateCancelled
	if err = e.store.UpdateProposal(updated); err != nil {
		return err
	}
	e.logger.Info("proposal cancelled", "id", id, "caller", caller)
	env.emit(&types.EventProposalCancelled{ProposalId: id, Caller: caller})
	return nil
}

func (e *Engine) Proposal(id uint64) (*types.Proposal, error) {
	return e.load(id)
}

func (e *Engine) Receipt(id uint64, voter string) (*types.VoteReceipt, error) {
	r, err := e.store.GetReceipt(id, voter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: receipt %d/%s", ErrNotFound, id, voter)
	}
	return r, nil
}

func (e *Engine) load(id uint64) (*types.Proposal, error) {
	p, err := e.store.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	return p, nil
}
