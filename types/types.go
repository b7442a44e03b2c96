package types

import (
	"fmt"
	"math/big"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

// Event schema version. Bump when attribute order or meaning changes.
const EventVersion = 1

const (
	EventDomain = "gov"

	ActionCreated   = "created"
	ActionVoted     = "voted"
	ActionFinalized = "finalized"
	ActionQueued    = "queued"
	ActionExecuted  = "executed"
	ActionCancelled = "cancelled"
	ActionConfig    = "config"
)

const (
	EventProposalCreatedType   = EventDomain + "_" + ActionCreated
	EventVoteCastType          = EventDomain + "_" + ActionVoted
	EventProposalFinalizedType = EventDomain + "_" + ActionFinalized
	EventProposalQueuedType    = EventDomain + "_" + ActionQueued
	EventProposalExecutedType  = EventDomain + "_" + ActionExecuted
	EventProposalCancelledType = EventDomain + "_" + ActionCancelled
	EventVotingConfigType      = EventDomain + "_" + ActionConfig
)

const (
	AttrDomain  = "domain"
	AttrAction  = "action"
	AttrAddress = "address"
	AttrVersion = "version"
)

// GovEvent is a typed payload with the fixed [domain, action, address] topics.
type GovEvent interface {
	Action() string
	Address() string
	Encode() abci.Event
}

func topics(action, address string) []abci.EventAttribute {
	return []abci.EventAttribute{
		{Key: AttrDomain, Value: EventDomain, Index: true},
		{Key: AttrAction, Value: action, Index: true},
		{Key: AttrAddress, Value: address, Index: true},
	}
}

func withVersion(attrs []abci.EventAttribute) []abci.EventAttribute {
	return append(attrs, abci.EventAttribute{Key: AttrVersion, Value: strconv.Itoa(EventVersion), Index: false})
}

func formatInt(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}

type EventProposalCreated struct {
	ProposalId  uint64 `json:"proposal_id"`
	Creator     string `json:"creator"`
	Description string `json:"description"`
}

func (e *EventProposalCreated) Action() string  { return ActionCreated }
func (e *EventProposalCreated) Address() string { return e.Creator }

func (e *EventProposalCreated) Encode() abci.Event {
	attrs := append(topics(ActionCreated, e.Creator),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		abci.EventAttribute{Key: "creator", Value: e.Creator, Index: false},
		abci.EventAttribute{Key: "description", Value: e.Description, Index: false},
	)
	return abci.Event{Type: EventProposalCreatedType, Attributes: withVersion(attrs)}
}

func DecodeEventProposalCreated(originEvent abci.Event) *EventProposalCreated {
	if originEvent.Type != EventProposalCreatedType {
		return nil
	}
	event := &EventProposalCreated{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal_id":
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = id
		case "creator":
			event.Creator = v.Value
		case "description":
			event.Description = v.Value
		}
	}
	return event
}

type EventVoteCast struct {
	ProposalId uint64   `json:"proposal_id"`
	Voter      string   `json:"voter"`
	VoteType   VoteType `json:"vote_type"`
	Weight     *big.Int `json:"weight"`
}

func (e *EventVoteCast) Action() string  { return ActionVoted }
func (e *EventVoteCast) Address() string { return e.Voter }

func (e *EventVoteCast) Encode() abci.Event {
	attrs := append(topics(ActionVoted, e.Voter),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		abci.EventAttribute{Key: "voter", Value: e.Voter, Index: false},
		abci.EventAttribute{Key: "vote_type", Value: fmt.Sprintf("%v", uint8(e.VoteType)), Index: false},
		abci.EventAttribute{Key: "weight", Value: formatInt(e.Weight), Index: false},
	)
	return abci.Event{Type: EventVoteCastType, Attributes: withVersion(attrs)}
}

func DecodeEventVoteCast(originEvent abci.Event) *EventVoteCast {
	if originEvent.Type != EventVoteCastType {
		return nil
	}
	event := &EventVoteCast{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal_id":
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = id
		case "voter":
			event.Voter = v.Value
		case "vote_type":
			vt, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.VoteType = VoteType(vt)
		case "weight":
			w, ok := parseInt(v.Value)
			if !ok {
				return nil
			}
			event.Weight = w
		}
	}
	return event
}

type EventProposalFinalized struct {
	ProposalId    uint64        `json:"proposal_id"`
	Caller        string        `json:"caller"`
	State         ProposalState `json:"state"`
	ForWeight     *big.Int      `json:"for_weight"`
	AgainstWeight *big.Int      `json:"against_weight"`
	AbstainWeight *big.Int      `json:"abstain_weight"`
}

func (e *EventProposalFinalized) Action() string  { return ActionFinalized }
func (e *EventProposalFinalized) Address() string { return e.Caller }

func (e *EventProposalFinalized) Encode() abci.Event {
	attrs := append(topics(ActionFinalized, e.Caller),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		abci.EventAttribute{Key: "state", Value: fmt.Sprintf("%v", uint8(e.State)), Index: false},
		abci.EventAttribute{Key: "for", Value: formatInt(e.ForWeight), Index: false},
		abci.EventAttribute{Key: "against", Value: formatInt(e.AgainstWeight), Index: false},
		abci.EventAttribute{Key: "abstain", Value: formatInt(e.AbstainWeight), Index: false},
	)
	return abci.Event{Type: EventProposalFinalizedType, Attributes: withVersion(attrs)}
}

func DecodeEventProposalFinalized(originEvent abci.Event) *EventProposalFinalized {
	if originEvent.Type != EventProposalFinalizedType {
		return nil
	}
	event := &EventProposalFinalized{}
	for _, v := range originEvent.Attributes {
		var ok bool
		switch v.Key {
		case "proposal_id":
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = id
		case AttrAddress:
			event.Caller = v.Value
		case "state":
			st, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.State = ProposalState(st)
		case "for":
			if event.ForWeight, ok = parseInt(v.Value); !ok {
				return nil
			}
		case "against":
			if event.AgainstWeight, ok = parseInt(v.Value); !ok {
				return nil
			}
		case "abstain":
			if event.AbstainWeight, ok = parseInt(v.Value); !ok {
				return nil
			}
		}
	}
	return event
}

type EventProposalQueued struct {
	ProposalId uint64 `json:"proposal_id"`
	Caller     string `json:"caller"`
	Eta        uint64 `json:"eta"`
}

func (e *EventProposalQueued) Action() string  { return ActionQueued }
func (e *EventProposalQueued) Address() string { return e.Caller }

func (e *EventProposalQueued) Encode() abci.Event {
	attrs := append(topics(ActionQueued, e.Caller),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		abci.EventAttribute{Key: "eta", Value: fmt.Sprintf("%v", e.Eta), Index: false},
	)
	return abci.Event{Type: EventProposalQueuedType, Attributes: withVersion(attrs)}
}

func DecodeEventProposalQueued(originEvent abci.Event) *EventProposalQueued {
	id, caller, ok := DecodeProposalTransition(originEvent)
	if !ok || originEvent.Type != EventProposalQueuedType {
		return nil
	}
	event := &EventProposalQueued{ProposalId: id, Caller: caller}
	for _, v := range originEvent.Attributes {
		if v.Key == "eta" {
			eta, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Eta = eta
		}
	}
	return event
}

type EventProposalExecuted struct {
	ProposalId    uint64 `json:"proposal_id"`
	Caller        string `json:"caller"`
	ConfigVersion uint64 `json:"config_version"`
}

func (e *EventProposalExecuted) Action() string  { return ActionExecuted }
func (e *EventProposalExecuted) Address() string { return e.Caller }

func (e *EventProposalExecuted) Encode() abci.Event {
	attrs := append(topics(ActionExecuted, e.Caller),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
		abci.EventAttribute{Key: "config_version", Value: fmt.Sprintf("%v", e.ConfigVersion), Index: false},
	)
	return abci.Event{Type: EventProposalExecutedType, Attributes: withVersion(attrs)}
}

type EventProposalCancelled struct {
	ProposalId uint64 `json:"proposal_id"`
	Caller     string `json:"caller"`
}

func (e *EventProposalCancelled) Action() string  { return ActionCancelled }
func (e *EventProposalCancelled) Address() string { return e.Caller }

func (e *EventProposalCancelled) Encode() abci.Event {
	attrs := append(topics(ActionCancelled, e.Caller),
		abci.EventAttribute{Key: "proposal_id", Value: fmt.Sprintf("%v", e.ProposalId), Index: true},
	)
	return abci.Event{Type: EventProposalCancelledType, Attributes: withVersion(attrs)}
}

// DecodeProposalTransition reads the proposal id out of a queued, executed or
// cancelled event. It returns false for any other event type.
func DecodeProposalTransition(originEvent abci.Event) (id uint64, caller string, ok bool) {
	switch originEvent.Type {
	case EventProposalQueuedType, EventProposalExecutedType, EventProposalCancelledType:
	default:
		return 0, "", false
	}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal_id":
			n, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return 0, "", false
			}
			id = n
			ok = true
		case AttrAddress:
			caller = v.Value
		}
	}
	return
}

type EventVotingConfig struct {
	Admin  string        `json:"admin"`
	Config *VotingConfig `json:"config"`
}

func (e *EventVotingConfig) Action() string  { return ActionConfig }
func (e *EventVotingConfig) Address() string { return e.Admin }

func (e *EventVotingConfig) Encode() abci.Event {
	c := e.Config
	attrs := append(topics(ActionConfig, e.Admin),
		abci.EventAttribute{Key: "quorum_bps", Value: fmt.Sprintf("%v", c.QuorumBps), Index: false},
		abci.EventAttribute{Key: "voting_period", Value: fmt.Sprintf("%v", c.VotingPeriod), Index: false},
		abci.EventAttribute{Key: "execution_delay", Value: fmt.Sprintf("%v", c.ExecutionDelay), Index: false},
		abci.EventAttribute{Key: "proposal_threshold", Value: formatInt(c.ProposalThreshold), Index: false},
		abci.EventAttribute{Key: "max_weight_bps", Value: fmt.Sprintf("%v", c.MaxWeightBps), Index: false},
		abci.EventAttribute{Key: "config_version", Value: fmt.Sprintf("%v", c.Version), Index: false},
	)
	return abci.Event{Type: EventVotingConfigType, Attributes: withVersion(attrs)}
}
