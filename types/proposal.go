package types

import (
	"fmt"
	"math/big"
)

const BasisPoints = 10000

type ProposalState uint8

const (
	ProposalStatePending   ProposalState = 0
	ProposalStateActive    ProposalState = 1
	ProposalStateSucceeded ProposalState = 2
	ProposalStateDefeated  ProposalState = 3
	ProposalStateQueued    ProposalState = 4
	ProposalStateExecuted  ProposalState = 5
	ProposalStateCancelled ProposalState = 6
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStatePending:
		return "pending"
	case ProposalStateActive:
		return "active"
	case ProposalStateSucceeded:
		return "succeeded"
	case ProposalStateDefeated:
		return "defeated"
	case ProposalStateQueued:
		return "queued"
	case ProposalStateExecuted:
		return "executed"
	case ProposalStateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Terminal reports whether no further transition is possible.
func (s ProposalState) Terminal() bool {
	return s == ProposalStateDefeated || s == ProposalStateExecuted || s == ProposalStateCancelled
}

type VoteType uint8

const (
	VoteFor     VoteType = 1
	VoteAgainst VoteType = 2
	VoteAbstain VoteType = 3
)

func (v VoteType) Valid() bool {
	return v >= VoteFor && v <= VoteAbstain
}

func (v VoteType) String() string {
	switch v {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

// Proposal is never deleted; once terminal it stays as a historical record.
type Proposal struct {
	Id           uint64 `json:"id"`
	Creator      string `json:"creator"`
	Description  string `json:"description"`
	CreatedAt    uint64 `json:"created_at"`
	VotingEndsAt uint64 `json:"voting_ends_at"`
	// Eta is set once the proposal is queued.
	Eta uint64 `json:"eta"`

	ForWeight     *big.Int `json:"for_weight"`
	AgainstWeight *big.Int `json:"against_weight"`
	AbstainWeight *big.Int `json:"abstain_weight"`

	TotalSupplySnapshot *big.Int `json:"total_supply_snapshot"`
	QuorumBps           uint32   `json:"quorum_bps"`
	MaxWeightBps        uint32   `json:"max_weight_bps"`
	ExecutionDelay      uint64   `json:"execution_delay_seconds"`
	ConfigVersion       uint64   `json:"config_version"`

	ConfigUpdate *VotingConfig `json:"config_update,omitempty"`

	State ProposalState `json:"state"`
}

func (p *Proposal) Clone() *Proposal {
	n := *p
	n.ForWeight = cloneInt(p.ForWeight)
	n.AgainstWeight = cloneInt(p.AgainstWeight)
	n.AbstainWeight = cloneInt(p.AbstainWeight)
	n.TotalSupplySnapshot = cloneInt(p.TotalSupplySnapshot)
	if p.ConfigUpdate != nil {
		n.ConfigUpdate = p.ConfigUpdate.Clone()
	}
	return &n
}

// Participation is the sum of all three tallies.
func (p *Proposal) Participation() *big.Int {
	sum := new(big.Int).Add(orZero(p.ForWeight), orZero(p.AgainstWeight))
	return sum.Add(sum, orZero(p.AbstainWeight))
}

// AddWeight increments the tally that matches vt.
func (p *Proposal) AddWeight(vt VoteType, weight *big.Int) {
	switch vt {
	case VoteFor:
		p.ForWeight = new(big.Int).Add(orZero(p.ForWeight), weight)
	case VoteAgainst:
		p.AgainstWeight = new(big.Int).Add(orZero(p.AgainstWeight), weight)
	case VoteAbstain:
		p.AbstainWeight = new(big.Int).Add(orZero(p.AbstainWeight), weight)
	}
}

// VoteReceipt is immutable once written; at most one exists per (ProposalId, Voter).
type VoteReceipt struct {
	ProposalId uint64   `json:"proposal_id"`
	Voter      string   `json:"voter"`
	VoteType   VoteType `json:"vote_type"`
	Weight     *big.Int `json:"weight"`
	CastAt     uint64   `json:"cast_at"`
}

func (r *VoteReceipt) Clone() *VoteReceipt {
	n := *r
	n.Weight = cloneInt(r.Weight)
	return &n
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
