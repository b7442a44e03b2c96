package types

import (
	"errors"
	"fmt"
	"math/big"
)

const DefaultMaxDescriptionLen = 1000

// Caps on the configurable windows, in seconds.
const (
	MaxVotingPeriod   uint64 = 10 * 365 * 24 * 3600
	MaxExecutionDelay uint64 = 10 * 365 * 24 * 3600
)

var ErrInvalidVotingConfig = errors.New("invalid voting config")

// VotingConfig governs every proposal created while it is in force. Proposals
// snapshot the fields they depend on, so a later change never alters a running vote.
type VotingConfig struct {
	QuorumBps         uint32   `json:"quorum_bps" mapstructure:"quorum_bps"`
	VotingPeriod      uint64   `json:"voting_period_seconds" mapstructure:"voting_period_seconds"`
	ExecutionDelay    uint64   `json:"execution_delay_seconds" mapstructure:"execution_delay_seconds"`
	ProposalThreshold *big.Int `json:"proposal_threshold" mapstructure:"-"`
	MaxWeightBps      uint32   `json:"max_weight_bps" mapstructure:"max_weight_bps"`
	MaxDescriptionLen uint32   `json:"max_description_len" mapstructure:"max_description_len"`
	Version           uint64   `json:"version" mapstructure:"-"`
}

func DefaultVotingConfig() *VotingConfig {
	return &VotingConfig{
		QuorumBps:         5000,
		VotingPeriod:      604800,
		ExecutionDelay:    86400,
		ProposalThreshold: big.NewInt(100),
		MaxWeightBps:      0,
		MaxDescriptionLen: DefaultMaxDescriptionLen,
	}
}

func (c *VotingConfig) Validate() error {
	if c.QuorumBps > BasisPoints {
		return fmt.Errorf("%w: quorum_bps %d exceeds %d", ErrInvalidVotingConfig, c.QuorumBps, BasisPoints)
	}
	if c.MaxWeightBps > BasisPoints {
		return fmt.Errorf("%w: max_weight_bps %d exceeds %d", ErrInvalidVotingConfig, c.MaxWeightBps, BasisPoints)
	}
	if c.VotingPeriod == 0 {
		return fmt.Errorf("%w: voting period is zero", ErrInvalidVotingConfig)
	}
	if c.VotingPeriod > MaxVotingPeriod {
		return fmt.Errorf("%w: voting period %d exceeds %d", ErrInvalidVotingConfig, c.VotingPeriod, MaxVotingPeriod)
	}
	if c.ExecutionDelay > MaxExecutionDelay {
		return fmt.Errorf("%w: execution delay %d exceeds %d", ErrInvalidVotingConfig, c.ExecutionDelay, MaxExecutionDelay)
	}
	if c.ProposalThreshold == nil || c.ProposalThreshold.Sign() < 0 {
		return fmt.Errorf("%w: proposal threshold must be non-negative", ErrInvalidVotingConfig)
	}
	if c.MaxDescriptionLen == 0 {
		return fmt.Errorf("%w: max description length is zero", ErrInvalidVotingConfig)
	}
	return nil
}

func (c *VotingConfig) Clone() *VotingConfig {
	n := *c
	n.ProposalThreshold = cloneInt(c.ProposalThreshold)
	return &n
}
