package gov

import (
	"math/big"

	"github.com/calehh/hac-gov/types"
)

// Store owns proposals and vote receipts. Lookups return (nil, nil) when the
// record does not exist.
type Store interface {
	NextProposalId() (uint64, error)
	GetProposal(id uint64) (*types.Proposal, error)
	// CreateProposal persists p and advances the id counter past p.Id.
	CreateProposal(p *types.Proposal) error
	UpdateProposal(p *types.Proposal) error

	GetReceipt(id uint64, voter string) (*types.VoteReceipt, error)
	// RecordVote writes the receipt and the updated tally as one step. It fails
	// with ErrAlreadyVoted if a receipt for (r.ProposalId, r.Voter) exists.
	RecordVote(p *types.Proposal, r *types.VoteReceipt) error

	VotingConfig() (*types.VotingConfig, error)
	SetVotingConfig(cfg *types.VotingConfig) error
	Admin() (string, error)
}

// PowerOracle reads voting power from the savings ledger.
type PowerOracle interface {
	PowerOf(address string, at uint64) (*big.Int, error)
	TotalPower(at uint64) (*big.Int, error)
}

// Authorizer is the capability check for a single call.
type Authorizer interface {
	// Authorized reports whether address signed the current call.
	Authorized(address string) bool
	IsAdmin(address string) bool
}

type EventSink interface {
	Emit(ev types.GovEvent)
}
