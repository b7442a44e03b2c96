package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// Account mirrors a savings ledger member.
type Account struct {
	Id      uint64 `gorm:"primary_key" json:"id"`
	Address string `gorm:"index" json:"address"`
	Stake   uint64 `json:"stake"`
	Height  uint64 `json:"height"`
}

// Proposal is rebuilt from gov events. Weights are decimal strings because
// sqlite has no big integer type.
type Proposal struct {
	Id              uint64 `gorm:"primary_key" json:"id"`
	Creator         string `gorm:"index" json:"creator"`
	Description     string `json:"description"`
	State           uint8  `gorm:"index" json:"state"`
	StateName       string `json:"state_name"`
	ForWeight       string `json:"for_weight"`
	AgainstWeight   string `json:"against_weight"`
	AbstainWeight   string `json:"abstain_weight"`
	VoteCount       uint64 `json:"vote_count"`
	Eta             uint64 `json:"eta"`
	NewHeight       uint64 `json:"new_height"`
	FinalizedHeight uint64 `json:"finalized_height"`
	ClosedHeight    uint64 `json:"closed_height"`
}

type ProposalVote struct {
	Id           uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Proposal     uint64 `gorm:"index" json:"proposal"`
	VoterAddress string `gorm:"index" json:"voter_address"`
	VoteType     uint8  `json:"vote_type"`
	Weight       string `json:"weight"`
	Height       uint64 `json:"height"`
}
