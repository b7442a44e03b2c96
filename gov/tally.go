package gov

import (
	"math/big"

	"github.com/calehh/hac-gov/types"
)

var bpsDenom = big.NewInt(types.BasisPoints)

// QuorumReached reports participation*10000 >= supply*quorumBps.
func QuorumReached(participation, supply *big.Int, quorumBps uint32) bool {
	lhs := new(big.Int).Mul(participation, bpsDenom)
	rhs := new(big.Int).Mul(supply, big.NewInt(int64(quorumBps)))
	return lhs.Cmp(rhs) >= 0
}

// Outcome decides Succeeded or Defeated from the tallies and the supply snapshot
// taken at creation.
func Outcome(p *types.Proposal) types.ProposalState {
	forW, againstW := p.ForWeight, p.AgainstWeight
	if forW == nil {
		forW = new(big.Int)
	}
	if againstW == nil {
		againstW = new(big.Int)
	}
	supply := p.TotalSupplySnapshot
	if supply == nil {
		supply = new(big.Int)
	}
	if forW.Cmp(againstW) > 0 && QuorumReached(p.Participation(), supply, p.QuorumBps) {
		return types.ProposalStateSucceeded
	}
	return types.ProposalStateDefeated
}

// ClampWeight caps weight at supply*maxBps/10000. maxBps == 0 disables the cap.
func ClampWeight(weight, supply *big.Int, maxBps uint32) *big.Int {
	if maxBps == 0 {
		return new(big.Int).Set(weight)
	}
	limit := new(big.Int).Mul(supply, big.NewInt(int64(maxBps)))
	limit.Quo(limit, bpsDenom)
	if weight.Cmp(limit) > 0 {
		return limit
	}
	return new(big.Int).Set(weight)
}
