package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	_ gov.Store       = (*State)(nil)
	_ gov.PowerOracle = (*State)(nil)
)

func encodeProposal(p *types.Proposal) ([]byte, error) {
	return json.Marshal(p)
}

func decodeProposal(val []byte) (*types.Proposal, error) {
	p := new(types.Proposal)
	if err := json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeReceipt(r *types.VoteReceipt) ([]byte, error) {
	return rlp.EncodeToBytes(r)
}

func decodeReceipt(val []byte) (*types.VoteReceipt, error) {
	r := new(types.VoteReceipt)
	if err := rlp.DecodeBytes(val, r); err != nil {
		return nil, err
	}
	return r, nil
}

func receiptKey(id uint64, voter string) string {
	return fmt.Sprintf(KeyReceipt, id, voter)
}

// get treats a missing key as nil without error.
func (s *State) get(key string) ([]byte, error) {
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) NextProposalId() (uint64, error) {
	return s.proposalMaxIndex + 1, nil
}

func (s *State) ProposalCount() uint64 {
	return s.proposalMaxIndex
}

func (s *State) GetProposal(id uint64) (*types.Proposal, error) {
	if p, ok := s.modProposals[id]; ok {
		return p.Clone(), nil
	}
	if id == 0 || id > s.proposalMaxIndex {
		return nil, nil
	}
	val, err := s.get(fmt.Sprintf(KeyProposalBody, id))
	if err != nil || val == nil {
		return nil, err
	}
	return decodeProposal(val)
}

func (s *State) CreateProposal(p *types.Proposal) error {
	if p.Id != s.proposalMaxIndex+1 {
		return fmt.Errorf("proposal id %d, expected %d", p.Id, s.proposalMaxIndex+1)
	}
	s.proposalMaxIndex = p.Id
	s.modProposals[p.Id] = p.Clone()
	return nil
}

func (s *State) UpdateProposal(p *types.Proposal) error {
	old, err := s.GetProposal(p.Id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("%w: proposal %d", gov.ErrNotFound, p.Id)
	}
	s.modProposals[p.Id] = p.Clone()
	return nil
}

func (s *State) GetReceipt(id uint64, voter string) (*types.VoteReceipt, error) {
	key := receiptKey(id, voter)
	if r, ok := s.newReceipts[key]; ok {
		return r.Clone(), nil
	}
	val, err := s.get(key)
	if err != nil || val == nil {
		return nil, err
	}
	return decodeReceipt(val)
}

func (s *State) RecordVote(p *types.Proposal, r *types.VoteReceipt) error {
	existing, err := s.GetReceipt(r.ProposalId, r.Voter)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s on proposal %d", gov.ErrAlreadyVoted, r.Voter, r.ProposalId)
	}
	if err = s.UpdateProposal(p); err != nil {
		return err
	}
	s.newReceipts[receiptKey(r.ProposalId, r.Voter)] = r.Clone()
	return nil
}

func (s *State) VotingConfig() (*types.VotingConfig, error) {
	if s.votingConfig != nil {
		return s.votingConfig.Clone(), nil
	}
	val, err := s.get(KeyVotingConfig)
	if err != nil || val == nil {
		return nil, err
	}
	cfg := new(types.VotingConfig)
	if err = json.Unmarshal(val, cfg); err != nil {
		return nil, err
	}
	s.votingConfig = cfg
	return cfg.Clone(), nil
}

func (s *State) SetVotingConfig(cfg *types.VotingConfig) error {
	s.votingConfig = cfg.Clone()
	s.configModified = true
	return nil
}

func (s *State) Admin() (string, error) {
	if s.adminModified {
		return s.admin, nil
	}
	val, err := s.get(KeyAdmin)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (s *State) SetAdmin(admin string) {
	s.admin = strings.ToUpper(admin)
	s.adminModified = true
}

// PowerOf is the account's current locked stake. The ledger keeps no history,
// so at is ignored; the supply snapshot on each proposal bounds its quorum.
func (s *State) PowerOf(address string, at uint64) (*big.Int, error) {
	a, err := s.FindAccountByAddress(strings.ToUpper(address))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return new(big.Int), nil
	}
	return a.Power(), nil
}

func (s *State) TotalPower(at uint64) (*big.Int, error) {
	return new(big.Int).SetUint64(s.header.TotalStake), nil
}
