package gov

import (
	"fmt"
	"sync"

	"github.com/calehh/hac-gov/types"
)

type receiptKey struct {
	id    uint64
	voter string
}

// MemStore is an in-memory Store. Records are copied on the way in and out.
type MemStore struct {
	mtx sync.RWMutex

	nextId    uint64
	proposals map[uint64]*types.Proposal
	receipts  map[receiptKey]*types.VoteReceipt
	config    *types.VotingConfig
	admin     string
}

func NewMemStore(admin string) *MemStore {
	return &MemStore{
		nextId:    1,
		proposals: make(map[uint64]*types.Proposal),
		receipts:  make(map[receiptKey]*types.VoteReceipt),
		admin:     admin,
	}
}

func (s *MemStore) NextProposalId() (uint64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.nextId, nil
}

func (s *MemStore) GetProposal(id uint64) (*types.Proposal, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *MemStore) CreateProposal(p *types.Proposal) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if p.Id != s.nextId {
		return fmt.Errorf("proposal id %d, expected %d", p.Id, s.nextId)
	}
	s.proposals[p.Id] = p.Clone()
	s.nextId += 1
	return nil
}

func (s *MemStore) UpdateProposal(p *types.Proposal) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.proposals[p.Id]; !ok {
		return fmt.Errorf("%w: proposal %d", ErrNotFound, p.Id)
	}
	s.proposals[p.Id] = p.Clone()
	return nil
}

func (s *MemStore) GetReceipt(id uint64, voter string) (*types.VoteReceipt, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	r, ok := s.receipts[receiptKey{id, voter}]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (s *MemStore) RecordVote(p *types.Proposal, r *types.VoteReceipt) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	key := receiptKey{r.ProposalId, r.Voter}
	if _, ok := s.receipts[key]; ok {
		return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, r.Voter, r.ProposalId)
	}
	if _, ok := s.proposals[p.Id]; !ok {
		return fmt.Errorf("%w: proposal %d", ErrNotFound, p.Id)
	}
	s.receipts[key] = r.Clone()
	s.proposals[p.Id] = p.Clone()
	return nil
}

func (s *MemStore) VotingConfig() (*types.VotingConfig, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	return s.config.Clone(), nil
}

func (s *MemStore) SetVotingConfig(cfg *types.VotingConfig) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.config = cfg.Clone()
	return nil
}

func (s *MemStore) Admin() (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.admin, nil
}
