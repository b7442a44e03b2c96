package agent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/calehh/hac-gov/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const heightRowId = 1

var ErrUnknownProposal = errors.New("unknown proposal")

// ChainClient is the part of the CometBFT RPC the indexer reads.
type ChainClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	db            *gorm.DB
	cli           ChainClient
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	return NewChainIndexerWithDB(logger, db, cli)
}

// NewChainIndexerWithDB migrates db and resumes after the last indexed height.
func NewChainIndexerWithDB(logger cmtlog.Logger, db *gorm.DB, cli ChainClient) (*ChainIndexer, error) {
	if err := db.AutoMigrate(&Height{}, &Account{}, &Proposal{}, &ProposalVote{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: heightRowId}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Height: int64(h.Height + 1),
		db:     db,
		cli:    cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalCreatedType:   c.handleEventCreated,
		types.EventVoteCastType:          c.handleEventVoted,
		types.EventProposalFinalizedType: c.handleEventFinalized,
		types.EventProposalQueuedType:    c.handleEventQueued,
		types.EventProposalExecutedType:  c.handleEventClosed,
		types.EventProposalCancelledType: c.handleEventClosed,
		types.EventRegisterType:          c.handleEventLedger,
		types.EventDepositType:           c.handleEventLedger,
		types.EventRetractType:           c.handleEventLedger,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(tx *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(tx *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(tx, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventCreated(tx *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalCreated(event)
	if ev == nil {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	proposal := Proposal{
		Id:            ev.ProposalId,
		Creator:       ev.Creator,
		Description:   ev.Description,
		State:         uint8(types.ProposalStateActive),
		StateName:     types.ProposalStateActive.String(),
		ForWeight:     "0",
		AgainstWeight: "0",
		AbstainWeight: "0",
		NewHeight:     uint64(height),
	}
	return tx.Save(&proposal).Error
}

func addWeight(cur string, w *big.Int) string {
	n, ok := new(big.Int).SetString(cur, 10)
	if !ok {
		n = new(big.Int)
	}
	return n.Add(n, w).String()
}

func (c *ChainIndexer) handleEventVoted(tx *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVoteCast(event)
	if ev == nil || ev.Weight == nil {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	var proposal Proposal
	if err := tx.First(&proposal, ev.ProposalId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownProposal, ev.ProposalId)
		}
		return err
	}
	switch ev.VoteType {
	case types.VoteFor:
		proposal.ForWeight = addWeight(proposal.ForWeight, ev.Weight)
	case types.VoteAgainst:
		proposal.AgainstWeight = addWeight(proposal.AgainstWeight, ev.Weight)
	case types.VoteAbstain:
		proposal.AbstainWeight = addWeight(proposal.AbstainWeight, ev.Weight)
	}
	proposal.VoteCount++
	vote := ProposalVote{
		Proposal:     ev.ProposalId,
		VoterAddress: ev.Voter,
		VoteType:     uint8(ev.VoteType),
		Weight:       ev.Weight.String(),
		Height:       uint64(height),
	}
	if err := tx.Create(&vote).Error; err != nil {
		return err
	}
	return tx.Save(&proposal).Error
}

func (c *ChainIndexer) updateProposal(tx *gorm.DB, id uint64, update func(p *Proposal)) error {
	var proposal Proposal
	if err := tx.First(&proposal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownProposal, id)
		}
		return err
	}
	update(&proposal)
	return tx.Save(&proposal).Error
}

func (c *ChainIndexer) handleEventFinalized(tx *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalFinalized(event)
	if ev == nil || ev.ForWeight == nil || ev.AgainstWeight == nil || ev.AbstainWeight == nil {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	return c.updateProposal(tx, ev.ProposalId, func(p *Proposal) {
		p.State = uint8(ev.State)
		p.StateName = ev.State.String()
		p.ForWeight = ev.ForWeight.String()
		p.AgainstWeight = ev.AgainstWeight.String()
		p.AbstainWeight = ev.AbstainWeight.String()
		p.FinalizedHeight = uint64(height)
	})
}

func (c *ChainIndexer) handleEventQueued(tx *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalQueued(event)
	if ev == nil {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	return c.updateProposal(tx, ev.ProposalId, func(p *Proposal) {
		p.State = uint8(types.ProposalStateQueued)
		p.StateName = types.ProposalStateQueued.String()
		p.Eta = ev.Eta
	})
}

func (c *ChainIndexer) handleEventClosed(tx *gorm.DB, event abci.Event, height int64) error {
	id, _, ok := types.DecodeProposalTransition(event)
	if !ok {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	state := types.ProposalStateExecuted
	if event.Type == types.EventProposalCancelledType {
		state = types.ProposalStateCancelled
	}
	return c.updateProposal(tx, id, func(p *Proposal) {
		p.State = uint8(state)
		p.StateName = state.String()
		p.ClosedHeight = uint64(height)
	})
}

func (c *ChainIndexer) handleEventLedger(tx *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventLedger(event)
	if ev == nil {
		return fmt.Errorf("decode %s fail", event.Type)
	}
	acc := Account{
		Id:      ev.Account,
		Address: ev.Address,
		Stake:   ev.Stake,
		Height:  uint64(height),
	}
	return tx.Save(&acc).Error
}

// IndexBlock stores the events of one block and the new height in a single
// sqlite transaction, so a failed block is retried from scratch.
func (c *ChainIndexer) IndexBlock(ctx context.Context, height int64) (err error) {
	res, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if err = tx.Error; err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for _, r := range res.TxsResults {
		if r == nil || r.Code != 0 {
			continue
		}
		for _, event := range r.Events {
			if err = c.handleEvent(tx, event, height); err != nil {
				return err
			}
		}
	}
	if err = tx.Save(&Height{Id: heightRowId, Height: uint64(height)}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the latest one the node reports.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for c.Height <= status.SyncInfo.LatestBlockHeight {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.IndexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("index height %d: %w", c.Height, err)
		}
		c.logger.Debug("indexed", "height", c.Height)
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page < 0 {
		page = 0
	}
	return page * pageSize, pageSize
}

// ProposalFilter narrows getProposals. Zero values match everything.
type ProposalFilter struct {
	Creator string
	State   *uint8
}

func (c *ChainIndexer) getProposals(filter ProposalFilter, page int, pageSize int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if filter.Creator != "" {
		q = q.Where("creator = ?", filter.Creator)
	}
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageBounds(page, pageSize)
	proposals := make([]Proposal, 0)
	if err := q.Order("id desc").Offset(offset).Limit(limit).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (*Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", proposalId).First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

func (c *ChainIndexer) getVotes(proposal uint64, voter string, page int, pageSize int) ([]ProposalVote, uint64, error) {
	q := c.db.Model(&ProposalVote{})
	if proposal != 0 {
		q = q.Where("proposal = ?", proposal)
	}
	if voter != "" {
		q = q.Where("voter_address = ?", voter)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageBounds(page, pageSize)
	votes := make([]ProposalVote, 0)
	if err := q.Order("id asc").Offset(offset).Limit(limit).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getAccountByAddress(address string) (*Account, error) {
	var acc Account
	err := c.db.Where("address = ?", address).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}
