package state

import (
	"container/heap"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/calehh/hac-gov/config"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abci_types "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
	ModifiedFlagPK  = 1 << 2

	MaxValidators = 100
)

var (
	KeyState         = "s"
	KeyAccountIndex  = "i%s"
	KeyAccountPrefix = "a/"
	KeyAccountBody   = KeyAccountPrefix + "%x"
	KeyProposalBody  = "p%d"
	KeyProposalIndex = "pi"
	KeyReceipt       = "r%d/%s"
	KeyVotingConfig  = "vc"
	KeyAdmin         = "admin"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrTxValidatorNoexists  = errors.New("validator noexists")
	ErrTxNotMembership      = errors.New("not membership")
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
	ErrInvalidPubKey        = errors.New("invalid pubkey")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientStake    = errors.New("insufficient stake")
)

type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header     *StateHeader
	validators []abci_types.ValidatorUpdate
	idxs       map[string]uint64
	acnts      map[uint64]*Account

	modifiedAcnts    map[uint64]uint32
	proposalMaxIndex uint64
	modProposals     map[uint64]*types.Proposal
	newReceipts      map[string]*types.VoteReceipt
	votingConfig     *types.VotingConfig
	configModified   bool
	admin            string
	adminModified    bool
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		header:        new(StateHeader),
		validators:    []abci_types.ValidatorUpdate{},
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		modProposals:  make(map[uint64]*types.Proposal),
		newReceipts:   make(map[string]*types.VoteReceipt),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := newState(s.db, s.logger)
	n.dbVer = s.dbVer
	n.proposalMaxIndex = s.proposalMaxIndex
	n.validators = deepCopySlice(s.validators)
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		switch x := any(v).(type) {
		case *Account:
			res[k] = any(x.Clone()).(V)
		case *types.Proposal:
			res[k] = any(x.Clone()).(V)
		case *types.VoteReceipt:
			res[k] = any(x.Clone()).(V)
		default:
			res[k] = v
		}
	}
	return res
}

func deepCopySlice[E any](source []E) []E {
	res := make([]E, len(source))
	if len(source) == 0 {
		return res
	}
	for idx, ele := range source {
		switch e := any(ele).(type) {
		case abci_types.ValidatorUpdate:
			b, _ := e.Marshal()
			eleClone := abci_types.ValidatorUpdate{}
			_ = eleClone.Unmarshal(b)
			res[idx] = any(eleClone).(E)
		default:
			copy(res, source)
			return res
		}
	}
	return res
}

// Clone copies every staged change so a tx can be applied and thrown away.
// The tree itself is shared; nothing touches it before Update.
func (s *State) Clone() *State {
	n := &State{
		logger:           s.logger,
		db:               s.db,
		dbVer:            s.dbVer,
		header:           s.header.Clone(),
		validators:       deepCopySlice(s.validators),
		idxs:             deepCopyMap(s.idxs),
		acnts:            deepCopyMap(s.acnts),
		modifiedAcnts:    deepCopyMap(s.modifiedAcnts),
		proposalMaxIndex: s.proposalMaxIndex,
		modProposals:     deepCopyMap(s.modProposals),
		newReceipts:      deepCopyMap(s.newReceipts),
		configModified:   s.configModified,
		admin:            s.admin,
		adminModified:    s.adminModified,
	}
	if s.votingConfig != nil {
		n.votingConfig = s.votingConfig.Clone()
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyProposalIndex))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.proposalMaxIndex = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = rlp.DecodeBytes(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = make([]byte, len(rootHash))
		copy(s.header.RootHash, rootHash)
		s.header.Hash = make([]byte, len(h))
		copy(s.header.Hash, h[:])
	}
	return
}

// Update flushes staged changes into the working tree in a fixed order and
// returns the resulting app hash. The tree is rolled back on failure.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = rlp.EncodeToBytes(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if s.adminModified {
		_, err = s.db.Set([]byte(KeyAdmin), []byte(s.admin))
		if err != nil {
			return
		}
	}
	if s.configModified && s.votingConfig != nil {
		val, err = json.Marshal(s.votingConfig)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(KeyVotingConfig), val)
		if err != nil {
			return
		}
	}

	if len(s.modProposals) > 0 {
		_, err = s.db.Set([]byte(KeyProposalIndex), new(big.Int).SetUint64(s.proposalMaxIndex).Bytes())
		if err != nil {
			return
		}
		ids := make([]uint64, 0, len(s.modProposals))
		for id := range s.modProposals {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return ids[i] < ids[j]
		})
		for _, id := range ids {
			val, err = encodeProposal(s.modProposals[id])
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(fmt.Sprintf(KeyProposalBody, id)), val)
			if err != nil {
				return
			}
		}
	}

	if len(s.newReceipts) > 0 {
		keys := make([]string, 0, len(s.newReceipts))
		for k := range s.newReceipts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val, err = encodeReceipt(s.newReceipts[k])
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(k), val)
			if err != nil {
				return
			}
		}
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, n)
		i := 0
		for idx := range s.modifiedAcnts {
			idxs[i] = idx
			i += 1
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			val, err = rlp.EncodeToBytes(acnt)
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
			if (flag&ModifiedFlagNew == ModifiedFlagNew) || (flag&ModifiedFlagPK == ModifiedFlagPK) {
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	s.modProposals = make(map[uint64]*types.Proposal)
	s.newReceipts = make(map[string]*types.VoteReceipt)
	s.configModified = false
	s.adminModified = false
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Account)
	err = rlp.DecodeBytes(val, acnt)
	if err != nil {
		return nil, err
	}
	s.acnts[idx] = acnt
	return
}

func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	return s.FindAccountByAddress(cmtcrypto.Address(addr).String())
}

// FindAccountByAddress looks an account up by its upper-case hex address.
// It returns nil without error when there is none.
func (s *State) FindAccountByAddress(saddr string) (acnt *Account, err error) {
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)

	return
}

func (s *State) ValidatorAccounts() (acounts []*Account, height uint64, err error) {
	vals := s.validators
	for _, val := range vals {
		pk := ed25519.PubKey(val.PubKey.GetEd25519()[:])
		addr := pk.Address()[:]
		act, _ := s.FindAccount(addr)
		if act != nil {
			acounts = append(acounts, act)
		}
	}
	height = s.header.Height
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetBlock records the height and the consensus time (unix seconds) of the
// block being executed. Governance reads "now" from here.
func (s *State) SetBlock(height, t uint64) {
	s.header.Height = height
	s.header.Time = t
}

func (s *State) Now() uint64 {
	return s.header.Time
}

func (s *State) modify(a *Account, flag uint32) {
	v := s.modifiedAcnts[a.Index]
	v |= flag
	s.modifiedAcnts[a.Index] = v
	s.acnts[a.Index] = a.Clone()
}

func (s *State) AddAccount(acnt *Account) (err error) {
	if len(acnt.PubKey) != ed25519.PubKeySize {
		return ErrInvalidPubKey
	}
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	if acnt.Stake > math.MaxUint64-s.header.TotalStake {
		return ErrInvalidAmount
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.header.TotalStake += acnt.Stake
	s.idxs[acnt.Address()] = acnt.Index
	s.modify(acnt, ModifiedFlagNew)
	return
}

func (s *State) Verify(btx *tx.HACTx, allowNonceGap bool) (succ bool, err error) {
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	if rtx, ok := btx.Tx.(*tx.RegisterTx); ok {
		if len(rtx.PubKey) != ed25519.PubKeySize {
			return false, ErrInvalidPubKey
		}
		if btx.Nonce != 0 {
			return false, ErrTxNonceInvalid
		}
		a := &Account{PubKey: rtx.PubKey}
		succ = a.Verify(dat, btx.Sig)
		if !succ {
			err = ErrTxSigInvalid
		}
		return
	}
	a, err := s.GetAccount(btx.Validator)
	if err != nil {
		return succ, err
	}
	if a == nil {
		err = ErrTxValidatorNoexists
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	succ = a.Verify(dat, btx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

// Signer resolves the account behind a verified tx.
func (s *State) Signer(validator uint64) (*Account, error) {
	a, err := s.GetAccount(validator)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrTxValidatorNoexists
	}
	return a, nil
}

// IncNonce consumes the signer's nonce after a successful tx.
func (s *State) IncNonce(validator uint64) error {
	a, err := s.Signer(validator)
	if err != nil {
		return err
	}
	a.Nonce += 1
	s.modify(a, ModifiedFlagMod)
	return nil
}

func (s *State) Register(rtx *tx.RegisterTx, checkOnly bool) (event *types.EventLedger, err error) {
	s.logger.Debug("apply register", "height", s.header.Height)
	acnt := &Account{Name: rtx.Name}
	acnt.SetPubKey(rtx.PubKey)
	if len(acnt.PubKey) != ed25519.PubKeySize {
		return nil, ErrInvalidPubKey
	}
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return nil, err
	}
	if a != nil {
		return nil, ErrAccountAlreadyExists
	}
	if checkOnly {
		return
	}
	err = s.AddAccount(acnt)
	if err != nil {
		return nil, err
	}
	event = &types.EventLedger{
		Type:    types.EventRegisterType,
		Account: acnt.Index,
		Address: acnt.Address(),
	}
	return
}

func (s *State) Deposit(dtx *tx.DepositTx, validator uint64, checkOnly bool) (event *types.EventLedger, err error) {
	s.logger.Debug("apply deposit", "validator", validator, "amount", dtx.Amount, "height", s.header.Height)
	a, err := s.Signer(validator)
	if err != nil {
		return nil, err
	}
	if dtx.Amount == 0 || dtx.Amount > math.MaxUint64-s.header.TotalStake {
		return nil, ErrInvalidAmount
	}
	if checkOnly {
		return
	}
	a.Stake += dtx.Amount
	a.Nonce += 1
	s.header.TotalStake += dtx.Amount
	s.modify(a, ModifiedFlagMod)
	event = &types.EventLedger{
		Type:    types.EventDepositType,
		Account: validator,
		Address: a.Address(),
		Amount:  dtx.Amount,
		Stake:   a.Stake,
	}
	return
}

func (s *State) Retract(rtx *tx.RetractTx, validator uint64, checkOnly bool) (event *types.EventLedger, err error) {
	s.logger.Debug("apply retract", "validator", validator, "amount", rtx.Amount, "height", s.header.Height)
	a, err := s.Signer(validator)
	if err != nil {
		return nil, err
	}
	if a.Stake == 0 {
		err = ErrTxNotMembership
		return
	}
	if rtx.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if rtx.Amount > a.Stake {
		return nil, ErrInsufficientStake
	}
	if checkOnly {
		return
	}
	a.Stake -= rtx.Amount
	a.Nonce += 1
	s.header.TotalStake -= rtx.Amount
	s.modify(a, ModifiedFlagMod)
	event = &types.EventLedger{
		Type:    types.EventRetractType,
		Account: validator,
		Address: a.Address(),
		Amount:  rtx.Amount,
		Stake:   a.Stake,
	}
	return
}

func (s *State) Validators() (updateVals map[string]abci_types.ValidatorUpdate, err error) {
	updateVals = make(map[string]abci_types.ValidatorUpdate, 0)
	start := []byte(KeyAccountPrefix)
	end := PrefixEndBytes(start)
	aIterator, err := s.db.Iterator(start, end, true)
	if err != nil {
		return nil, err
	}
	defer aIterator.Close()

	valsQueue := &PowerQueue{}
	heap.Init(valsQueue)
	for ; aIterator.Valid(); aIterator.Next() {
		var act Account
		err = rlp.DecodeBytes(aIterator.Value(), &act)
		if err != nil {
			return nil, err
		}
		power := config.PowerPerStake(act.Stake, s.header.Height)
		if power > 0 {
			heap.Push(valsQueue, validatorWithPower{
				Index:  act.Index,
				Pubkey: act.PubKey,
				Power:  power,
			})
		}
	}

	vals := make([]abci_types.ValidatorUpdate, 0)
	for valsQueue.Len() > 0 && len(vals) < MaxValidators {
		val := heap.Pop(valsQueue).(validatorWithPower)
		vals = append(vals, abci_types.Ed25519ValidatorUpdate(val.Pubkey, val.Power))
	}
	s.validators = vals

	for _, val := range vals {
		updateVals[val.PubKey.String()] = val
	}

	return updateVals, nil
}

// ValidatorsUpdate diffs the stake-derived set against curVals. An empty next
// set would halt the chain, so it is never applied.
func (s *State) ValidatorsUpdate(curVals map[string]abci_types.ValidatorUpdate) (updateVals []abci_types.ValidatorUpdate, err error) {
	nextVals, err := s.Validators()
	if err != nil {
		return nil, err
	}
	if len(nextVals) == 0 {
		s.logger.Error("stake-derived validator set is empty, keeping current set")
		return nil, nil
	}

	for key, val := range nextVals {
		if v, ok := curVals[key]; ok {
			if v.Power != val.Power {
				updateVals = append(updateVals, val)
			}
		} else {
			updateVals = append(updateVals, val)
		}
	}

	for key, curVal := range curVals {
		if _, ok := nextVals[key]; !ok {
			curVal.Power = 0
			updateVals = append(updateVals, curVal)
		}
	}
	sort.Slice(updateVals, func(i, j int) bool {
		return updateVals[i].PubKey.String() < updateVals[j].PubKey.String()
	})
	return
}

type validatorWithPower struct {
	Index  uint64
	Pubkey []byte
	Power  int64
}

type PowerQueue []validatorWithPower

func (pq PowerQueue) Len() int { return len(pq) }

func (pq PowerQueue) Less(i, j int) bool {
	if pq[i].Power == pq[j].Power {
		return pq[i].Index < pq[j].Index
	}
	return pq[i].Power > pq[j].Power
}

func (pq PowerQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *PowerQueue) Push(x any) {
	item := x.(validatorWithPower)
	*pq = append(*pq, item)
}

func (pq *PowerQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
