package state

import (
	"math/big"
	"testing"

	"github.com/calehh/hac-gov/config"
	"github.com/calehh/hac-gov/gov"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	dbm "github.com/cosmos/iavl/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "hac-test"

type member struct {
	priv ed25519.PrivKey
	addr string
	idx  uint64
}

func newMember() *member {
	priv := ed25519.GenPrivKey()
	return &member{priv: priv, addr: priv.PubKey().Address().String()}
}

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	return db
}

func commit(t *testing.T, db *StateDB, st *State) {
	t.Helper()
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
}

// genesis stores one account per member with the given stakes.
func genesis(t *testing.T, db *StateDB, members []*member, stakes []uint64) {
	t.Helper()
	st := db.NewState()
	st.SetChainId(testChainId)
	for i, m := range members {
		a := &Account{Stake: stakes[i]}
		a.SetPubKey(m.priv.PubKey().Bytes())
		require.NoError(t, st.AddAccount(a))
		m.idx = a.Index
	}
	commit(t, db, st)
}

func TestAccountLifecycle(t *testing.T) {
	db := newTestDB(t)
	alice, bob := newMember(), newMember()
	genesis(t, db, []*member{alice}, []uint64{1000})

	st := db.NewState()
	assert.Equal(t, uint64(1000), st.Header().TotalStake)

	ev, err := st.Register(&tx.RegisterTx{PubKey: bob.priv.PubKey().Bytes(), Name: "bob"}, false)
	require.NoError(t, err)
	require.NotNil(t, ev)
	bob.idx = ev.Account
	assert.Equal(t, bob.addr, ev.Address)

	_, err = st.Register(&tx.RegisterTx{PubKey: bob.priv.PubKey().Bytes()}, true)
	require.ErrorIs(t, err, ErrAccountAlreadyExists)

	_, err = st.Deposit(&tx.DepositTx{Amount: 400}, bob.idx, false)
	require.NoError(t, err)
	_, err = st.Retract(&tx.RetractTx{Amount: 500}, bob.idx, false)
	require.ErrorIs(t, err, ErrInsufficientStake)
	_, err = st.Retract(&tx.RetractTx{Amount: 0}, bob.idx, false)
	require.ErrorIs(t, err, ErrInvalidAmount)
	ev, err = st.Retract(&tx.RetractTx{Amount: 150}, bob.idx, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), ev.Stake)
	commit(t, db, st)

	a, _, err := db.GetAccountByAddress(bob.priv.PubKey().Address())
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, uint64(250), a.Stake)
	assert.Equal(t, uint64(2), a.Nonce)
	assert.Equal(t, "bob", a.Name)
	assert.Equal(t, uint64(1250), db.Header().TotalStake)

	power, err := db.State().PowerOf(bob.addr, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(250), power.Int64())
	power, err = db.State().PowerOf(newMember().addr, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), power.Int64())
}

func TestVerify(t *testing.T) {
	db := newTestDB(t)
	alice, bob := newMember(), newMember()
	genesis(t, db, []*member{alice}, []uint64{1000})
	st := db.State()

	btx := &tx.HACTx{Version: tx.HACTxVersion1, Type: tx.HACTxTypeDeposit, Validator: alice.idx, Tx: &tx.DepositTx{Amount: 5}}
	require.NoError(t, btx.Sign(testChainId, alice.priv.Sign))
	ok, err := st.Verify(btx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, btx.Sign(testChainId, bob.priv.Sign))
	_, err = st.Verify(btx, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)

	btx.Nonce = 4
	require.NoError(t, btx.Sign(testChainId, alice.priv.Sign))
	_, err = st.Verify(btx, false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	_, err = st.Verify(btx, true)
	require.NoError(t, err)

	reg := &tx.HACTx{Version: tx.HACTxVersion1, Type: tx.HACTxTypeRegister, Tx: &tx.RegisterTx{PubKey: bob.priv.PubKey().Bytes()}}
	require.NoError(t, reg.Sign(testChainId, bob.priv.Sign))
	_, err = st.Verify(reg, false)
	require.NoError(t, err)
	require.NoError(t, reg.Sign(testChainId, alice.priv.Sign))
	_, err = st.Verify(reg, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)
}

func govEnv(st *State, signer, admin string) *gov.Env {
	cfg, _ := st.VotingConfig()
	return &gov.Env{
		Now:    st.Now(),
		Config: cfg,
		Auth:   gov.SignerAuthorizer{Signer: signer, Admin: admin},
		Events: gov.NewCollectSink(),
	}
}

func TestGovernanceAcrossBlocks(t *testing.T) {
	db := newTestDB(t)
	admin, creator, voter := newMember(), newMember(), newMember()
	genesis(t, db, []*member{admin, creator, voter}, []uint64{3500, 500, 6000})

	st := db.NewState()
	st.SetAdmin(admin.addr)
	st.SetBlock(2, 1000)
	engine := gov.NewEngine(st, st, cmtlog.NewNopLogger())
	require.NoError(t, engine.InitVotingConfig(govEnv(st, admin.addr, admin.addr), admin.addr, types.DefaultVotingConfig()))
	id, err := engine.CreateProposal(govEnv(st, creator.addr, admin.addr), creator.addr, "raise cap")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	commit(t, db, st)

	st = db.NewState()
	st.SetBlock(3, 1100)
	engine = gov.NewEngine(st, st, cmtlog.NewNopLogger())
	w, err := engine.Vote(govEnv(st, voter.addr, admin.addr), id, types.VoteFor, voter.addr)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), w.Int64())
	_, err = engine.Vote(govEnv(st, voter.addr, admin.addr), id, types.VoteFor, voter.addr)
	require.ErrorIs(t, err, gov.ErrAlreadyVoted)
	commit(t, db, st)

	p, _, err := db.GetProposal(id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(6000), p.ForWeight.Int64())
	assert.Equal(t, int64(10000), p.TotalSupplySnapshot.Int64())
	assert.Equal(t, uint64(1000+604800), p.VotingEndsAt)

	r, _, err := db.GetReceipt(id, voter.addr)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, types.VoteFor, r.VoteType)
	assert.Equal(t, int64(6000), r.Weight.Int64())

	st = db.NewState()
	st.SetBlock(4, 1000+604800)
	engine = gov.NewEngine(st, st, cmtlog.NewNopLogger())
	_, err = engine.Vote(govEnv(st, creator.addr, admin.addr), id, types.VoteFor, creator.addr)
	require.ErrorIs(t, err, gov.ErrVotingClosed)
	state, err := engine.Finalize(govEnv(st, creator.addr, admin.addr), id, creator.addr)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStateSucceeded, state)
	commit(t, db, st)

	cfg, gotAdmin, _, err := db.GetVotingConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.Version)
	assert.Equal(t, admin.addr, gotAdmin)

	next, err := db.State().NextProposalId()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestCloneIsolation(t *testing.T) {
	db := newTestDB(t)
	admin, voter := newMember(), newMember()
	genesis(t, db, []*member{admin, voter}, []uint64{1000, 1000})

	st := db.NewState()
	st.SetAdmin(admin.addr)
	engine := gov.NewEngine(st, st, cmtlog.NewNopLogger())
	require.NoError(t, engine.InitVotingConfig(govEnv(st, admin.addr, admin.addr), admin.addr, types.DefaultVotingConfig()))
	id, err := engine.CreateProposal(govEnv(st, admin.addr, admin.addr), admin.addr, "x")
	require.NoError(t, err)

	tmp := st.Clone()
	tmpEngine := gov.NewEngine(tmp, tmp, cmtlog.NewNopLogger())
	_, err = tmpEngine.Vote(govEnv(tmp, voter.addr, admin.addr), id, types.VoteAgainst, voter.addr)
	require.NoError(t, err)

	p, err := st.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.AgainstWeight.Int64())
	r, err := st.GetReceipt(id, voter.addr)
	require.NoError(t, err)
	assert.Nil(t, r)

	p, err = tmp.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), p.AgainstWeight.Int64())
}

func TestAppHashDeterministic(t *testing.T) {
	members := []*member{newMember(), newMember(), newMember()}
	run := func() []byte {
		db := newTestDB(t)
		genesis(t, db, members, []uint64{100, 200, 300})
		st := db.NewState()
		st.SetAdmin(members[0].addr)
		require.NoError(t, st.SetVotingConfig(types.DefaultVotingConfig()))
		for _, m := range members {
			_, err := st.Deposit(&tx.DepositTx{Amount: 7}, m.idx, false)
			require.NoError(t, err)
		}
		commit(t, db, st)
		return db.Header().Hash
	}
	h1 := run()
	h2 := run()
	require.NotEmpty(t, h1)
	assert.Equal(t, h1, h2)
}

func TestReload(t *testing.T) {
	mem := dbm.NewMemDB()
	db, err := openStateDB(mem, "", cmtlog.NewNopLogger())
	require.NoError(t, err)
	alice := newMember()
	genesis(t, db, []*member{alice}, []uint64{500})

	st := db.NewState()
	require.NoError(t, st.CreateProposal(&types.Proposal{Id: 1, Creator: alice.addr, Description: "x", State: types.ProposalStateActive}))
	commit(t, db, st)
	hash := db.Header().Hash

	reopened, err := openStateDB(mem, "", cmtlog.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, hash, reopened.Header().Hash)
	assert.Equal(t, testChainId, reopened.Header().ChainId)
	next, err := reopened.State().NextProposalId()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
	p, _, err := reopened.GetProposal(1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, alice.addr, p.Creator)
}

func TestValidatorsFollowStake(t *testing.T) {
	gwei := config.GWeiPerPower(0)
	db := newTestDB(t)
	alice, bob := newMember(), newMember()
	genesis(t, db, []*member{alice}, []uint64{10 * gwei})

	st := db.NewState()
	cur, err := st.Validators()
	require.NoError(t, err)
	require.Len(t, cur, 1)

	ev, err := st.Register(&tx.RegisterTx{PubKey: bob.priv.PubKey().Bytes()}, false)
	require.NoError(t, err)
	bob.idx = ev.Account
	_, err = st.Deposit(&tx.DepositTx{Amount: 5 * gwei}, bob.idx, false)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)
	upd, err := st.ValidatorsUpdate(cur)
	require.NoError(t, err)
	require.Len(t, upd, 1)
	assert.Equal(t, int64(5), upd[0].Power)
	_, err = db.SetState(st)
	require.NoError(t, err)

	st = db.NewState()
	cur, err = st.Validators()
	require.NoError(t, err)
	require.Len(t, cur, 2)
	_, err = st.Retract(&tx.RetractTx{Amount: 10 * gwei}, alice.idx, false)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)
	upd, err = st.ValidatorsUpdate(cur)
	require.NoError(t, err)
	require.Len(t, upd, 1)
	assert.Equal(t, int64(0), upd[0].Power)
	_, err = db.SetState(st)
	require.NoError(t, err)

	st = db.NewState()
	cur, err = st.Validators()
	require.NoError(t, err)
	_, err = st.Retract(&tx.RetractTx{Amount: 5 * gwei}, bob.idx, false)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)
	upd, err = st.ValidatorsUpdate(cur)
	require.NoError(t, err)
	assert.Empty(t, upd)
}

func TestTotalPowerTracksStake(t *testing.T) {
	db := newTestDB(t)
	alice := newMember()
	genesis(t, db, []*member{alice}, []uint64{42})
	total, err := db.State().TotalPower(0)
	require.NoError(t, err)
	assert.Equal(t, 0, total.Cmp(big.NewInt(42)))
}
