package state

import (
	"bytes"
	"math/big"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is a member of the savings ledger. Stake is the locked balance and
// doubles as voting power.
type Account struct {
	Index  uint64 `json:"index"`
	PubKey []byte `json:"pubKey"`
	Stake  uint64 `json:"stake"`
	Nonce  uint64 `json:"nonce"`
	Name   string `json:"name"`
}

func (a *Account) Clone() *Account {
	n := *a
	n.PubKey = bytes.Clone(a.PubKey)
	return &n
}

func (a *Account) SetPubKey(pkey []byte) {
	if a.PubKey == nil {
		a.PubKey = make([]byte, len(pkey))
	}
	copy(a.PubKey, pkey)
}

func (a *Account) AddrBytes() []byte {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address()[:]
}

func (a *Account) Address() string {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address().String()
}

func (a *Account) Power() *big.Int {
	return new(big.Int).SetUint64(a.Stake)
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}

// StateHeader is stored under KeyState and rolled into the app hash.
type StateHeader struct {
	ChainId    string `json:"chainId"`
	Height     uint64 `json:"height"`
	Time       uint64 `json:"time"`
	AccountIdx uint64 `json:"accountIdx"`
	TotalStake uint64 `json:"totalStake"`
	RootHash   []byte `json:"rootHash"`
	Hash       []byte `json:"hash"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = bytes.Clone(h.RootHash)
	n.Hash = bytes.Clone(h.Hash)
	return &n
}
