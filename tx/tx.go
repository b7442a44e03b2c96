package tx

import (
	"encoding/json"

	"github.com/calehh/hac-gov/types"
)

// HACTx is the signed envelope. Validator is the signer's account index; a
// register tx has none yet and is signed by the key it registers.
type HACTx struct {
	Version   uint8     `json:"version"`
	Type      HACTxType `json:"type"`
	Nonce     uint64    `json:"nonce"`
	Validator uint64    `json:"validator"`
	Tx        any       `json:"tx"`
	Sig       [][]byte  `json:"sig"`
}

type RegisterTx struct {
	PubKey []byte `json:"pubkey"`
	Name   string `json:"name"`
}

type DepositTx struct {
	Amount uint64 `json:"amount"`
}

type RetractTx struct {
	Amount uint64 `json:"amount"`
}

type InitVotingConfigTx struct {
	Config *types.VotingConfig `json:"config"`
}

type CreateProposalTx struct {
	Description  string              `json:"description"`
	ConfigUpdate *types.VotingConfig `json:"configUpdate,omitempty"`
}

type VoteTx struct {
	Proposal uint64         `json:"proposal"`
	VoteType types.VoteType `json:"voteType"`
}

// ProposalRefTx is the body of finalize, queue, execute and cancel.
type ProposalRefTx struct {
	Proposal uint64 `json:"proposal"`
}

type hacTxTmpl[Tx any] struct {
	Version   uint8     `json:"version"`
	Type      HACTxType `json:"type"`
	Nonce     uint64    `json:"nonce"`
	Validator uint64    `json:"validator"`
	Tx        Tx        `json:"tx"`
	Sig       [][]byte  `json:"sig"`
}

func (tx *HACTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

// Sign replaces the signatures with a single one over SigData(chainId).
func (tx *HACTx) Sign(chainId string, sign func([]byte) ([]byte, error)) (err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	sig, err := sign(dat)
	if err != nil {
		return
	}
	tx.Sig = [][]byte{sig}
	return
}

func parseHACTxType(dat []byte) HACTxType {
	var tx struct {
		Type HACTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return HACTxTypeUnknown
	}
	return tx.Type
}

func unmarshalHACTx[Tx any](dat []byte) (btx *HACTx, err error) {
	var txt hacTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version > HACTxVersion1 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(HACTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Validator = txt.Validator
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalHACTx(dat []byte) (btx *HACTx, err error) {
	tp := parseHACTxType(dat)
	switch tp {
	case HACTxTypeRegister:
		return unmarshalHACTx[RegisterTx](dat)
	case HACTxTypeDeposit:
		return unmarshalHACTx[DepositTx](dat)
	case HACTxTypeRetract:
		return unmarshalHACTx[RetractTx](dat)
	case HACTxTypeInitVotingConfig:
		return unmarshalHACTx[InitVotingConfigTx](dat)
	case HACTxTypeCreateProposal:
		return unmarshalHACTx[CreateProposalTx](dat)
	case HACTxTypeVote:
		return unmarshalHACTx[VoteTx](dat)
	case HACTxTypeFinalizeProposal, HACTxTypeQueueProposal, HACTxTypeExecuteProposal, HACTxTypeCancelProposal:
		return unmarshalHACTx[ProposalRefTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalHACTx(btx *HACTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
