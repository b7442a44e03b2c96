package tx

import (
	"errors"
)

type HACTxType uint8

const (
	HACTxTypeUnknown          HACTxType = 0
	HACTxTypeRegister         HACTxType = 1
	HACTxTypeDeposit          HACTxType = 2
	HACTxTypeRetract          HACTxType = 3
	HACTxTypeInitVotingConfig HACTxType = 4
	HACTxTypeCreateProposal   HACTxType = 5
	HACTxTypeVote             HACTxType = 6
	HACTxTypeFinalizeProposal HACTxType = 7
	HACTxTypeQueueProposal    HACTxType = 8
	HACTxTypeExecuteProposal  HACTxType = 9
	HACTxTypeCancelProposal   HACTxType = 10

	HACTxTypeGeneric HACTxType = 255
)

var txTypeNames = map[HACTxType]string{
	HACTxTypeRegister:         "register",
	HACTxTypeDeposit:          "deposit",
	HACTxTypeRetract:          "retract",
	HACTxTypeInitVotingConfig: "initVotingConfig",
	HACTxTypeCreateProposal:   "createProposal",
	HACTxTypeVote:             "vote",
	HACTxTypeFinalizeProposal: "finalizeProposal",
	HACTxTypeQueueProposal:    "queueProposal",
	HACTxTypeExecuteProposal:  "executeProposal",
	HACTxTypeCancelProposal:   "cancelProposal",
}

func (t HACTxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

const (
	HACTxVersion0 uint8 = 0
	HACTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
