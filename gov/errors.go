package gov

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrVotingClosed   = errors.New("voting closed")
	ErrAlreadyVoted   = errors.New("already voted")
	ErrNoVotingPower  = errors.New("no voting power")
	ErrVotingActive   = errors.New("voting still active")
	ErrInvalidState   = errors.New("invalid proposal state")
	ErrTimelock       = errors.New("execution timelock pending")
	ErrNotInitialized = errors.New("voting config not initialized")
)

const (
	CodeOK            uint32 = 0
	CodeUnauthorized  uint32 = 1
	CodeNotFound      uint32 = 2
	CodeInvalidInput  uint32 = 3
	CodeVotingClosed  uint32 = 4
	CodeAlreadyVoted  uint32 = 5
	CodeNoVotingPower uint32 = 6
	CodeVotingActive  uint32 = 7
	CodeInvalidState  uint32 = 8
	CodeTimelock      uint32 = 9
	CodeNotInit       uint32 = 10
	CodeInternal      uint32 = 100
)

var codes = []struct {
	err  error
	code uint32
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrVotingClosed, CodeVotingClosed},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrNoVotingPower, CodeNoVotingPower},
	{ErrVotingActive, CodeVotingActive},
	{ErrInvalidState, CodeInvalidState},
	{ErrTimelock, CodeTimelock},
	{ErrNotInitialized, CodeNotInit},
}

// Code maps an error to the ABCI result code reported to clients.
func Code(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
