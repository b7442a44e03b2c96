package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventRegisterType          = "register"
	EventDepositType           = "deposit"
	EventRetractType           = "retract"
	EventUpdateValidatorsType  = "update_validators"
	EventUpdateValidatorsCount = "count"
)

// EventLedger covers the savings stand-in: account registration and stake moves.
type EventLedger struct {
	Type    string
	Account uint64
	Address string
	Amount  uint64
	Stake   uint64
}

func EncodeEventLedger(e *EventLedger) abci.Event {
	return abci.Event{
		Type: e.Type,
		Attributes: []abci.EventAttribute{
			{Key: "account", Value: strconv.FormatUint(e.Account, 10), Index: true},
			{Key: "addr", Value: e.Address, Index: true},
			{Key: "amount", Value: strconv.FormatUint(e.Amount, 10), Index: false},
			{Key: "stake", Value: strconv.FormatUint(e.Stake, 10), Index: false},
		},
	}
}

func DecodeEventLedger(originEvent abci.Event) *EventLedger {
	switch originEvent.Type {
	case EventRegisterType, EventDepositType, EventRetractType:
	default:
		return nil
	}
	e := &EventLedger{Type: originEvent.Type}
	var err error
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "account":
			e.Account, err = strconv.ParseUint(v.Value, 10, 64)
		case "addr":
			e.Address = v.Value
		case "amount":
			e.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		case "stake":
			e.Stake, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return e
}

type EventUpdateValidators struct {
	Updates []abci.ValidatorUpdate
}

func EncodeEventUpdateValidators(e *EventUpdateValidators) abci.Event {
	attrs := []abci.EventAttribute{
		{Key: EventUpdateValidatorsCount, Value: strconv.Itoa(len(e.Updates)), Index: false},
	}
	for i, v := range e.Updates {
		attrs = append(attrs, abci.EventAttribute{
			Key:   fmt.Sprintf("validator%d", i),
			Value: fmt.Sprintf("%X:%d", v.PubKey.GetEd25519(), v.Power),
			Index: false,
		})
	}
	return abci.Event{Type: EventUpdateValidatorsType, Attributes: attrs}
}
