package gov

import (
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// CollectSink buffers the events of one transaction in emission order.
type CollectSink struct {
	events []types.GovEvent
}

func NewCollectSink() *CollectSink {
	return &CollectSink{}
}

func (s *CollectSink) Emit(ev types.GovEvent) {
	s.events = append(s.events, ev)
}

func (s *CollectSink) Len() int {
	return len(s.events)
}

func (s *CollectSink) Typed() []types.GovEvent {
	return s.events
}

func (s *CollectSink) Events() []abcitypes.Event {
	res := make([]abcitypes.Event, 0, len(s.events))
	for _, ev := range s.events {
		res = append(res, ev.Encode())
	}
	return res
}

type LogSink struct {
	next   EventSink
	logger cmtlog.Logger
}

func NewLogSink(next EventSink, logger cmtlog.Logger) *LogSink {
	return &LogSink{next: next, logger: logger.With("module", "govEvents")}
}

func (s *LogSink) Emit(ev types.GovEvent) {
	s.logger.Debug("emit", "domain", types.EventDomain, "action", ev.Action(), "address", ev.Address())
	if s.next != nil {
		s.next.Emit(ev)
	}
}
