package state

import (
	cosmoslog "cosmossdk.io/log"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// iavlLogger writes IAVL tree messages through the node logger.
type iavlLogger struct {
	next cmtlog.Logger
}

var _ cosmoslog.Logger = iavlLogger{}

func newIAVLLogger(lg cmtlog.Logger) cosmoslog.Logger {
	return iavlLogger{next: lg.With("module", "iavl")}
}

func (l iavlLogger) Info(msg string, keyVals ...any) { l.next.Info(msg, keyVals...) }

// Warn is logged at info level; cometbft has no warn level.
func (l iavlLogger) Warn(msg string, keyVals ...any) {
	l.next.Info(msg, append(keyVals, "level", "warn")...)
}

func (l iavlLogger) Error(msg string, keyVals ...any) { l.next.Error(msg, keyVals...) }

func (l iavlLogger) Debug(msg string, keyVals ...any) { l.next.Debug(msg, keyVals...) }

func (l iavlLogger) With(keyVals ...any) cosmoslog.Logger {
	return iavlLogger{next: l.next.With(keyVals...)}
}

func (l iavlLogger) Impl() any { return l.next }
