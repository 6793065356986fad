package testutil

import (
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewObservedLogger returns a debug level logger whose entries are recorded.
func NewObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewLoggerFromCore(core), logs
}
