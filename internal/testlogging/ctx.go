// Package testlogging implements a logger that writes to testing.T log.
package testlogging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/adbsync/adbsync/internal/logging"
)

// Context returns a context with an attached logger that emits all log entries
// to go testing.T log output.
func Context(t *testing.T) context.Context {
	t.Helper()

	return ContextWithLevel(t, zapcore.DebugLevel)
}

// ContextWithLevel returns a context with an attached logger that emits log
// entries with the given level or above.
func ContextWithLevel(t *testing.T, level zapcore.Level) context.Context {
	t.Helper()

	return logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return logging.PrintfLevel(t.Logf, "["+module+"] ", level)
	})
}
