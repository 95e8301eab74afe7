package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/adbsync/adbsync/internal/logging"
)

func TestModuleWithoutFactory(t *testing.T) {
	log := logging.Module("mod")

	// a context with no factory yields the null logger, not a panic
	l := log(context.Background())
	require.NotNil(t, l)
	l.Info("discarded")
}

func TestModuleWithFactory(t *testing.T) {
	var lines []string

	printf := func(msg string, args ...interface{}) {
		require.Equal(t, "%v", msg)
		require.Len(t, args, 1)
		lines = append(lines, args[0].(string))
	}

	ctx := logging.WithLogger(context.Background(), logging.PrintfFactory(printf))

	logging.Module("mymod")(ctx).Info("hello")

	require.Len(t, lines, 1)
	require.Equal(t, "[mymod] hello", lines[0])
}

func TestPrintfLevel(t *testing.T) {
	var lines []string

	printf := func(msg string, args ...interface{}) {
		lines = append(lines, args[0].(string))
	}

	l := logging.PrintfLevel(printf, "", zapcore.WarnLevel)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")

	require.Equal(t, []string{"kept"}, lines)
}

func TestWithLoggerNilFactory(t *testing.T) {
	ctx := logging.WithLogger(context.Background(), nil)

	l := logging.Module("mod")(ctx)
	require.NotNil(t, l)
	l.Info("discarded")
}
