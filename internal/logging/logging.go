// Package logging provides loggers for modules of the application,
// attached to the context.
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is an interface used by all submodules to output logs.
type Logger = *zap.SugaredLogger

// LoggerFactory retrieves a named logger for a given module.
type LoggerFactory func(module string) Logger

type contextKey string

const loggerCacheKey contextKey = "logger"

// Module returns a function that returns a logger for a given module when
// provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l, ok := ctx.Value(loggerCacheKey).(LoggerFactory); ok {
			return l(module)
		}

		return NullLogger
	}
}

// WithLogger returns a derived context with associated logger factory.
func WithLogger(ctx context.Context, l LoggerFactory) context.Context {
	if l == nil {
		l = getNullLogger
	}

	return context.WithValue(ctx, loggerCacheKey, l)
}
