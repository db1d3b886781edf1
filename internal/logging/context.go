package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const loggerKey contextKey = iota

// WithLogger stores logger in ctx. A nil logger stores the default one.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithField returns a context whose logger carries key=value.
func WithField(ctx context.Context, key string, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithCycle tags the context logger with a harvest cycle id.
func WithCycle(ctx context.Context, cycleID string) context.Context {
	return WithField(ctx, "cycle_id", cycleID)
}

// WithSource tags the context logger with a fetch location.
func WithSource(ctx context.Context, location string) context.Context {
	return WithField(ctx, "source", location)
}
