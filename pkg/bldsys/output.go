package bldsys

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxLogKey struct{}

// log retrieves the logger stored in ctx. Every entry point into this
// package is expected to pass a context prepared with WithLogger.
func log(ctx context.Context) *zerolog.Logger {
	logger, ok := ctx.Value(ctxLogKey{}).(*zerolog.Logger)
	if !ok {
		panic("logger is missing in context!")
	}

	return logger
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogKey{}, logger)
}
