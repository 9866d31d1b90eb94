package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// With stores a child of the context's logger carrying fields, so everything
// downstream of a middleware logs the same trace and user ids.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

// From returns the request-scoped logger, or the process logger outside a request.
func From(ctx context.Context) *slog.Logger {
	return FromOr(ctx, LoggerWrapper())
}

// FromOr is From for components that were handed their own logger.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return fallback
}
