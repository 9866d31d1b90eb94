package internal

import (
	"context"
	"time"
)

type ctxKey string

// ContextActorKey carries the id of the authenticated user a request acts for.
// Services read it for audit logging only; authorization is the RBAC
// middleware's job.
const ContextActorKey ctxKey = "actorID"

// ActorIDFromContext returns "" for unauthenticated or background work.
func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if actorID, ok := ctx.Value(ContextActorKey).(string); ok {
		return actorID
	}
	return ""
}

func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextActorKey, actorID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
