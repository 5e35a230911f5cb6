package httpapi

import (
	"context"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

type actorContextKey string

const actorKey actorContextKey = "actor"

// Actor headers. Authentication happens upstream; these carry its result.
const (
	headerActorKind = "X-Actor-Kind"
	headerActorID   = "X-Actor-Id"
	headerActorName = "X-Actor-Name"
)

func withActor(ctx context.Context, a *complaint.Actor) context.Context {
	if a == nil {
		return ctx
	}
	return context.WithValue(ctx, actorKey, a)
}

func actorFromContext(ctx context.Context) *complaint.Actor {
	val := ctx.Value(actorKey)
	if v, ok := val.(*complaint.Actor); ok {
		return v
	}
	return nil
}
