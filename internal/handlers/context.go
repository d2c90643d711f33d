package handlers

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const actorContextKey contextKey = "actor"

// SetActorInContext stores the ID of the user making the request.
func SetActorInContext(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

func GetActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	actorID, ok := ctx.Value(actorContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, false
	}
	return actorID, true
}
