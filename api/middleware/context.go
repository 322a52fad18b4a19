package middleware

import (
	"context"

	"github.com/google/uuid"
)

// identity is the authenticated caller, as asserted by the bearer token.
type identity struct {
	userID   uuid.UUID
	username string
}

type identityKey struct{}

func withIdentity(ctx context.Context, id identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	return identityFrom(ctx).userID
}

func UsernameFromContext(ctx context.Context) string {
	return identityFrom(ctx).username
}

// WithUserID sets the caller's id, keeping any username already present.
// Handlers and tests use it to act as a given user.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := identityFrom(ctx)
	id.userID = userID
	return withIdentity(ctx, id)
}
