package auth

import (
	"context"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated actor attached to a request.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Role   domain.Role
}

// ContextWithIdentity returns a new context that carries the authenticated actor.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated actor from the context, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	value := ctx.Value(identityKey)
	if value == nil {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	if !ok {
		return Identity{}, false
	}
	if identity.UserID == uuid.Nil {
		return Identity{}, false
	}
	return identity, true
}
