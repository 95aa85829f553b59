package services

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns "" when the request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

type contextAuthGate struct{}

// NewContextAuthGate reads the identity placed on the context by the HTTP
// auth middleware.
func NewContextAuthGate() ports.AuthGate {
	return contextAuthGate{}
}

func (contextAuthGate) CurrentUserID(ctx context.Context) string {
	return UserIDFromContext(ctx)
}
