package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuthGate supplies the identity of the caller, or "" when nobody is signed in.
type AuthGate interface {
	CurrentUserID(ctx context.Context) string
}
