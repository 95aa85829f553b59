package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type AuthRepository struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]domain.RefreshToken
}

func NewAuthRepository() *AuthRepository {
	return &AuthRepository{tokens: make(map[uuid.UUID]domain.RefreshToken)}
}

var _ ports.AuthRepository = (*AuthRepository)(nil)

func (r *AuthRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = time.Now().UTC()
	r.tokens[token.ID] = *token
	return nil
}

func (r *AuthRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[uid]
	if !ok {
		return nil
	}
	t.Revoked = true
	r.tokens[uid] = t
	return nil
}
