package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	u := &domain.User{Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)

	missing, err := repo.GetByID(ctx, "not-a-uuid")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, repo.Create(ctx, &domain.User{Email: "ada@example.com"}), domain.ErrEmailTaken)
}

func TestAuthRepository(t *testing.T) {
	repo := NewAuthRepository()
	ctx := context.Background()

	tok := &domain.RefreshToken{UserID: uuid.New(), TokenHash: "abc"}
	require.NoError(t, repo.StoreRefreshToken(ctx, tok))

	got, err := repo.GetRefreshTokenByHash(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	require.NoError(t, repo.RevokeRefreshToken(ctx, tok.ID.String()))
	got, err = repo.GetRefreshTokenByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	none, err := repo.GetRefreshTokenByHash(ctx, "zzz")
	assert.NoError(t, err)
	assert.Nil(t, none)
}
