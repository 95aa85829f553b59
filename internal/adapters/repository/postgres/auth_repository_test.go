package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func TestAuthRepository_StoreRefreshToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthRepository(db)

	userID := uuid.New()
	tokenID := uuid.New()
	expires := time.Now().Add(time.Hour).UTC()
	created := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO refresh_tokens`).
		WithArgs(userID, "hash", expires, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(tokenID.String(), created))

	token := &domain.RefreshToken{UserID: userID, TokenHash: "hash", ExpiresAt: expires}
	require.NoError(t, repo.StoreRefreshToken(context.Background(), token))
	assert.Equal(t, tokenID, token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthRepository_GetRefreshTokenByHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthRepository(db)

	tokenID, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM refresh_tokens\s+WHERE token_hash = \$1`).
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked", "created_at"}).
			AddRow(tokenID.String(), userID.String(), "hash", now.Add(time.Hour), true, now))

	token, err := repo.GetRefreshTokenByHash(context.Background(), "hash")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, userID, token.UserID)
	assert.True(t, token.Revoked)
}

func TestAuthRepository_GetRefreshTokenByHashErrors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthRepository(db)

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("boom").WillReturnError(errors.New("db down"))

	token, err := repo.GetRefreshTokenByHash(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, token)

	_, err = repo.GetRefreshTokenByHash(context.Background(), "boom")
	assert.ErrorContains(t, err, "db down")
}

func TestAuthRepository_RevokeRefreshToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuthRepository(db)

	id := uuid.NewString()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND NOT revoked`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), id))
	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "not-a-uuid"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
