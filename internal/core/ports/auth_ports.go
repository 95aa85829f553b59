package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type AuthRepository interface {
	StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type AuthService interface {
	SignUp(ctx context.Context, input SignUpInput) (*domain.User, AuthTokens, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, AuthTokens, error)
	LoginWithGoogle(ctx context.Context, googleToken string) (*domain.User, AuthTokens, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	// ParseAccessToken returns the user id carried by a valid access token.
	ParseAccessToken(token string) (string, error)
}
