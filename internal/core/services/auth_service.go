package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

const (
	accessTokenTTL    = 15 * time.Minute
	refreshTokenTTL   = 7 * 24 * time.Hour
	minPasswordLength = 6
)

var errNoSigningKey = errors.New("jwt secret is empty")

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo            ports.UserRepository
	authRepo            ports.AuthRepository
	googleTokenVerifier ports.TokenVerifier
	jwtSecret           []byte
	googleClientID      string
	log                 logging.Logger
	now                 func() time.Time
}

func NewAuthService(
	userRepo ports.UserRepository,
	authRepo ports.AuthRepository,
	googleTokenVerifier ports.TokenVerifier,
	jwtSecret, googleClientID string,
	log logging.Logger,
) *AuthService {
	log = log.With("component", "auth_service")
	if jwtSecret == "" {
		log.Warn(context.Background(), "JWT_SECRET not set")
	}
	return &AuthService{
		userRepo:            userRepo,
		authRepo:            authRepo,
		googleTokenVerifier: googleTokenVerifier,
		jwtSecret:           []byte(jwtSecret),
		googleClientID:      googleClientID,
		log:                 log,
		now:                 time.Now,
	}
}

func (s *AuthService) SignUp(ctx context.Context, input ports.SignUpInput) (*domain.User, ports.AuthTokens, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	verr := &domain.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		verr.Add("name", "must not be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "must be a valid address")
	}
	if len(input.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if !verr.Empty() {
		return nil, ports.AuthTokens{}, verr
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, ports.AuthTokens{}, domain.ErrEmailTaken
	}

	if len(s.jwtSecret) == 0 {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to sign up: %w", errNoSigningKey)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, ports.AuthTokens{}, err
	}
	s.log.Info(ctx, "user signed up", "user_id", user.ID.String())
	return user, tokens, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, ports.AuthTokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ports.AuthTokens{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ports.AuthTokens{}, domain.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, ports.AuthTokens{}, err
	}
	return user, tokens, nil
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (*domain.User, ports.AuthTokens, error) {
	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("%w: invalid google token: %w", domain.ErrInvalidToken, err)
	}

	email := strings.ToLower(payload.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ports.AuthTokens{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		if len(s.jwtSecret) == 0 {
			return nil, ports.AuthTokens{}, fmt.Errorf("failed to sign up: %w", errNoSigningKey)
		}
		user = &domain.User{Email: email, Name: payload.Name}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, ports.AuthTokens{}, fmt.Errorf("failed to create user: %w", err)
		}
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, ports.AuthTokens{}, err
	}
	return user, tokens, nil
}

// RefreshAccessToken keeps the refresh token until it expires and only mints
// a new access token.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (ports.AuthTokens, error) {
	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return ports.AuthTokens{}, fmt.Errorf("%w: refresh token not found", domain.ErrInvalidToken)
	}
	if rtEntity.Revoked {
		return ports.AuthTokens{}, fmt.Errorf("%w: refresh token revoked", domain.ErrInvalidToken)
	}
	if rtEntity.ExpiresAt.Before(s.now()) {
		return ports.AuthTokens{}, fmt.Errorf("%w: refresh token expired", domain.ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID.String())
	if err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ports.AuthTokens{}, fmt.Errorf("%w: user not found", domain.ErrInvalidToken)
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return ports.AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return nil
	}
	return s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID.String())
}

func (s *AuthService) ParseAccessToken(token string) (string, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (ports.AuthTokens, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	rtEntity := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: s.now().Add(refreshTokenTTL),
	}
	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return ports.AuthTokens{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return ports.AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errNoSigningKey
	}
	now := s.now()
	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
