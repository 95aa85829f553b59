package google

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

var ErrMissingEmail = errors.New("email not found in claims")

// validate is swapped out in tests.
var validate = idtoken.Validate

type Verifier struct{}

func NewVerifier() ports.TokenVerifier {
	return &Verifier{}
}

// Verify checks a Google ID token issued for clientID. Unverified email
// addresses are rejected; a missing name falls back to the email.
func (v *Verifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	if clientID == "" {
		return nil, errors.New("google client id is not configured")
	}
	payload, err := validate(ctx, token, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate id token: %w", err)
	}
	return payloadFromClaims(payload.Claims)
}

func payloadFromClaims(claims map[string]any) (*ports.TokenPayload, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return nil, fmt.Errorf("email %s is not verified", email)
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = email
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
