package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestVerify(t *testing.T) {
	orig := validate
	defer func() { validate = orig }()

	v := NewVerifier()

	_, err := v.Verify(context.Background(), "token", "")
	assert.Error(t, err)

	validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good" || audience != "client-1" {
			return nil, errors.New("bad token")
		}
		return &idtoken.Payload{Claims: map[string]any{
			"email":          "ada@example.com",
			"email_verified": true,
			"name":           "Ada",
		}}, nil
	}

	payload, err := v.Verify(context.Background(), "good", "client-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", payload.Email)
	assert.Equal(t, "Ada", payload.Name)

	_, err = v.Verify(context.Background(), "bad", "client-1")
	assert.ErrorContains(t, err, "bad token")
}

func TestPayloadFromClaims(t *testing.T) {
	tests := []struct {
		name     string
		claims   map[string]any
		wantName string
		wantErr  bool
	}{
		{"name present", map[string]any{"email": "a@b.c", "name": "A"}, "A", false},
		{"name falls back to email", map[string]any{"email": "a@b.c"}, "a@b.c", false},
		{"missing email", map[string]any{"name": "A"}, "", true},
		{"unverified email", map[string]any{"email": "a@b.c", "email_verified": false}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := payloadFromClaims(tt.claims)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, payload.Name)
		})
	}
}
