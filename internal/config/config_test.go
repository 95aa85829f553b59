package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("UPDATE_POLICY", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "polls", cfg.PollsCollection)
	assert.Equal(t, ports.UpdateConfirm, cfg.UpdatePolicy)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND", "Postgres")
	t.Setenv("POSTGRES_USER", "poll")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("POSTGRES_DB", "polls")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("UPDATE_POLICY", "optimistic")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, ports.UpdateOptimistic, cfg.UpdatePolicy)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://poll:s3cret@db:5433/polls?sslmode=disable", cfg.Postgres.ConnString())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIVEPOLL_TEST_ONLY_KEY=1\n"), 0o600))
	t.Setenv("BACKEND", "memory")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1", os.Getenv("LIVEPOLL_TEST_ONLY_KEY"))
	os.Unsetenv("LIVEPOLL_TEST_ONLY_KEY")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"BACKEND": "redis"}},
		{"bad policy", map[string]string{"BACKEND": "memory", "UPDATE_POLICY": "eventually"}},
		{"postgres without db", map[string]string{"BACKEND": "postgres", "POSTGRES_DB": "", "POSTGRES_USER": ""}},
		{"firestore without project", map[string]string{"BACKEND": "firestore", "FIRESTORE_PROJECT_ID": ""}},
		{"mongo without uri", map[string]string{"BACKEND": "mongo", "MONGO_URI": ""}},
		{"missing jwt secret", map[string]string{"BACKEND": "memory", "JWT_SECRET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UPDATE_POLICY", "")
			t.Setenv("JWT_SECRET", "test-secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
