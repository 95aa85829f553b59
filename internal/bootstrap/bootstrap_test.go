package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

func TestOpen_Memory(t *testing.T) {
	res, err := Open(context.Background(), &config.Config{Backend: config.BackendMemory}, logging.Discard())
	require.NoError(t, err)
	defer res.Close()

	assert.IsType(t, &memory.PollBackend{}, res.Backend)
	assert.IsType(t, &memory.UserRepository{}, res.Users)
	assert.IsType(t, &memory.AuthRepository{}, res.Tokens)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "cassandra"}, logging.Discard())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestResources_CloseRunsInReverse(t *testing.T) {
	var order []int
	res := &Resources{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return assert.AnError },
	}}
	assert.ErrorIs(t, res.Close(), assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
}
