package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

var errBackendDown = errors.New("backend unavailable")

// stubBackend wraps a memory backend, counts writes and can fail them.
type stubBackend struct {
	*memory.PollBackend

	updates atomic.Int32
	deletes atomic.Int32

	failList   error
	failUpdate error
	failCreate error
	failDelete error
	failGet    error

	// silent drops every feed delivery after the first one.
	silent bool
}

func newStubBackend() *stubBackend {
	return &stubBackend{PollBackend: memory.NewPollBackend()}
}

func (b *stubBackend) Get(ctx context.Context, id string) (*domain.PollDocument, error) {
	if b.failGet != nil {
		return nil, b.failGet
	}
	return b.PollBackend.Get(ctx, id)
}

func (b *stubBackend) List(ctx context.Context) ([]*domain.PollDocument, error) {
	if b.failList != nil {
		return nil, b.failList
	}
	return b.PollBackend.List(ctx)
}

func (b *stubBackend) Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (ports.Subscription, error) {
	if !b.silent {
		return b.PollBackend.Subscribe(ctx, onChange)
	}
	var once sync.Once
	return b.PollBackend.Subscribe(ctx, func(docs []*domain.PollDocument) {
		once.Do(func() { onChange(docs) })
	})
}

func (b *stubBackend) AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error {
	b.updates.Add(1)
	if b.failUpdate != nil {
		return b.failUpdate
	}
	return b.PollBackend.AtomicUpdate(ctx, id, deltas)
}

func (b *stubBackend) Create(ctx context.Context, doc *domain.PollDocument) (string, error) {
	if b.failCreate != nil {
		return "", b.failCreate
	}
	return b.PollBackend.Create(ctx, doc)
}

func (b *stubBackend) Delete(ctx context.Context, id string) error {
	b.deletes.Add(1)
	if b.failDelete != nil {
		return b.failDelete
	}
	return b.PollBackend.Delete(ctx, id)
}

type testEnv struct {
	backend *stubBackend
	store   *PollStore
	users   *memory.UserRepository
	polls   ports.PollService
	votes   ports.VoteService
}

func newTestEnv(t *testing.T, backend *stubBackend, policy ports.UpdatePolicy) *testEnv {
	t.Helper()
	log := logging.Discard()

	store := NewPollStore(backend, log)
	require.NoError(t, store.Start(context.Background()))
	t.Cleanup(store.Stop)

	users := memory.NewUserRepository()
	return &testEnv{
		backend: backend,
		store:   store,
		users:   users,
		polls:   NewPollService(backend, store, users, policy, log),
		votes:   NewVoteService(backend, store, policy, log),
	}
}

// seedPoll writes a poll straight to the backend and returns its id.
func (e *testEnv) seedPoll(t *testing.T, creatorID string, options ...string) string {
	t.Helper()
	doc := domain.NewPollDocument("Which one is best?", creatorID, "Creator", options, time.Now())
	id, err := e.backend.PollBackend.Create(context.Background(), doc)
	require.NoError(t, err)
	return id
}

func (e *testEnv) mustPoll(t *testing.T, id string) domain.Poll {
	t.Helper()
	p, ok := e.store.Poll(id)
	require.True(t, ok, "poll %s not in store", id)
	return p
}
