package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

func TestPollStore_StartLoadsPolls(t *testing.T) {
	backend := newStubBackend()
	backend.Put(&domain.PollDocument{ID: "a", Question: "First?", CreatedAt: time.Now().Add(-time.Hour)})
	backend.Put(&domain.PollDocument{ID: "b", Question: "Second?", CreatedAt: time.Now()})

	store := NewPollStore(backend, logging.Discard())
	status, err := store.Status()
	assert.Equal(t, ports.StoreIdle, status)
	assert.NoError(t, err)

	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	status, err = store.Status()
	assert.Equal(t, ports.StoreSucceeded, status)
	assert.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)
	assert.Equal(t, "a", snap[1].ID)

	// a second Start is a no-op
	require.NoError(t, store.Start(context.Background()))
	assert.Len(t, store.Snapshot(), 2)
}

func TestPollStore_StartFailure(t *testing.T) {
	backend := newStubBackend()
	backend.failList = errBackendDown

	store := NewPollStore(backend, logging.Discard())
	err := store.Start(context.Background())
	assert.ErrorIs(t, err, errBackendDown)

	status, statusErr := store.Status()
	assert.Equal(t, ports.StoreFailed, status)
	assert.ErrorIs(t, statusErr, errBackendDown)
}

func TestPollStore_FeedReplacesWholeCache(t *testing.T) {
	backend := newStubBackend()
	backend.Put(&domain.PollDocument{ID: "a", Question: "Keep?"})
	backend.Put(&domain.PollDocument{ID: "b", Question: "Drop?"})

	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	require.NoError(t, backend.PollBackend.Delete(context.Background(), "b"))

	_, ok := store.Poll("b")
	assert.False(t, ok)
	_, ok = store.Poll("a")
	assert.True(t, ok)
}

func TestPollStore_NormalizesLegacyDocuments(t *testing.T) {
	backend := newStubBackend()
	backend.Put(&domain.PollDocument{
		ID:       "legacy",
		Question: "Old?",
		Options: map[string]*domain.OptionDocument{
			"0": {Text: "yes"},
		},
	})

	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	p, ok := store.Poll("legacy")
	require.True(t, ok)
	assert.Equal(t, 0, p.Options["0"].Votes)
	assert.NotNil(t, p.Options["0"].Voters)
	assert.NoError(t, p.CheckInvariants())
}

func TestPollStore_SubscribeAndUnsubscribe(t *testing.T) {
	backend := newStubBackend()
	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	var (
		mu       sync.Mutex
		received [][]domain.Poll
	)
	unsubscribe := store.Subscribe(func(polls []domain.Poll) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, polls)
	})

	backend.Put(&domain.PollDocument{ID: "a", Question: "One?"})
	backend.Put(&domain.PollDocument{ID: "b", Question: "Two?"})

	mu.Lock()
	require.Len(t, received, 2)
	assert.Len(t, received[1], 2)
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	backend.Put(&domain.PollDocument{ID: "c", Question: "Three?"})

	mu.Lock()
	assert.Len(t, received, 2)
	mu.Unlock()
	assert.Len(t, store.Snapshot(), 3)
}

func TestPollStore_SnapshotIsACopy(t *testing.T) {
	backend := newStubBackend()
	backend.Put(domain.NewPollDocument("Copy?", "c", "C", []string{"x", "y"}, time.Now()))
	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	opt := snap[0].Options["0"]
	opt.Voters = append(opt.Voters, "intruder")
	snap[0].Options["0"] = opt
	snap[0].Question = "changed"

	fresh := store.Snapshot()
	assert.Empty(t, fresh[0].Options["0"].Voters)
	assert.Equal(t, "Copy?", fresh[0].Question)
}

func TestPollStore_StopDetachesFeed(t *testing.T) {
	backend := newStubBackend()
	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))

	store.Stop()
	backend.Put(&domain.PollDocument{ID: "late", Question: "Late?"})

	_, ok := store.Poll("late")
	assert.False(t, ok)
}

func TestPollStore_LocalPatches(t *testing.T) {
	backend := newStubBackend()
	store := NewPollStore(backend, logging.Discard())
	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	doc := domain.NewPollDocument("Local?", "c", "C", []string{"x", "y"}, time.Now())
	doc.ID = "local"
	store.PutPoll(doc.Normalize())

	p, ok := store.Poll("local")
	require.True(t, ok)

	plan, err := domain.PlanVote(p, "1", "u1")
	require.NoError(t, err)
	store.ApplyVote(plan)

	p, _ = store.Poll("local")
	assert.Equal(t, 1, p.TotalVotes)

	store.RemovePoll("local")
	_, ok = store.Poll("local")
	assert.False(t, ok)
}
