package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

// PollStore caches poll documents and keeps them in sync with the backend
// change feed. Every feed delivery replaces the whole cache.
type PollStore struct {
	backend ports.PollBackend
	log     logging.Logger

	mu     sync.RWMutex
	polls  map[string]domain.Poll
	status ports.StoreStatus
	err    error
	feed   ports.Subscription

	listenersMu sync.Mutex
	listeners   map[int]func([]domain.Poll)
	nextID      int
}

func NewPollStore(backend ports.PollBackend, log logging.Logger) *PollStore {
	return &PollStore{
		backend:   backend,
		log:       log.With("component", "poll_store"),
		polls:     make(map[string]domain.Poll),
		status:    ports.StoreIdle,
		listeners: make(map[int]func([]domain.Poll)),
	}
}

// Start performs the initial bulk read and opens the change feed. ctx bounds
// the lifetime of the feed. Calling Start on a running store does nothing.
func (s *PollStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.feed != nil || s.status == ports.StoreLoading {
		s.mu.Unlock()
		return nil
	}
	s.status = ports.StoreLoading
	s.mu.Unlock()

	docs, err := s.backend.List(ctx)
	if err != nil {
		s.fail(err)
		return fmt.Errorf("failed to load polls: %w", err)
	}
	s.replace(docs)

	sub, err := s.backend.Subscribe(ctx, s.replace)
	if err != nil {
		s.fail(err)
		return fmt.Errorf("failed to subscribe to polls: %w", err)
	}

	s.mu.Lock()
	s.feed = sub
	s.mu.Unlock()

	s.log.Info(ctx, "poll store started", "polls", len(docs))
	return nil
}

// Stop closes the change feed. The last snapshot stays readable.
func (s *PollStore) Stop() {
	s.mu.Lock()
	feed := s.feed
	s.feed = nil
	if s.status == ports.StoreLoading {
		s.status = ports.StoreIdle
	}
	s.mu.Unlock()

	if feed != nil {
		feed.Unsubscribe()
		s.log.Info(context.Background(), "poll store stopped")
	}
}

// Subscribe registers onUpdate for every new snapshot and returns a function
// that removes it.
func (s *PollStore) Subscribe(onUpdate func([]domain.Poll)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = onUpdate
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Snapshot returns a deep copy of the cached polls, newest first.
func (s *PollStore) Snapshot() []domain.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *PollStore) Poll(id string) (domain.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, false
	}
	return p.Clone(), true
}

func (s *PollStore) Status() (ports.StoreStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.err
}

func (s *PollStore) ApplyVote(plan domain.VotePlan) {
	s.mutate(func(polls map[string]domain.Poll) bool {
		p, ok := polls[plan.PollID]
		if !ok {
			return false
		}
		polls[plan.PollID] = plan.ApplyTo(p)
		return true
	})
}

func (s *PollStore) PutPoll(poll domain.Poll) {
	s.mutate(func(polls map[string]domain.Poll) bool {
		polls[poll.ID] = poll.Clone()
		return true
	})
}

func (s *PollStore) RemovePoll(id string) {
	s.mutate(func(polls map[string]domain.Poll) bool {
		if _, ok := polls[id]; !ok {
			return false
		}
		delete(polls, id)
		return true
	})
}

func (s *PollStore) replace(docs []*domain.PollDocument) {
	polls := make(map[string]domain.Poll, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		polls[doc.ID] = doc.Normalize()
	}

	s.mu.Lock()
	s.polls = polls
	s.status = ports.StoreSucceeded
	s.err = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *PollStore) mutate(fn func(map[string]domain.Poll) bool) {
	s.mu.Lock()
	if !fn(s.polls) {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *PollStore) fail(err error) {
	s.mu.Lock()
	s.status = ports.StoreFailed
	s.err = err
	s.mu.Unlock()
	s.log.Error(context.Background(), "poll store failed", "error", err)
}

func (s *PollStore) snapshotLocked() []domain.Poll {
	out := make([]domain.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		out = append(out, p.Clone())
	}
	domain.SortPolls(out)
	return out
}

func (s *PollStore) notify(snapshot []domain.Poll) {
	s.listenersMu.Lock()
	listeners := make([]func([]domain.Poll), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(clonePolls(snapshot))
	}
}

func clonePolls(polls []domain.Poll) []domain.Poll {
	out := make([]domain.Poll, len(polls))
	for i, p := range polls {
		out[i] = p.Clone()
	}
	return out
}
