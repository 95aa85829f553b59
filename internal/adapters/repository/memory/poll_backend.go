// Package memory keeps poll documents, users and refresh tokens in process
// memory. It backs BACKEND=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type PollBackend struct {
	// feedMu serialises write+notify so subscribers see snapshots in
	// commit order.
	feedMu sync.Mutex

	mu          sync.RWMutex
	docs        map[string]*domain.PollDocument
	subscribers map[int]func([]*domain.PollDocument)
	nextSub     int
}

func NewPollBackend() *PollBackend {
	return &PollBackend{
		docs:        make(map[string]*domain.PollDocument),
		subscribers: make(map[int]func([]*domain.PollDocument)),
	}
}

func (b *PollBackend) Get(ctx context.Context, id string) (*domain.PollDocument, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (b *PollBackend) List(ctx context.Context) ([]*domain.PollDocument, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listLocked(), nil
}

// Subscribe delivers the current collection straight away, then again after
// every committed write, until ctx ends or the subscription is cancelled.
// onChange runs on the writer's goroutine and must not write back.
func (b *PollBackend) Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (ports.Subscription, error) {
	b.feedMu.Lock()
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = onChange
	initial := b.listLocked()
	b.mu.Unlock()
	onChange(initial)
	b.feedMu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ports.SubscriptionFunc(cancel), nil
}

func (b *PollBackend) AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error {
	return b.write(func(docs map[string]*domain.PollDocument) error {
		doc, ok := docs[id]
		if !ok {
			return domain.ErrDocumentNotFound
		}
		updated, err := domain.ApplyDeltas(doc, deltas)
		if err != nil {
			return err
		}
		docs[id] = updated
		return nil
	})
}

func (b *PollBackend) Create(ctx context.Context, doc *domain.PollDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("nil poll document")
	}
	id := uuid.NewString()
	err := b.write(func(docs map[string]*domain.PollDocument) error {
		stored := doc.Clone()
		stored.ID = id
		docs[id] = stored
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (b *PollBackend) Delete(ctx context.Context, id string) error {
	return b.write(func(docs map[string]*domain.PollDocument) error {
		if _, ok := docs[id]; !ok {
			return domain.ErrDocumentNotFound
		}
		delete(docs, id)
		return nil
	})
}

// Put stores doc under doc.ID as is, bypassing validation. Tests use it to
// seed legacy or drifting documents.
func (b *PollBackend) Put(doc *domain.PollDocument) {
	_ = b.write(func(docs map[string]*domain.PollDocument) error {
		docs[doc.ID] = doc.Clone()
		return nil
	})
}

func (b *PollBackend) write(fn func(map[string]*domain.PollDocument) error) error {
	b.feedMu.Lock()
	defer b.feedMu.Unlock()

	b.mu.Lock()
	if err := fn(b.docs); err != nil {
		b.mu.Unlock()
		return err
	}
	snapshot := b.listLocked()
	subscribers := make([]func([]*domain.PollDocument), 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subscribers = append(subscribers, s)
	}
	b.mu.Unlock()

	for _, s := range subscribers {
		s(cloneDocs(snapshot))
	}
	return nil
}

func (b *PollBackend) listLocked() []*domain.PollDocument {
	out := make([]*domain.PollDocument, 0, len(b.docs))
	for _, doc := range b.docs {
		out = append(out, doc.Clone())
	}
	return out
}

func cloneDocs(docs []*domain.PollDocument) []*domain.PollDocument {
	out := make([]*domain.PollDocument, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
