package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// Subscription is a live change-feed registration.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	f()
}

// PollBackend is the hosted document store holding poll documents.
//
// AtomicUpdate must apply every delta or none of them. Subscribe delivers the
// full collection on every change, starting with the current state.
type PollBackend interface {
	Get(ctx context.Context, id string) (*domain.PollDocument, error)
	List(ctx context.Context) ([]*domain.PollDocument, error)
	Subscribe(ctx context.Context, onChange func([]*domain.PollDocument)) (Subscription, error)
	AtomicUpdate(ctx context.Context, id string, deltas []domain.FieldDelta) error
	Create(ctx context.Context, doc *domain.PollDocument) (string, error)
	Delete(ctx context.Context, id string) error
}
