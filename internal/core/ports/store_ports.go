package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type StoreStatus string

const (
	StoreIdle      StoreStatus = "idle"
	StoreLoading   StoreStatus = "loading"
	StoreSucceeded StoreStatus = "succeeded"
	StoreFailed    StoreStatus = "failed"
)

// UpdatePolicy selects when local state reflects a successful write.
type UpdatePolicy string

const (
	// UpdateConfirm waits for the change feed to deliver the new document.
	UpdateConfirm UpdatePolicy = "confirm"
	// UpdateOptimistic patches the local snapshot as soon as the backend acks.
	UpdateOptimistic UpdatePolicy = "optimistic"
)

func ParseUpdatePolicy(s string) (UpdatePolicy, bool) {
	switch UpdatePolicy(s) {
	case UpdateConfirm, "":
		return UpdateConfirm, true
	case UpdateOptimistic:
		return UpdateOptimistic, true
	}
	return "", false
}

type PollStore interface {
	Start(ctx context.Context) error
	Stop()
	Subscribe(onUpdate func([]domain.Poll)) (unsubscribe func())
	Snapshot() []domain.Poll
	Poll(id string) (domain.Poll, bool)
	Status() (StoreStatus, error)

	// The methods below patch the local snapshot; only the optimistic
	// policy calls them.
	ApplyVote(plan domain.VotePlan)
	PutPoll(poll domain.Poll)
	RemovePoll(id string)
}
