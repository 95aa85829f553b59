package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type CreatePollInput struct {
	Question  string
	Options   []string
	CreatorID string
}

type ListPollsInput struct {
	Query string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	Delete(ctx context.Context, pollID, requesterID string) error
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]domain.Poll, error)
	Results(ctx context.Context, id string) (*domain.PollResults, error)
}
