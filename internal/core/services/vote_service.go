package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

type voteService struct {
	backend ports.PollBackend
	store   ports.PollStore
	policy  ports.UpdatePolicy
	log     logging.Logger
}

func NewVoteService(backend ports.PollBackend, store ports.PollStore, policy ports.UpdatePolicy, log logging.Logger) ports.VoteService {
	return &voteService{
		backend: backend,
		store:   store,
		policy:  policy,
		log:     log.With("component", "vote_service"),
	}
}

// CastVote moves input.UserID onto input.OptionID with a single atomic update.
// The poll is read from the store snapshot, never fetched.
func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) (ports.VoteResult, error) {
	if input.UserID == "" {
		return ports.VoteResult{}, domain.ErrUnauthenticated
	}

	poll, ok := s.store.Poll(input.PollID)
	if !ok {
		return ports.VoteResult{}, domain.ErrPollNotFound
	}

	plan, err := domain.PlanVote(poll, input.OptionID, input.UserID)
	if err != nil {
		return ports.VoteResult{}, err
	}

	result := ports.VoteResult{
		PollID:           input.PollID,
		OptionID:         input.OptionID,
		PreviousOptionID: plan.PreviousOptionID,
	}
	if plan.NoOp() {
		return result, nil
	}

	if err := s.backend.AtomicUpdate(ctx, input.PollID, plan.Deltas); err != nil {
		s.log.Error(ctx, "vote submission failed", "poll_id", input.PollID, "error", err)
		return ports.VoteResult{}, fmt.Errorf("%w: %w", domain.ErrVoteSubmissionFailed, err)
	}
	result.Changed = true

	if s.policy == ports.UpdateOptimistic {
		s.store.ApplyVote(plan)
	}

	s.log.Info(ctx, "vote recorded",
		"poll_id", input.PollID,
		"option_id", input.OptionID,
		"previous_option_id", plan.PreviousOptionID,
	)
	return result, nil
}

// MyVote returns the option currently holding userID.
func (s *voteService) MyVote(ctx context.Context, pollID, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}
	poll, ok := s.store.Poll(pollID)
	if !ok {
		return "", domain.ErrPollNotFound
	}
	optionID, ok := poll.VoterOption(userID)
	if !ok {
		return "", domain.ErrNotVoted
	}
	return optionID, nil
}
