package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

const (
	minQuestionLength = 5
	minOptions        = 2
	unknownCreator    = "Unknown"
)

type pollService struct {
	backend ports.PollBackend
	store   ports.PollStore
	users   ports.UserRepository
	policy  ports.UpdatePolicy
	log     logging.Logger
	now     func() time.Time
}

type PollServiceOption func(*pollService)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) PollServiceOption {
	return func(s *pollService) {
		s.now = now
	}
}

func NewPollService(
	backend ports.PollBackend,
	store ports.PollStore,
	users ports.UserRepository,
	policy ports.UpdatePolicy,
	log logging.Logger,
	opts ...PollServiceOption,
) ports.PollService {
	s := &pollService{
		backend: backend,
		store:   store,
		users:   users,
		policy:  policy,
		log:     log.With("component", "poll_service"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if input.CreatorID == "" {
		return nil, domain.ErrUnauthenticated
	}

	question, options, err := validatePollInput(input)
	if err != nil {
		return nil, err
	}

	doc := domain.NewPollDocument(question, input.CreatorID, s.creatorName(ctx, input.CreatorID), options, s.now())

	id, err := s.backend.Create(ctx, doc)
	if err != nil {
		s.log.Error(ctx, "poll creation failed", "creator_id", input.CreatorID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPollCreationFailed, err)
	}
	doc.ID = id

	poll := doc.Normalize()
	if s.policy == ports.UpdateOptimistic {
		s.store.PutPoll(poll)
	}

	s.log.Info(ctx, "poll created", "poll_id", id, "options", len(options))
	return &poll, nil
}

func validatePollInput(input ports.CreatePollInput) (string, []string, error) {
	verr := &domain.ValidationError{}

	question := strings.TrimSpace(input.Question)
	if utf8.RuneCountInString(question) < minQuestionLength {
		verr.Add("question", fmt.Sprintf("must be at least %d characters", minQuestionLength))
	}

	if len(input.Options) < minOptions {
		verr.Add("options", fmt.Sprintf("at least %d options are required", minOptions))
	}

	options := make([]string, len(input.Options))
	for i, text := range input.Options {
		options[i] = strings.TrimSpace(text)
		if options[i] == "" {
			verr.Add(fmt.Sprintf("options[%d]", i), "must not be empty")
		}
	}

	if !verr.Empty() {
		return "", nil, verr
	}
	return question, options, nil
}

// creatorName falls back to "Unknown" when the profile is missing or the
// lookup fails; neither blocks creation.
func (s *pollService) creatorName(ctx context.Context, creatorID string) string {
	if s.users == nil {
		return unknownCreator
	}
	user, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		s.log.Warn(ctx, "creator lookup failed", "creator_id", creatorID, "error", err)
		return unknownCreator
	}
	if user == nil || strings.TrimSpace(user.Name) == "" {
		return unknownCreator
	}
	return user.Name
}

// Delete reads the document fresh so ownership is checked against the
// backend, not the cached copy.
func (s *pollService) Delete(ctx context.Context, pollID, requesterID string) error {
	if requesterID == "" {
		return domain.ErrUnauthenticated
	}

	doc, err := s.backend.Get(ctx, pollID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPollDeletionFailed, err)
	}

	if doc.CreatorID != requesterID {
		s.log.Warn(ctx, "delete rejected", "poll_id", pollID, "requester_id", requesterID)
		return domain.ErrUnauthorized
	}

	if err := s.backend.Delete(ctx, pollID); err != nil {
		s.log.Error(ctx, "poll deletion failed", "poll_id", pollID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPollDeletionFailed, err)
	}

	if s.policy == ports.UpdateOptimistic {
		s.store.RemovePoll(pollID)
	}

	s.log.Info(ctx, "poll deleted", "poll_id", pollID)
	return nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	poll, ok := s.store.Poll(id)
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return &poll, nil
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]domain.Poll, error) {
	all := s.store.Snapshot()
	if strings.TrimSpace(input.Query) == "" {
		return all, nil
	}
	out := make([]domain.Poll, 0, len(all))
	for _, p := range all {
		if p.MatchesQuery(input.Query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *pollService) Results(ctx context.Context, id string) (*domain.PollResults, error) {
	poll, ok := s.store.Poll(id)
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	res := poll.Results()
	return &res, nil
}
