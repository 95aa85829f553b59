package ports

import "context"

type VoteInput struct {
	PollID   string
	OptionID string
	UserID   string
}

type VoteResult struct {
	PollID           string `json:"poll_id"`
	OptionID         string `json:"option_id"`
	PreviousOptionID string `json:"previous_option_id,omitempty"`
	Changed          bool   `json:"changed"`
}

type VoteService interface {
	CastVote(ctx context.Context, input VoteInput) (VoteResult, error)
	MyVote(ctx context.Context, pollID, userID string) (string, error)
}
