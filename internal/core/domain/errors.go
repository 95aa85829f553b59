package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidOption    = errors.New("invalid option for this poll")
	ErrUnauthenticated  = errors.New("user is not authenticated")
	ErrUnauthorized     = errors.New("user is not allowed to modify this poll")
	ErrNotVoted         = errors.New("user did not vote on this poll")
	ErrValidation       = errors.New("validation failed")

	ErrVoteSubmissionFailed = errors.New("vote submission failed")
	ErrPollCreationFailed   = errors.New("poll creation failed")
	ErrPollDeletionFailed   = errors.New("poll deletion failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

// FieldProblem names one input field that failed validation.
type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every problem found in a poll-creation request.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Add(field, reason string) {
	e.Problems = append(e.Problems, FieldProblem{Field: field, Reason: reason})
}

func (e *ValidationError) Empty() bool {
	return len(e.Problems) == 0
}

// Field returns the first offending field name.
func (e *ValidationError) Field() string {
	if len(e.Problems) == 0 {
		return ""
	}
	return e.Problems[0].Field
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
