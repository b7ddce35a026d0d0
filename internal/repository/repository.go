package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleber123/nytt-sub001/internal/domain"
)

// SessionStore persists drafts between requests.
type SessionStore interface {
	// Save writes the draft, replacing any stored version and refreshing its
	// expiry.
	Save(ctx context.Context, d *domain.Draft) error

	// Load returns the draft or a NOT_FOUND AppError when it doesn't exist
	// or has expired.
	Load(ctx context.Context, id string) (*domain.Draft, error)

	// Clear removes the draft. Clearing a missing draft is not an error.
	Clear(ctx context.Context, id string) error
}

// SubmissionGuard admits at most one submission per draft at a time and
// enforces a cooldown between attempts.
type SubmissionGuard interface {
	// Acquire marks the draft as submitting. It fails with ErrSubmitInFlight
	// while another attempt runs and with a *CooldownError during cooldown.
	Acquire(ctx context.Context, draftID string) error

	// Release ends the attempt and starts the cooldown.
	Release(ctx context.Context, draftID string) error
}

// EmailQueue is the write side of the outbound email table.
type EmailQueue interface {
	Enqueue(ctx context.Context, records ...domain.EmailRecord) error
}

// ErrSubmitInFlight is returned by Acquire while a submission is running.
var ErrSubmitInFlight = errors.New("submission already in progress")

// CooldownError is returned by Acquire during the cooldown that follows a
// submission attempt.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("submission cooling down, retry in %s", e.RetryAfter.Round(time.Second))
}
