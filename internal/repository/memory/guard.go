package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aleber123/nytt-sub001/internal/repository"
)

type guardEntry struct {
	inFlight bool
	until    time.Time
}

// SubmissionGuard implements repository.SubmissionGuard with a
// mutex-protected map. It only guards a single replica.
type SubmissionGuard struct {
	mu       sync.Mutex
	entries  map[string]guardEntry
	cooldown time.Duration
	now      func() time.Time
}

// NewSubmissionGuard creates an in-memory submission guard.
func NewSubmissionGuard(cooldown time.Duration) *SubmissionGuard {
	return &SubmissionGuard{
		entries:  make(map[string]guardEntry),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Acquire marks draftID as submitting.
func (g *SubmissionGuard) Acquire(_ context.Context, draftID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.entries[draftID]; ok {
		if e.inFlight {
			return repository.ErrSubmitInFlight
		}
		if now.Before(e.until) {
			return &repository.CooldownError{RetryAfter: e.until.Sub(now)}
		}
	}
	g.entries[draftID] = guardEntry{inFlight: true}
	return nil
}

// Release ends the attempt and starts the cooldown.
func (g *SubmissionGuard) Release(_ context.Context, draftID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cooldown <= 0 {
		delete(g.entries, draftID)
		return nil
	}
	g.entries[draftID] = guardEntry{until: g.now().Add(g.cooldown)}
	return nil
}

// Sweep drops finished cooldowns and returns how many were removed.
func (g *SubmissionGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	n := 0
	for id, e := range g.entries {
		if !e.inFlight && !now.Before(e.until) {
			delete(g.entries, id)
			n++
		}
	}
	return n
}
