package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aleber123/nytt-sub001/internal/domain"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

type storedDraft struct {
	data      []byte
	expiresAt time.Time
}

// SessionStore implements repository.SessionStore in process memory. Drafts
// are stored serialised so callers never share state with the store.
type SessionStore struct {
	mu     sync.RWMutex
	drafts map[string]storedDraft
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore creates an in-memory session store whose drafts expire
// ttl after their last save.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		drafts: make(map[string]storedDraft),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Save stores a copy of d.
func (s *SessionStore) Save(_ context.Context, d *domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = storedDraft{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Load returns a copy of the stored draft.
func (s *SessionStore) Load(_ context.Context, id string) (*domain.Draft, error) {
	s.mu.RLock()
	stored, ok := s.drafts[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(stored.expiresAt) {
		return nil, apperrors.NotFound("draft", id)
	}

	var d domain.Draft
	if err := json.Unmarshal(stored.data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}

// Clear removes a draft.
func (s *SessionStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

// Sweep drops expired drafts and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, stored := range s.drafts {
		if !now.Before(stored.expiresAt) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}
