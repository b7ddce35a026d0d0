package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aleber123/nytt-sub001/internal/domain"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

const draftKeyPrefix = "draft:"

// SessionStore implements repository.SessionStore using Redis. Every save
// refreshes the TTL, so a draft expires after ttl without activity.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

// Save persists a draft with the configured TTL.
func (s *SessionStore) Save(ctx context.Context, d *domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	if err := s.client.Set(ctx, draftKeyPrefix+d.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft: %w", err)
	}

	return nil
}

// Load retrieves a draft by ID.
func (s *SessionStore) Load(ctx context.Context, id string) (*domain.Draft, error) {
	data, err := s.client.Get(ctx, draftKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("draft", id)
		}
		return nil, fmt.Errorf("redis get draft: %w", err)
	}

	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}

	return &d, nil
}

// Clear removes a draft.
func (s *SessionStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del draft: %w", err)
	}

	return nil
}
