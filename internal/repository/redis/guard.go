package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aleber123/nytt-sub001/internal/repository"
)

const (
	guardKeyPrefix = "submit:"
	stateInFlight  = "inflight"
	stateCooldown  = "cooldown"
)

// SubmissionGuard implements repository.SubmissionGuard with one Redis key
// per draft, so replicas share the guard. The in-flight marker expires
// after inflightTTL in case the holder dies before releasing.
type SubmissionGuard struct {
	client      *redis.Client
	inflightTTL time.Duration
	cooldown    time.Duration
}

// NewSubmissionGuard creates a Redis-backed submission guard.
func NewSubmissionGuard(client *redis.Client, inflightTTL, cooldown time.Duration) *SubmissionGuard {
	return &SubmissionGuard{
		client:      client,
		inflightTTL: inflightTTL,
		cooldown:    cooldown,
	}
}

// Acquire sets the in-flight marker with SET NX. When the key exists its
// value tells a running attempt from a cooldown.
func (g *SubmissionGuard) Acquire(ctx context.Context, draftID string) error {
	key := guardKeyPrefix + draftID

	// A key that expires between SET NX and GET is retried once.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := g.client.SetNX(ctx, key, stateInFlight, g.inflightTTL).Result()
		if err != nil {
			return fmt.Errorf("redis setnx submit guard: %w", err)
		}
		if ok {
			return nil
		}

		state, err := g.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis get submit guard: %w", err)
		}
		if state != stateCooldown {
			return repository.ErrSubmitInFlight
		}

		ttl, err := g.client.PTTL(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redis pttl submit guard: %w", err)
		}
		return &repository.CooldownError{RetryAfter: max(ttl, 0)}
	}
	return repository.ErrSubmitInFlight
}

// Release replaces the in-flight marker with a cooldown marker.
func (g *SubmissionGuard) Release(ctx context.Context, draftID string) error {
	key := guardKeyPrefix + draftID

	if g.cooldown <= 0 {
		if err := g.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del submit guard: %w", err)
		}
		return nil
	}
	if err := g.client.Set(ctx, key, stateCooldown, g.cooldown).Err(); err != nil {
		return fmt.Errorf("redis set submit cooldown: %w", err)
	}
	return nil
}
