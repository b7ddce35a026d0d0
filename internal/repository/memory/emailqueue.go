package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aleber123/nytt-sub001/internal/domain"
)

// EmailQueue keeps enqueued email records in memory. It backs local
// development and tests when no database is configured.
type EmailQueue struct {
	mu      sync.Mutex
	records []domain.EmailRecord
}

// NewEmailQueue creates an empty in-memory email queue.
func NewEmailQueue() *EmailQueue {
	return &EmailQueue{}
}

// Enqueue appends records.
func (q *EmailQueue) Enqueue(_ context.Context, records ...domain.EmailRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, records...)
	return nil
}

// Records returns a copy of everything enqueued so far.
func (q *EmailQueue) Records() []domain.EmailRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.records)
}
