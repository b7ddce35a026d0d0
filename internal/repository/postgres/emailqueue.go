package postgres

import (
	"context"
	"fmt"

	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/pkg/database"
)

const insertEmailSQL = `
		INSERT INTO email_queue (id, name, email, subject, message, order_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// EmailQueue implements repository.EmailQueue on the email_queue table. A
// separate delivery worker owns the read side.
type EmailQueue struct {
	pool database.DBTX
}

// NewEmailQueue creates a new PostgreSQL-backed email queue.
func NewEmailQueue(pool database.DBTX) *EmailQueue {
	return &EmailQueue{pool: pool}
}

// Enqueue inserts records in one transaction so an order never gets only
// half of its emails.
func (q *EmailQueue) Enqueue(ctx context.Context, records ...domain.EmailRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, "EnqueueEmail", insertEmailSQL)
	defer func() { end(err) }()

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin email enqueue: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, rec := range records {
		_, err = tx.Exec(ctx, insertEmailSQL,
			rec.ID,
			rec.Name,
			rec.Email,
			rec.Subject,
			rec.Message,
			rec.OrderID,
			rec.Status,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert email %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit email enqueue: %w", err)
	}
	return nil
}
