package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/aleber123/nytt-sub001/pkg/kafka"
	"github.com/aleber123/nytt-sub001/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicOrderSubmitted = pkgkafka.Topic("storefront", "order", "submitted")
	TopicDraftAbandoned = pkgkafka.Topic("storefront", "draft", "abandoned")
)

const (
	EventOrderSubmitted = "order.submitted"
	EventDraftAbandoned = "draft.abandoned"
)

// AggregateTypeDraft is the aggregate every storefront event is keyed by.
const AggregateTypeDraft = "draft"

// SourceStorefront identifies events published by this service.
const SourceStorefront = "storefront"

// OrderSubmittedData is the payload for an order.submitted event.
type OrderSubmittedData struct {
	DraftID    string `json:"draft_id"`
	OrderID    string `json:"order_id"`
	Flow       string `json:"flow"`
	Country    string `json:"country"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
}

// DraftAbandonedData is the payload for a draft.abandoned event.
type DraftAbandonedData struct {
	DraftID     string `json:"draft_id"`
	Flow        string `json:"flow"`
	CurrentStep int    `json:"current_step"`
	StepID      string `json:"step_id"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderSubmitted publishes an order.submitted event.
func (p *Producer) PublishOrderSubmitted(ctx context.Context, data OrderSubmittedData) error {
	event, err := newDraftEvent(ctx, EventOrderSubmitted, data.DraftID, data.Flow, data)
	if err != nil {
		return fmt.Errorf("create order.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderSubmitted, event); err != nil {
		return fmt.Errorf("publish order.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.submitted event",
		slog.String("draft_id", data.DraftID),
		slog.String("order_id", data.OrderID),
	)
	return nil
}

// PublishDraftAbandoned publishes a draft.abandoned event.
func (p *Producer) PublishDraftAbandoned(ctx context.Context, data DraftAbandonedData) error {
	event, err := newDraftEvent(ctx, EventDraftAbandoned, data.DraftID, data.Flow, data)
	if err != nil {
		return fmt.Errorf("create draft.abandoned event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicDraftAbandoned, event); err != nil {
		return fmt.Errorf("publish draft.abandoned event: %w", err)
	}

	p.logger.DebugContext(ctx, "published draft.abandoned event",
		slog.String("draft_id", data.DraftID),
		slog.String("step_id", data.StepID),
	)
	return nil
}

// newDraftEvent builds an envelope keyed by the draft, tagged with its flow
// and the request's correlation ID when one is set.
func newDraftEvent(ctx context.Context, eventType, draftID, flow string, data any) (*pkgkafka.Event, error) {
	event, err := pkgkafka.NewEvent(eventType, draftID, AggregateTypeDraft, SourceStorefront, data)
	if err != nil {
		return nil, err
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	return event.WithMetadata("flow", flow), nil
}
