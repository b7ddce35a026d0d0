package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/aleber123/nytt-sub001/pkg/kafka"
	"github.com/aleber123/nytt-sub001/pkg/logger"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newProducer(w *fakeWriter) *Producer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProducer(pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, logger), logger)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "storefront.order.submitted", TopicOrderSubmitted)
	assert.Equal(t, "storefront.draft.abandoned", TopicDraftAbandoned)
}

func TestPublishOrderSubmitted(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	err := p.PublishOrderSubmitted(ctx, OrderSubmittedData{
		DraftID: "d-1", OrderID: "SWE000123", Flow: "legalization", Country: "DE", Quantity: 2, TotalPrice: 179000,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicOrderSubmitted, msg.Topic)
	assert.Equal(t, "d-1", string(msg.Key))

	event, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, EventOrderSubmitted, event.EventType)
	assert.Equal(t, AggregateTypeDraft, event.AggregateType)
	assert.Equal(t, SourceStorefront, event.Source)
	assert.Equal(t, "corr-42", event.CorrelationID)
	assert.Equal(t, "legalization", event.Metadata["flow"])

	var data OrderSubmittedData
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "SWE000123", data.OrderID)
	assert.Equal(t, int64(179000), data.TotalPrice)
}

func TestPublishDraftAbandoned(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	err := p.PublishDraftAbandoned(context.Background(), DraftAbandonedData{
		DraftID: "d-2", Flow: "visa", CurrentStep: 3, StepID: "travel_dates",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, TopicDraftAbandoned, w.msgs[0].Topic)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w)

	err := p.PublishDraftAbandoned(context.Background(), DraftAbandonedData{DraftID: "d-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish draft.abandoned event")
}
