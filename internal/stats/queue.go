package stats

import (
	"context"
	"fmt"
	"log/slog"

	"prosreg/internal/platform/kafka"
	"prosreg/pkg/domain"
)

// QueuePublisher enqueues refresh requests on the shared topic so any
// process in the group can apply them. Delivery is at-least-once; Refresh is
// idempotent, so redelivery is harmless.
type QueuePublisher struct {
	publisher *kafka.Publisher
	topic     string
}

func NewQueuePublisher(publisher *kafka.Publisher, topic string) *QueuePublisher {
	return &QueuePublisher{publisher: publisher, topic: topic}
}

// Enqueue publishes one refresh request keyed by offender ID, so requests
// for the same offender land on the same partition in order.
func (q *QueuePublisher) Enqueue(ctx context.Context, id domain.OffenderID) error {
	key := []byte(id.String())
	if err := q.publisher.Publish(ctx, q.topic, key, key); err != nil {
		return fmt.Errorf("enqueue refresh: %w", err)
	}
	return nil
}

// RefreshHandler applies queued refresh requests. Malformed messages are
// logged and committed rather than redelivered forever.
type RefreshHandler struct {
	refresher *Refresher
	logger    *slog.Logger
}

func NewRefreshHandler(refresher *Refresher, logger *slog.Logger) *RefreshHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RefreshHandler{refresher: refresher, logger: logger}
}

func (h *RefreshHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	id, err := domain.ParseOffenderID(string(msg.Value))
	if err != nil {
		h.logger.WarnContext(ctx, "dropping malformed refresh request",
			"topic", msg.Topic, "value", string(msg.Value))
		return nil
	}
	return h.refresher.Refresh(ctx, id)
}
