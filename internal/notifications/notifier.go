package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

// Notifier announces order lifecycle events. Callers treat failures as best effort.
type Notifier interface {
	OrderCompleted(ctx context.Context, event OrderCompleted) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubNotifier publishes events to a single Pub/Sub topic.
type PubSubNotifier struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewPubSubNotifier wraps a Pub/Sub publisher handle.
func NewPubSubNotifier(p *gcppubsub.Publisher, logg *logger.Logger) (*PubSubNotifier, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubNotifier(&gcpPublisher{Publisher: p}, logg)
}

func newPubSubNotifier(pub publisher, logg *logger.Logger) (*PubSubNotifier, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PubSubNotifier{
		pub:     pub,
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (n *PubSubNotifier) OrderCompleted(ctx context.Context, event OrderCompleted) error {
	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  EventOrderCompleted,
		OccurredAt: n.now(),
		Data:       event,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventOrderCompleted, err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":     envelope.EventID,
			"event_type":   EventOrderCompleted,
			"aggregate_id": event.OrderID.String(),
			"created_at":   envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	result := n.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil for %s", EventOrderCompleted)
	}
	id, err := result.Get(publishCtx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventOrderCompleted, err)
	}

	logCtx := n.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"message_id": id,
	})
	n.logg.Info(n.logg.WithOrderID(logCtx, event.OrderID.String()), "notifications.order_completed.published")
	return nil
}

// LogNotifier only logs events. Used when Pub/Sub is disabled.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) OrderCompleted(ctx context.Context, event OrderCompleted) error {
	if n == nil || n.logg == nil {
		return nil
	}
	ctx = n.logg.WithOrderID(ctx, event.OrderID.String())
	n.logg.Info(n.logg.WithField(ctx, "event_type", EventOrderCompleted), "notifications.disabled.skipped")
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
