package messaging

import (
	"context"
	"sync"

	contractsv1 "emporium/contracts/gen/events/v1"

	"go.uber.org/zap"
)

// Handler consumes one envelope. A returned error is logged; in-process
// delivery does not retry.
type Handler func(context.Context, contractsv1.Envelope) error

// Bus is the in-process event bus used when no broker is configured. Each
// subscription gets a buffered channel; a full buffer drops the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan contractsv1.Envelope
	logger      *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.L()
	}
	return &Bus{
		subscribers: make(map[string][]chan contractsv1.Envelope),
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if err := event.Validate(); err != nil {
		return err
	}
	b.mu.RLock()
	subs := append([]chan contractsv1.Envelope(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				zap.String("event", "bus_publish_drop"),
				zap.String("module", "internal/platform/messaging"),
				zap.String("layer", "platform"),
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
			)
		}
	}

	b.logger.Debug("event published",
		zap.String("event", "bus_publish"),
		zap.String("module", "internal/platform/messaging"),
		zap.String("layer", "platform"),
		zap.String("topic", topic),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	ch := make(chan contractsv1.Envelope, 128)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						zap.String("event", "bus_consume_failed"),
						zap.String("module", "internal/platform/messaging"),
						zap.String("layer", "platform"),
						zap.String("topic", topic),
						zap.String("consumer_group", consumerGroup),
						zap.String("event_id", event.EventID),
						zap.String("event_type", event.EventType),
						zap.Error(err),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) removeSubscriber(topic string, target chan contractsv1.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan contractsv1.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
