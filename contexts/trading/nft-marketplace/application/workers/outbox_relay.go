package workers

import (
	"context"
	"encoding/json"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/ports"

	"go.uber.org/zap"
)

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *zap.Logger
}

// RunOnce publishes pending outbox rows in insertion order and stops at the
// first failure so later events for the same listing are not reordered.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = application.EventsTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			application.LogFields("nft_marketplace_outbox_list_failed", "worker", zap.Error(err))...,
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("outbox payload decode failed",
				application.LogFields("nft_marketplace_outbox_decode_failed", "worker",
					zap.String("outbox_id", message.OutboxID),
					zap.Error(err),
				)...,
			)
			return err
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				application.LogFields("nft_marketplace_outbox_publish_failed", "worker",
					zap.String("outbox_id", message.OutboxID),
					zap.String("event_id", envelope.EventID),
					zap.String("event_type", envelope.EventType),
					zap.Error(err),
				)...,
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, now); err != nil {
			logger.Error("outbox mark sent failed",
				application.LogFields("nft_marketplace_outbox_mark_sent_failed", "worker",
					zap.String("outbox_id", message.OutboxID),
					zap.Error(err),
				)...,
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("outbox relay cycle completed",
			application.LogFields("nft_marketplace_outbox_relay_completed", "worker",
				zap.Int("sent_count", len(pending)),
			)...,
		)
	}
	return nil
}
