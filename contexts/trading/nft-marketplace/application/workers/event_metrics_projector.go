package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const defaultConsumerGroup = "nft-marketplace-metrics-cg"

// EventMetricsProjector consumes relayed marketplace events and feeds sale
// volume, fee and withdrawal counters. Redelivered events are skipped.
type EventMetricsProjector struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Metrics       ports.MarketMetrics
	Clock         ports.Clock
	Topic         string
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *zap.Logger
}

type settlementPayload struct {
	SalePrice string `json:"sale_price"`
	Fee       string `json:"fee"`
	Amount    string `json:"amount"`
}

func (p EventMetricsProjector) Start(ctx context.Context) error {
	group := p.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	topic := p.Topic
	if topic == "" {
		topic = application.EventsTopic
	}
	return p.Subscriber.Subscribe(ctx, topic, group, p.Handle)
}

func (p EventMetricsProjector) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(p.Logger)
	now := time.Now().UTC()
	if p.Clock != nil {
		now = p.Clock.Now().UTC()
	}

	alreadyProcessed, err := p.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(p.dedupTTL()))
	if err != nil {
		logger.Error("marketplace event dedupe failed",
			application.LogFields("nft_marketplace_projector_dedupe_failed", "worker",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)...,
		)
		return err
	}
	if alreadyProcessed {
		return nil
	}

	p.Metrics.ObserveEvent(event.EventType)

	switch event.EventType {
	case application.EventItemSold:
		var payload settlementPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return fmt.Errorf("decode item_sold payload: %w", err)
		}
		price, err := uint256.FromDecimal(payload.SalePrice)
		if err != nil {
			return fmt.Errorf("decode item_sold sale_price: %w", err)
		}
		fee, err := uint256.FromDecimal(payload.Fee)
		if err != nil {
			return fmt.Errorf("decode item_sold fee: %w", err)
		}
		p.Metrics.ObserveSettlement(price, fee)
	case application.EventFeesWithdrawn:
		var payload settlementPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return fmt.Errorf("decode fees_withdrawn payload: %w", err)
		}
		amount, err := uint256.FromDecimal(payload.Amount)
		if err != nil {
			return fmt.Errorf("decode fees_withdrawn amount: %w", err)
		}
		p.Metrics.ObserveWithdrawal(amount)
	}

	logger.Debug("marketplace event projected",
		application.LogFields("nft_marketplace_event_projected", "worker",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
		)...,
	)
	return nil
}

func (p EventMetricsProjector) dedupTTL() time.Duration {
	if p.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return p.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
