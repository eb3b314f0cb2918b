package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractsv1 "emporium/contracts/gen/events/v1"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const envelopeField = "envelope"

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// RedisStreams publishes envelopes to one stream per topic and consumes them
// through consumer groups, so multiple worker processes share the load.
// Entries are acknowledged only after the handler succeeds. Entries left
// pending longer than claimIdle, by a crashed consumer or a failed handler,
// are claimed and redelivered before new entries are read.
type RedisStreams struct {
	client    streamClient
	prefix    string
	consumer  string
	maxLen    int64
	block     time.Duration
	claimIdle time.Duration
	logger    *zap.Logger
}

func NewRedisStreams(client streamClient, prefix string, logger *zap.Logger) *RedisStreams {
	if logger == nil {
		logger = zap.L()
	}
	return &RedisStreams{
		client:    client,
		prefix:    prefix,
		consumer:  "consumer-" + uuid.NewString(),
		maxLen:    100000,
		block:     2 * time.Second,
		claimIdle: time.Minute,
		logger:    logger,
	}
}

func (s *RedisStreams) stream(topic string) string {
	return s.prefix + topic
}

func (s *RedisStreams) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if err := event.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", event.EventID, err)
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream(topic),
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			envelopeField:   payload,
			"event_type":    event.EventType,
			"partition_key": event.PartitionKey,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream(topic), err)
	}

	s.logger.Debug("event appended to stream",
		zap.String("event", "redis_stream_publish"),
		zap.String("module", "internal/platform/messaging"),
		zap.String("layer", "platform"),
		zap.String("stream", s.stream(topic)),
		zap.String("entry_id", id),
		zap.String("event_id", event.EventID),
	)
	return nil
}

func (s *RedisStreams) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	stream := s.stream(topic)
	err := s.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", consumerGroup, stream, err)
	}

	go func() {
		for ctx.Err() == nil {
			if err := s.consumeBatch(ctx, stream, consumerGroup, handler); err != nil && ctx.Err() == nil {
				s.logger.Warn("stream read failed",
					zap.String("event", "redis_stream_read_failed"),
					zap.String("module", "internal/platform/messaging"),
					zap.String("layer", "platform"),
					zap.String("stream", stream),
					zap.Error(err),
				)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}()
	return nil
}

func (s *RedisStreams) consumeBatch(
	ctx context.Context,
	stream string,
	group string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		MinIdle:  s.claimIdle,
		Start:    "0-0",
		Count:    32,
		Consumer: s.consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("xautoclaim %s: %w", stream, err)
	}
	if len(claimed) > 0 {
		s.logger.Info("reclaimed pending stream entries",
			zap.String("event", "redis_stream_reclaimed"),
			zap.String("module", "internal/platform/messaging"),
			zap.String("layer", "platform"),
			zap.String("stream", stream),
			zap.String("consumer_group", group),
			zap.Int("entries", len(claimed)),
		)
		return s.handleEntries(ctx, stream, group, claimed, handler)
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: s.consumer,
		Streams:  []string{stream, ">"},
		Count:    32,
		Block:    s.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entries := range streams {
		if err := s.handleEntries(ctx, stream, group, entries.Messages, handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStreams) handleEntries(
	ctx context.Context,
	stream string,
	group string,
	messages []redis.XMessage,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	for _, message := range messages {
		envelope, err := decodeEntry(message)
		if err != nil {
			// Undecodable entries would never succeed; ack and move on.
			s.logger.Error("stream entry decode failed",
				zap.String("event", "redis_stream_decode_failed"),
				zap.String("module", "internal/platform/messaging"),
				zap.String("layer", "platform"),
				zap.String("entry_id", message.ID),
				zap.Error(err),
			)
			_ = s.client.XAck(ctx, stream, group, message.ID).Err()
			continue
		}
		if err := handler(ctx, envelope); err != nil {
			s.logger.Error("consumer handler failed",
				zap.String("event", "redis_stream_consume_failed"),
				zap.String("module", "internal/platform/messaging"),
				zap.String("layer", "platform"),
				zap.String("stream", stream),
				zap.String("consumer_group", group),
				zap.String("event_id", envelope.EventID),
				zap.Error(err),
			)
			continue
		}
		if err := s.client.XAck(ctx, stream, group, message.ID).Err(); err != nil {
			return fmt.Errorf("xack %s: %w", message.ID, err)
		}
	}
	return nil
}

func decodeEntry(message redis.XMessage) (contractsv1.Envelope, error) {
	var envelope contractsv1.Envelope
	raw, ok := message.Values[envelopeField]
	if !ok {
		return envelope, fmt.Errorf("entry %s has no %s field", message.ID, envelopeField)
	}
	var payload []byte
	switch value := raw.(type) {
	case string:
		payload = []byte(value)
	case []byte:
		payload = value
	default:
		return envelope, fmt.Errorf("entry %s has unexpected %s type %T", message.ID, envelopeField, raw)
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return envelope, err
	}
	return envelope, nil
}
