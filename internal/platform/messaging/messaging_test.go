package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	contractsv1 "emporium/contracts/gen/events/v1"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEnvelope(id string, eventType string) contractsv1.Envelope {
	return contractsv1.Envelope{
		EventID:          id,
		EventType:        eventType,
		SchemaVersion:    contractsv1.CurrentSchemaVersion,
		PartitionKeyPath: "listing_key",
		PartitionKey:     "0xc1:1",
	}
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "marketplace.events", "test-cg", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "marketplace.events", testEnvelope("evt-1", "marketplace.item_sold")))
	require.NoError(t, bus.Publish(ctx, "other.topic", testEnvelope("evt-2", "marketplace.item_sold")))
	require.ErrorIs(t, bus.Publish(ctx, "marketplace.events", contractsv1.Envelope{EventID: "evt-3"}), contractsv1.ErrInvalidEnvelope)

	select {
	case event := <-received:
		require.Equal(t, "evt-1", event.EventID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
	select {
	case event := <-received:
		t.Fatalf("unexpected delivery from another topic: %s", event.EventID)
	case <-time.After(20 * time.Millisecond):
	}
}

type fakeStreamClient struct {
	mu        sync.Mutex
	added     []*redis.XAddArgs
	batches   [][]redis.XStream
	claims    [][]redis.XMessage
	claimArgs []*redis.XAutoClaimArgs
	reads     int
	acked     []string
}

func (c *fakeStreamClient) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, a)
	return redis.NewStringResult("1-0", nil)
}

func (c *fakeStreamClient) XGroupCreateMkStream(_ context.Context, _, _, _ string) *redis.StatusCmd {
	return redis.NewStatusResult("", errors.New("BUSYGROUP Consumer Group name already exists"))
}

func (c *fakeStreamClient) XReadGroup(_ context.Context, _ *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if len(c.batches) == 0 {
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	return redis.NewXStreamSliceCmdResult(next, nil)
}

func (c *fakeStreamClient) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claimArgs = append(c.claimArgs, a)
	cmd := redis.NewXAutoClaimCmd(ctx)
	if len(c.claims) == 0 {
		cmd.SetVal(nil, "0-0")
		return cmd
	}
	cmd.SetVal(c.claims[0], "0-0")
	c.claims = c.claims[1:]
	return cmd
}

func (c *fakeStreamClient) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked = append(c.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func TestRedisStreamsPublishAppendsEnvelope(t *testing.T) {
	client := &fakeStreamClient{}
	streams := NewRedisStreams(client, "emporium:", zap.NewNop())

	err := streams.Publish(context.Background(), "marketplace.events", testEnvelope("evt-1", "marketplace.listing_created"))
	require.NoError(t, err)
	require.ErrorIs(t, streams.Publish(context.Background(), "marketplace.events", contractsv1.Envelope{}), contractsv1.ErrInvalidEnvelope)
	require.Len(t, client.added, 1)
	require.Equal(t, "emporium:marketplace.events", client.added[0].Stream)

	values := client.added[0].Values.(map[string]any)
	var decoded contractsv1.Envelope
	require.NoError(t, json.Unmarshal(values[envelopeField].([]byte), &decoded))
	require.Equal(t, "evt-1", decoded.EventID)
}

func TestRedisStreamsAcksOnlyHandledEntries(t *testing.T) {
	good, err := json.Marshal(contractsv1.Envelope{EventID: "evt-good"})
	require.NoError(t, err)
	failing, err := json.Marshal(contractsv1.Envelope{EventID: "evt-fail"})
	require.NoError(t, err)

	client := &fakeStreamClient{batches: [][]redis.XStream{{{
		Stream: "emporium:marketplace.events",
		Messages: []redis.XMessage{
			{ID: "1-0", Values: map[string]interface{}{envelopeField: string(good)}},
			{ID: "2-0", Values: map[string]interface{}{envelopeField: string(failing)}},
			{ID: "3-0", Values: map[string]interface{}{"other": "x"}},
		},
	}}}}
	streams := NewRedisStreams(client, "emporium:", zap.NewNop())

	var handled []string
	err = streams.consumeBatch(context.Background(), "emporium:marketplace.events", "cg", func(_ context.Context, event contractsv1.Envelope) error {
		handled = append(handled, event.EventID)
		if event.EventID == "evt-fail" {
			return errors.New("projection failed")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"evt-good", "evt-fail"}, handled)
	require.Equal(t, []string{"1-0", "3-0"}, client.acked)

	require.NoError(t, streams.consumeBatch(context.Background(), "emporium:marketplace.events", "cg", func(context.Context, contractsv1.Envelope) error {
		t.Fatal("no entries expected")
		return nil
	}))
}

func TestRedisStreamsReclaimsIdlePendingEntries(t *testing.T) {
	stale, err := json.Marshal(testEnvelope("evt-stale", "marketplace.item_sold"))
	require.NoError(t, err)
	fresh, err := json.Marshal(testEnvelope("evt-fresh", "marketplace.item_sold"))
	require.NoError(t, err)

	client := &fakeStreamClient{
		claims: [][]redis.XMessage{{{ID: "1-0", Values: map[string]interface{}{envelopeField: string(stale)}}}},
		batches: [][]redis.XStream{{{
			Stream:   "emporium:marketplace.events",
			Messages: []redis.XMessage{{ID: "2-0", Values: map[string]interface{}{envelopeField: string(fresh)}}},
		}}},
	}
	streams := NewRedisStreams(client, "emporium:", zap.NewNop())

	var handled []string
	handler := func(_ context.Context, event contractsv1.Envelope) error {
		handled = append(handled, event.EventID)
		return nil
	}

	// Entries abandoned by another consumer come back before new reads.
	require.NoError(t, streams.consumeBatch(context.Background(), "emporium:marketplace.events", "cg", handler))
	require.Equal(t, []string{"evt-stale"}, handled)
	require.Zero(t, client.reads)
	require.Equal(t, "cg", client.claimArgs[0].Group)
	require.Equal(t, time.Minute, client.claimArgs[0].MinIdle)
	require.Equal(t, streams.consumer, client.claimArgs[0].Consumer)

	require.NoError(t, streams.consumeBatch(context.Background(), "emporium:marketplace.events", "cg", handler))
	require.Equal(t, []string{"evt-stale", "evt-fresh"}, handled)
	require.Equal(t, 1, client.reads)
	require.Equal(t, []string{"1-0", "2-0"}, client.acked)
}
