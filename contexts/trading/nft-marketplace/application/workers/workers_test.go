package workers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"emporium/contexts/trading/nft-marketplace/adapters/memory"
	"emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/application/commands"
	"emporium/contexts/trading/nft-marketplace/application/workers"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	operator   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	collection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []ports.EventEnvelope
	failAfter int
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter > 0 && len(p.published) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

type recordingMetrics struct {
	events      []string
	volume      uint256.Int
	fees        uint256.Int
	withdrawals uint256.Int
}

func (m *recordingMetrics) ObserveEvent(eventType string) {
	m.events = append(m.events, eventType)
}

func (m *recordingMetrics) ObserveSettlement(price *uint256.Int, fee *uint256.Int) {
	m.volume.Add(&m.volume, price)
	m.fees.Add(&m.fees, fee)
}

func (m *recordingMetrics) ObserveWithdrawal(amount *uint256.Int) {
	m.withdrawals.Add(&m.withdrawals, amount)
}

type harness struct {
	market   entities.Marketplace
	store    *memory.Store
	registry *memory.Registry
	locker   *memory.KeyLocker
	list     commands.ListItemUseCase
	buy      commands.BuyItemUseCase
	withdraw commands.WithdrawAdminFeesUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	market, err := entities.NewMarketplace(owner, operator, entities.DefaultFeeDivisor)
	require.NoError(t, err)

	store := memory.NewStore(nil)
	registry := memory.NewRegistry(operator)
	ledger := memory.NewLedger()
	locker := memory.NewKeyLocker()
	require.NoError(t, registry.DeployCollection(collection, "Bob", "BOBS"))
	_, err = registry.Mint(collection, alice, 3)
	require.NoError(t, err)
	require.NoError(t, registry.SetApprovalForAll(collection, alice, operator, true))

	return &harness{
		market:   market,
		store:    store,
		registry: registry,
		locker:   locker,
		list: commands.ListItemUseCase{
			Market: market, Listings: store, Registry: registry, Locker: locker, Clock: store, IDGenerator: store,
		},
		buy: commands.BuyItemUseCase{
			Market: market, Listings: store, Sales: store, Payments: ledger, Registry: registry,
			Locker: locker, Clock: store, IDGenerator: store,
		},
		withdraw: commands.WithdrawAdminFeesUseCase{
			Market: market, Fees: store, Payments: ledger, Locker: locker, Clock: store, IDGenerator: store,
		},
	}
}

func (h *harness) listToken(t *testing.T, id uint64, price uint64) {
	t.Helper()
	_, err := h.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: collection,
		TokenID:    *uint256.NewInt(id),
		Price:      *uint256.NewInt(price),
	})
	require.NoError(t, err)
}

func (h *harness) isListed(t *testing.T, id uint64) bool {
	t.Helper()
	listing, err := h.store.GetListing(context.Background(), entities.NewListingKey(collection, uint256.NewInt(id)))
	require.NoError(t, err)
	return listing.IsActive()
}

func TestOutboxRelayPublishesInOrderAndMarksSent(t *testing.T) {
	h := newHarness(t)
	h.listToken(t, 0, 100)
	h.listToken(t, 1, 200)

	publisher := &recordingPublisher{}
	relay := workers.OutboxRelay{Outbox: h.store, Publisher: publisher, Clock: h.store}

	require.NoError(t, relay.RunOnce(context.Background()))
	require.Len(t, publisher.published, 2)
	require.Equal(t, application.EventListingCreated, publisher.published[0].EventType)
	require.Equal(t, "listing_key", publisher.published[0].PartitionKeyPath)

	pending, err := h.store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, relay.RunOnce(context.Background()))
	require.Len(t, publisher.published, 2)
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	h := newHarness(t)
	h.listToken(t, 0, 100)
	h.listToken(t, 1, 200)
	h.listToken(t, 2, 300)

	publisher := &recordingPublisher{failAfter: 1}
	relay := workers.OutboxRelay{Outbox: h.store, Publisher: publisher, Clock: h.store}

	require.Error(t, relay.RunOnce(context.Background()))
	pending, err := h.store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestStaleListingSweeperCancelsUnsettleableListings(t *testing.T) {
	h := newHarness(t)
	h.listToken(t, 0, 100)
	h.listToken(t, 1, 200)
	h.listToken(t, 2, 300)

	require.NoError(t, h.registry.Transfer(collection, alice, bob, uint256.NewInt(0)))

	sweeper := workers.StaleListingSweeper{
		Market:      h.market,
		Listings:    h.store,
		Registry:    h.registry,
		Locker:      h.locker,
		Clock:       h.store,
		IDGenerator: h.store,
		PageSize:    1,
	}
	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.False(t, h.isListed(t, 0))
	require.True(t, h.isListed(t, 1))
	require.True(t, h.isListed(t, 2))

	require.NoError(t, h.registry.SetApprovalForAll(collection, alice, operator, false))
	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.False(t, h.isListed(t, 1))
	require.False(t, h.isListed(t, 2))

	cancelled := 0
	for _, message := range h.store.OutboxEvents() {
		if message.EventType == application.EventListingCancelled {
			cancelled++
		}
	}
	require.Equal(t, 3, cancelled)
}

func TestEventMetricsProjectorObservesSettlementsOnce(t *testing.T) {
	h := newHarness(t)
	h.listToken(t, 0, 1000)
	_, err := h.buy.Execute(context.Background(), commands.BuyItemCommand{
		Caller:     bob,
		Collection: collection,
		TokenID:    *uint256.NewInt(0),
		PaidAmount: *uint256.NewInt(1000),
	})
	require.NoError(t, err)
	_, err = h.withdraw.Execute(context.Background(), commands.WithdrawAdminFeesCommand{Caller: owner})
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	relay := workers.OutboxRelay{Outbox: h.store, Publisher: publisher, Clock: h.store}
	require.NoError(t, relay.RunOnce(context.Background()))
	require.Len(t, publisher.published, 3)

	metrics := &recordingMetrics{}
	projector := workers.EventMetricsProjector{
		Dedup:    h.store,
		Metrics:  metrics,
		Clock:    h.store,
		DedupTTL: time.Hour,
	}
	for _, event := range publisher.published {
		require.NoError(t, projector.Handle(context.Background(), event))
	}
	for _, event := range publisher.published {
		require.NoError(t, projector.Handle(context.Background(), event))
	}

	require.Equal(t, []string{
		application.EventListingCreated,
		application.EventItemSold,
		application.EventFeesWithdrawn,
	}, metrics.events)
	require.Equal(t, "1000", metrics.volume.Dec())
	require.Equal(t, "20", metrics.fees.Dec())
	require.Equal(t, "20", metrics.withdrawals.Dec())
}
