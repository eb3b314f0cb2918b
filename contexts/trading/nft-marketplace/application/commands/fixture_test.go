package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"emporium/contexts/trading/nft-marketplace/adapters/memory"
	"emporium/contexts/trading/nft-marketplace/application/commands"
	"emporium/contexts/trading/nft-marketplace/domain/entities"

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

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// switchablePayments fails Pay while failPay is set and otherwise delegates
// to the in-memory ledger.
type switchablePayments struct {
	mu      sync.Mutex
	ledger  *memory.Ledger
	failPay bool
}

func (p *switchablePayments) Pay(ctx context.Context, payout entities.Payout) error {
	p.mu.Lock()
	fail := p.failPay
	p.mu.Unlock()
	if fail {
		return errors.New("payment rail unavailable")
	}
	return p.ledger.Pay(ctx, payout)
}

func (p *switchablePayments) Reverse(ctx context.Context, payoutID string) error {
	return p.ledger.Reverse(ctx, payoutID)
}

func (p *switchablePayments) setFailPay(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPay = fail
}

type fixture struct {
	market   entities.Marketplace
	store    *memory.Store
	registry *memory.Registry
	ledger   *memory.Ledger
	payments *switchablePayments

	list     commands.ListItemUseCase
	buy      commands.BuyItemUseCase
	cancel   commands.CancelListingUseCase
	update   commands.UpdateListingUseCase
	withdraw commands.WithdrawAdminFeesUseCase
}

// newFixture deploys one collection with tokens 0..2 owned by alice, who has
// approved the marketplace operator.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	market, err := entities.NewMarketplace(owner, operator, entities.DefaultFeeDivisor)
	require.NoError(t, err)

	store := memory.NewStore(nil)
	registry := memory.NewRegistry(operator)
	ledger := memory.NewLedger()
	payments := &switchablePayments{ledger: ledger}
	locker := memory.NewKeyLocker()
	idempotency := memory.NewIdempotencyCache(time.Hour, time.Minute)
	clock := fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	require.NoError(t, registry.DeployCollection(collection, "Bob", "BOBS"))
	minted, err := registry.Mint(collection, alice, 3)
	require.NoError(t, err)
	require.Len(t, minted, 3)
	require.NoError(t, registry.SetApprovalForAll(collection, alice, operator, true))

	return &fixture{
		market:   market,
		store:    store,
		registry: registry,
		ledger:   ledger,
		payments: payments,
		list: commands.ListItemUseCase{
			Market:      market,
			Listings:    store,
			Registry:    registry,
			Locker:      locker,
			Idempotency: idempotency,
			Clock:       clock,
			IDGenerator: store,
		},
		buy: commands.BuyItemUseCase{
			Market:      market,
			Listings:    store,
			Sales:       store,
			Payments:    payments,
			Registry:    registry,
			Locker:      locker,
			Idempotency: idempotency,
			Clock:       clock,
			IDGenerator: store,
		},
		cancel: commands.CancelListingUseCase{
			Listings:    store,
			Locker:      locker,
			Clock:       clock,
			IDGenerator: store,
		},
		update: commands.UpdateListingUseCase{
			Listings:    store,
			Locker:      locker,
			Clock:       clock,
			IDGenerator: store,
		},
		withdraw: commands.WithdrawAdminFeesUseCase{
			Market:      market,
			Fees:        store,
			Payments:    payments,
			Locker:      locker,
			Clock:       clock,
			IDGenerator: store,
		},
	}
}

func amount(t *testing.T, decimal string) uint256.Int {
	t.Helper()
	value, err := uint256.FromDecimal(decimal)
	require.NoError(t, err)
	return *value
}

func tokenID(id uint64) uint256.Int {
	return *uint256.NewInt(id)
}

func (f *fixture) listToken(t *testing.T, id uint64, price string) entities.Listing {
	t.Helper()
	result, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: collection,
		TokenID:    tokenID(id),
		Price:      amount(t, price),
	})
	require.NoError(t, err)
	return result.Listing
}

func (f *fixture) listingAt(t *testing.T, id uint64) entities.Listing {
	t.Helper()
	listing, err := f.store.GetListing(context.Background(), entities.NewListingKey(collection, uint256.NewInt(id)))
	require.NoError(t, err)
	return listing
}

func (f *fixture) accruedFees(t *testing.T) string {
	t.Helper()
	ledger, err := f.store.GetFeeLedger(context.Background())
	require.NoError(t, err)
	return ledger.Accrued.Dec()
}

func (f *fixture) ownerOf(t *testing.T, id uint64) common.Address {
	t.Helper()
	holder, err := f.registry.OwnerOf(context.Background(), collection, uint256.NewInt(id))
	require.NoError(t, err)
	return holder
}

func (f *fixture) balanceOf(account common.Address) string {
	balance := f.ledger.BalanceOf(account)
	return balance.Dec()
}

func (f *fixture) outboxTypes() []string {
	events := f.store.OutboxEvents()
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.EventType)
	}
	return types
}
