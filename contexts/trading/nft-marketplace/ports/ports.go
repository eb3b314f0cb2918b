package ports

import (
	"context"
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	contractsv1 "emporium/contracts/gen/events/v1"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ListingFilter defines read-side filtering/pagination for active listings.
type ListingFilter struct {
	Collection common.Address
	Lister     common.Address
	Cursor     string
	Limit      int
}

// ListingRepository owns the listing table. Every write appends its outbox
// event in the same transaction.
type ListingRepository interface {
	// GetListing returns entities.Unlisted(key) when no listing exists.
	GetListing(ctx context.Context, key entities.ListingKey) (entities.Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]entities.Listing, string, error)
	// CreateListingWithOutbox fails with ErrAlreadyListed when the key is taken.
	CreateListingWithOutbox(ctx context.Context, listing entities.Listing, event EventEnvelope) error
	// UpdateListingPriceWithOutbox fails with ErrNotLister unless lister holds the key.
	UpdateListingPriceWithOutbox(
		ctx context.Context,
		key entities.ListingKey,
		lister common.Address,
		price uint256.Int,
		updatedAt time.Time,
		event EventEnvelope,
	) (entities.Listing, error)
	DeleteListingWithOutbox(ctx context.Context, key entities.ListingKey, lister common.Address, event EventEnvelope) error
}

// SaleFilter defines read-side filtering/pagination for sale history.
type SaleFilter struct {
	Collection common.Address
	Seller     common.Address
	Buyer      common.Address
	Cursor     string
	Limit      int
}

// SaleRepository settles purchases against the listing table and fee ledger.
type SaleRepository interface {
	// RecordSaleWithOutbox must atomically delete the listing held by
	// sale.Seller at sale.Price, credit sale.Fee to the ledger, insert the
	// sale row and append the outbox event. A missing or changed listing
	// fails with ErrNotListed.
	RecordSaleWithOutbox(ctx context.Context, sale entities.Sale, event EventEnvelope) error
	// RevertSale undoes RecordSaleWithOutbox: restores the listing, debits
	// the fee, removes the sale row and appends the compensating event.
	RevertSale(ctx context.Context, sale entities.Sale, listing entities.Listing, event EventEnvelope) error
	GetSale(ctx context.Context, saleID string) (entities.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]entities.Sale, string, error)
}

// FeeLedgerRepository owns the single accrued-fees row.
type FeeLedgerRepository interface {
	GetFeeLedger(ctx context.Context) (entities.FeeLedger, error)
	// DrainFeesWithOutbox zeroes the ledger and returns the drained amount.
	// The event is built by the callback once the amount is known.
	DrainFeesWithOutbox(
		ctx context.Context,
		drainedAt time.Time,
		event func(amount uint256.Int) (EventEnvelope, error),
	) (uint256.Int, error)
	// RestoreFees credits a drained amount back after a failed payout.
	RestoreFees(ctx context.Context, amount uint256.Int, restoredAt time.Time, event EventEnvelope) error
}

// Payments moves value out of the marketplace.
type Payments interface {
	Pay(ctx context.Context, payout entities.Payout) error
	// Reverse cancels a payout previously accepted by Pay.
	Reverse(ctx context.Context, payoutID string) error
}

// AssetRegistry is the ERC721 ownership ledger the marketplace trades against.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, collection common.Address, tokenID *uint256.Int) (common.Address, error)
	IsApprovedForAll(ctx context.Context, collection common.Address, owner common.Address, operator common.Address) (bool, error)
	TransferFrom(ctx context.Context, collection common.Address, from common.Address, to common.Address, tokenID *uint256.Int) error
}

// KeyLocker serializes operations on one listing key or on the fee ledger.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts sale/payout/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventDedupStore provides idempotent processing guarantees for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// MarketMetrics receives projections of relayed marketplace events.
type MarketMetrics interface {
	ObserveEvent(eventType string)
	ObserveSettlement(price *uint256.Int, fee *uint256.Int)
	ObserveWithdrawal(amount *uint256.Int)
}
