package memory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Store is an in-memory adapter implementing the marketplace repository ports
// for local runtime and tests. It is not intended as production persistence.
type Store struct {
	mu          sync.RWMutex
	listings    map[entities.ListingKey]entities.Listing
	sales       map[string]entities.Sale
	saleOrder   []string
	fees        entities.FeeLedger
	outbox      map[string]ports.OutboxMessage
	outboxOrder []string
	outboxSent  map[string]time.Time
	eventDedup  map[string]string
	sequence    uint64
	logger      *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		listings:    make(map[entities.ListingKey]entities.Listing),
		sales:       make(map[string]entities.Sale),
		saleOrder:   make([]string, 0),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxOrder: make([]string, 0),
		outboxSent:  make(map[string]time.Time),
		eventDedup:  make(map[string]string),
		logger:      application.ResolveLogger(logger),
	}
}

func (s *Store) GetListing(_ context.Context, key entities.ListingKey) (entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[key]
	if !ok {
		return entities.Unlisted(key), nil
	}
	return listing, nil
}

func (s *Store) ListListings(_ context.Context, filter ports.ListingFilter) ([]entities.Listing, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]entities.Listing, 0, len(s.listings))
	for _, listing := range s.listings {
		if filter.Collection != (common.Address{}) && listing.Key.Collection != filter.Collection {
			continue
		}
		if filter.Lister != (common.Address{}) && listing.Lister != filter.Lister {
			continue
		}
		filtered = append(filtered, listing)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].ListedAt.Equal(filtered[j].ListedAt) {
			return filtered[i].Key.String() < filtered[j].Key.String()
		}
		return filtered[i].ListedAt.After(filtered[j].ListedAt)
	})

	start, end, next := pageBounds(filter.Cursor, filter.Limit, len(filtered))
	return append([]entities.Listing(nil), filtered[start:end]...), next, nil
}

func (s *Store) CreateListingWithOutbox(_ context.Context, listing entities.Listing, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A single mutex critical section approximates transactional semantics:
	// the listing and its outbox row succeed or fail together.
	if _, exists := s.listings[listing.Key]; exists {
		return domainerrors.ErrAlreadyListed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.listings[listing.Key] = listing
	s.appendOutboxLocked(event, payload)

	s.logger.Debug("listing and outbox persisted in memory store",
		application.LogFields("memory_create_listing_with_outbox", "adapter",
			zap.String("listing_key", listing.Key.String()),
			zap.String("outbox_event_id", event.EventID),
		)...,
	)
	return nil
}

func (s *Store) UpdateListingPriceWithOutbox(
	_ context.Context,
	key entities.ListingKey,
	lister common.Address,
	price uint256.Int,
	updatedAt time.Time,
	event ports.EventEnvelope,
) (entities.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[key]
	if !ok || !listing.ListedBy(lister) {
		return entities.Listing{}, domainerrors.ErrNotLister
	}
	if price.IsZero() {
		return entities.Listing{}, domainerrors.ErrInvalidPrice
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return entities.Listing{}, err
	}
	listing.Price = price
	listing.UpdatedAt = updatedAt.UTC()
	s.listings[key] = listing
	s.appendOutboxLocked(event, payload)
	return listing, nil
}

func (s *Store) DeleteListingWithOutbox(
	_ context.Context,
	key entities.ListingKey,
	lister common.Address,
	event ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[key]
	if !ok || !listing.ListedBy(lister) {
		return domainerrors.ErrNotLister
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	delete(s.listings, key)
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) RecordSaleWithOutbox(_ context.Context, sale entities.Sale, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[sale.Key]
	if !ok || !listing.ListedBy(sale.Seller) || !listing.Price.Eq(&sale.Price) {
		return domainerrors.ErrNotListed
	}
	if _, exists := s.sales[sale.SaleID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	var accrued uint256.Int
	if _, overflow := accrued.AddOverflow(&s.fees.Accrued, &sale.Fee); overflow {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	delete(s.listings, sale.Key)
	s.fees.Accrued = accrued
	s.fees.UpdatedAt = sale.SoldAt.UTC()
	s.sales[sale.SaleID] = sale
	s.saleOrder = append(s.saleOrder, sale.SaleID)
	s.appendOutboxLocked(event, payload)

	s.logger.Debug("sale and outbox persisted in memory store",
		application.LogFields("memory_record_sale_with_outbox", "adapter",
			zap.String("sale_id", sale.SaleID),
			zap.String("listing_key", sale.Key.String()),
			zap.String("outbox_event_id", event.EventID),
		)...,
	)
	return nil
}

func (s *Store) RevertSale(_ context.Context, sale entities.Sale, listing entities.Listing, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[sale.SaleID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if _, occupied := s.listings[listing.Key]; occupied {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if s.fees.Accrued.Lt(&sale.Fee) {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.fees.Accrued.Sub(&s.fees.Accrued, &sale.Fee)
	s.fees.UpdatedAt = event.OccurredAt.UTC()
	s.listings[listing.Key] = listing
	delete(s.sales, sale.SaleID)
	for i, id := range s.saleOrder {
		if id == sale.SaleID {
			s.saleOrder = append(s.saleOrder[:i], s.saleOrder[i+1:]...)
			break
		}
	}
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) GetSale(_ context.Context, saleID string) (entities.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return entities.Sale{}, domainerrors.ErrSaleNotFound
	}
	return sale, nil
}

func (s *Store) ListSales(_ context.Context, filter ports.SaleFilter) ([]entities.Sale, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]entities.Sale, 0, len(s.saleOrder))
	// Newest first.
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sale := s.sales[s.saleOrder[i]]
		if filter.Collection != (common.Address{}) && sale.Key.Collection != filter.Collection {
			continue
		}
		if filter.Seller != (common.Address{}) && sale.Seller != filter.Seller {
			continue
		}
		if filter.Buyer != (common.Address{}) && sale.Buyer != filter.Buyer {
			continue
		}
		filtered = append(filtered, sale)
	}

	start, end, next := pageBounds(filter.Cursor, filter.Limit, len(filtered))
	return append([]entities.Sale(nil), filtered[start:end]...), next, nil
}

func (s *Store) GetFeeLedger(_ context.Context) (entities.FeeLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fees, nil
}

func (s *Store) DrainFeesWithOutbox(
	_ context.Context,
	drainedAt time.Time,
	event func(amount uint256.Int) (ports.EventEnvelope, error),
) (uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.fees.Accrued
	if amount.IsZero() {
		return uint256.Int{}, domainerrors.ErrNothingToWithdraw
	}
	envelope, err := event(amount)
	if err != nil {
		return uint256.Int{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return uint256.Int{}, err
	}
	s.fees.Accrued.Clear()
	s.fees.UpdatedAt = drainedAt.UTC()
	s.appendOutboxLocked(envelope, payload)
	return amount, nil
}

func (s *Store) RestoreFees(_ context.Context, amount uint256.Int, restoredAt time.Time, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accrued uint256.Int
	if _, overflow := accrued.AddOverflow(&s.fees.Accrued, &amount); overflow {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.fees.Accrued = accrued
	s.fees.UpdatedAt = restoredAt.UTC()
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventDedup[eventID]; ok {
		if existing != payloadHash {
			return false, domainerrors.ErrIdempotencyKeyConflict
		}
		return true, nil
	}
	s.eventDedup[eventID] = payloadHash
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("nft-%d", value), nil
}

// OutboxEvents returns every outbox row in insertion order, sent or not.
func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) appendOutboxLocked(event ports.EventEnvelope, payload []byte) {
	s.outbox[event.EventID] = ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt,
	}
	s.outboxOrder = append(s.outboxOrder, event.EventID)
}

func pageBounds(cursor string, limit int, total int) (int, int, string) {
	start := decodeCursor(cursor)
	if start > total {
		start = total
	}
	if limit <= 0 {
		limit = 20
	}
	end := start + limit
	if end > total {
		end = total
	}
	next := ""
	if end < total {
		next = encodeCursor(end)
	}
	return start, end, next
}

func decodeCursor(cursor string) int {
	if strings.TrimSpace(cursor) == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	index, err := strconv.Atoi(string(raw))
	if err != nil || index < 0 {
		return 0
	}
	return index
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}
