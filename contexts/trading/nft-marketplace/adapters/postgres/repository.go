package postgresadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	payoutStatusPaid     = "paid"
	payoutStatusReversed = "reversed"

	feeLedgerRowID = 1
)

type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: application.ResolveLogger(logger),
	}
}

// Migrate creates the marketplace tables and the singleton fee ledger row.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&listingModel{},
		&saleModel{},
		&feeLedgerModel{},
		&payoutModel{},
		&outboxModel{},
		&idempotencyModel{},
		&eventDedupModel{},
	); err != nil {
		return err
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&feeLedgerModel{ID: feeLedgerRowID, UpdatedAt: time.Now().UTC()}).
		Error
}

func (r *Repository) GetListing(ctx context.Context, key entities.ListingKey) (entities.Listing, error) {
	var row listingModel
	err := r.db.WithContext(ctx).
		Where("collection = ? AND token_id = ?", key.Collection.Hex(), newWei(key.TokenID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Unlisted(key), nil
		}
		return entities.Listing{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListListings(ctx context.Context, filter ports.ListingFilter) ([]entities.Listing, string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&listingModel{})
	if filter.Collection != (common.Address{}) {
		tx = tx.Where("collection = ?", filter.Collection.Hex())
	}
	if filter.Lister != (common.Address{}) {
		tx = tx.Where("lister = ?", filter.Lister.Hex())
	}

	offset := decodeCursor(filter.Cursor)
	var rows []listingModel
	if err := tx.Order("listed_at DESC").
		Order("collection ASC").
		Order("token_id ASC").
		Offset(offset).
		Limit(limit + 1).
		Find(&rows).
		Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = encodeCursor(offset + limit)
		rows = rows[:limit]
	}
	items := make([]entities.Listing, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nextCursor, nil
}

func (r *Repository) CreateListingWithOutbox(ctx context.Context, listing entities.Listing, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := listingModelFromEntity(listing)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyListed
			}
			return err
		}
		return insertOutbox(tx, event)
	})
}

func (r *Repository) UpdateListingPriceWithOutbox(
	ctx context.Context,
	key entities.ListingKey,
	lister common.Address,
	price uint256.Int,
	updatedAt time.Time,
	event ports.EventEnvelope,
) (entities.Listing, error) {
	var updated entities.Listing
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&listingModel{}).
			Where("collection = ? AND token_id = ? AND lister = ?", key.Collection.Hex(), newWei(key.TokenID), lister.Hex()).
			Updates(map[string]any{
				"price":      newWei(price),
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotLister
		}
		var row listingModel
		if err := tx.Where("collection = ? AND token_id = ?", key.Collection.Hex(), newWei(key.TokenID)).
			First(&row).
			Error; err != nil {
			return err
		}
		updated = row.toEntity()
		return insertOutbox(tx, event)
	})
	if err != nil {
		return entities.Listing{}, err
	}
	return updated, nil
}

func (r *Repository) DeleteListingWithOutbox(
	ctx context.Context,
	key entities.ListingKey,
	lister common.Address,
	event ports.EventEnvelope,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("collection = ? AND token_id = ? AND lister = ?", key.Collection.Hex(), newWei(key.TokenID), lister.Hex()).
			Delete(&listingModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotLister
		}
		return insertOutbox(tx, event)
	})
}

func (r *Repository) RecordSaleWithOutbox(ctx context.Context, sale entities.Sale, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where(
			"collection = ? AND token_id = ? AND lister = ? AND price = ?",
			sale.Key.Collection.Hex(),
			newWei(sale.Key.TokenID),
			sale.Seller.Hex(),
			newWei(sale.Price),
		).Delete(&listingModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotListed
		}

		row := saleModelFromEntity(sale)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}

		// Atomic increment: concurrent credits and drains never lose an update.
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"accrued":    gorm.Expr("market_fee_ledger.accrued + EXCLUDED.accrued"),
				"updated_at": sale.SoldAt.UTC(),
			}),
		}).Create(&feeLedgerModel{
			ID:        feeLedgerRowID,
			Accrued:   newWei(sale.Fee),
			UpdatedAt: sale.SoldAt.UTC(),
		}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, event)
	})
	if err != nil {
		return err
	}

	r.logger.Debug("sale and outbox persisted",
		application.LogFields("postgres_record_sale_with_outbox", "adapter",
			zap.String("sale_id", sale.SaleID),
			zap.String("listing_key", sale.Key.String()),
			zap.String("outbox_event_id", event.EventID),
		)...,
	)
	return nil
}

func (r *Repository) RevertSale(ctx context.Context, sale entities.Sale, listing entities.Listing, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("sale_id = ?", sale.SaleID).Delete(&saleModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}

		result = tx.Model(&feeLedgerModel{}).
			Where("id = ? AND accrued >= ?", feeLedgerRowID, newWei(sale.Fee)).
			Updates(map[string]any{
				"accrued":    gorm.Expr("accrued - ?", newWei(sale.Fee)),
				"updated_at": event.OccurredAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}

		row := listingModelFromEntity(listing)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		return insertOutbox(tx, event)
	})
}

func (r *Repository) GetSale(ctx context.Context, saleID string) (entities.Sale, error) {
	var row saleModel
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Sale{}, domainerrors.ErrSaleNotFound
		}
		return entities.Sale{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSales(ctx context.Context, filter ports.SaleFilter) ([]entities.Sale, string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&saleModel{})
	if filter.Collection != (common.Address{}) {
		tx = tx.Where("collection = ?", filter.Collection.Hex())
	}
	if filter.Seller != (common.Address{}) {
		tx = tx.Where("seller = ?", filter.Seller.Hex())
	}
	if filter.Buyer != (common.Address{}) {
		tx = tx.Where("buyer = ?", filter.Buyer.Hex())
	}

	offset := decodeCursor(filter.Cursor)
	var rows []saleModel
	if err := tx.Order("sold_at DESC").
		Order("sale_id ASC").
		Offset(offset).
		Limit(limit + 1).
		Find(&rows).
		Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = encodeCursor(offset + limit)
		rows = rows[:limit]
	}
	items := make([]entities.Sale, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nextCursor, nil
}

func (r *Repository) GetFeeLedger(ctx context.Context) (entities.FeeLedger, error) {
	var row feeLedgerModel
	err := r.db.WithContext(ctx).
		Where("id = ?", feeLedgerRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.FeeLedger{}, nil
		}
		return entities.FeeLedger{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) DrainFeesWithOutbox(
	ctx context.Context,
	drainedAt time.Time,
	event func(amount uint256.Int) (ports.EventEnvelope, error),
) (uint256.Int, error) {
	var drained uint256.Int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row feeLedgerModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", feeLedgerRowID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNothingToWithdraw
			}
			return err
		}
		drained = row.Accrued.Int()
		if drained.IsZero() {
			return domainerrors.ErrNothingToWithdraw
		}

		if err := tx.Model(&feeLedgerModel{}).
			Where("id = ?", feeLedgerRowID).
			Updates(map[string]any{
				"accrued":    newWei(uint256.Int{}),
				"updated_at": drainedAt.UTC(),
			}).Error; err != nil {
			return err
		}

		envelope, err := event(drained)
		if err != nil {
			return err
		}
		return insertOutbox(tx, envelope)
	})
	if err != nil {
		return uint256.Int{}, err
	}
	return drained, nil
}

func (r *Repository) RestoreFees(ctx context.Context, amount uint256.Int, restoredAt time.Time, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&feeLedgerModel{}).
			Where("id = ?", feeLedgerRowID).
			Updates(map[string]any{
				"accrued":    gorm.Expr("accrued + ?", newWei(amount)),
				"updated_at": restoredAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return insertOutbox(tx, event)
	})
}

// Pay records a payout row. Settlement to the recipient happens off this
// table; reversal flips the row before it is settled.
func (r *Repository) Pay(ctx context.Context, payout entities.Payout) error {
	row := payoutModel{
		PayoutID:  payout.PayoutID,
		Recipient: payout.Recipient.Hex(),
		Amount:    newWei(payout.Amount),
		Reason:    string(payout.Reason),
		Reference: payout.Reference,
		Status:    payoutStatusPaid,
		CreatedAt: payout.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) Reverse(ctx context.Context, payoutID string) error {
	result := r.db.WithContext(ctx).
		Model(&payoutModel{}).
		Where("payout_id = ? AND status = ?", payoutID, payoutStatusPaid).
		Updates(map[string]any{
			"status":      payoutStatusReversed,
			"reversed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPayoutNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", key).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return row.toPort(), true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             record.Key,
		RequestHash:     record.RequestHash,
		ResponsePayload: record.ResponsePayload,
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", record.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", eventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrIdempotencyKeyConflict
	}
	return true, nil
}

func insertOutbox(tx *gorm.DB, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
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
