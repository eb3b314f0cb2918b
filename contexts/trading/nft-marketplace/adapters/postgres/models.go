package postgresadapter

import (
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
)

type listingModel struct {
	Collection string    `gorm:"column:collection;primaryKey;size:42"`
	TokenID    wei       `gorm:"column:token_id;primaryKey;type:numeric(78,0)"`
	Lister     string    `gorm:"column:lister;size:42;index"`
	Price      wei       `gorm:"column:price;type:numeric(78,0);not null"`
	ListedAt   time.Time `gorm:"column:listed_at;index"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (listingModel) TableName() string {
	return "market_listings"
}

func listingModelFromEntity(listing entities.Listing) listingModel {
	return listingModel{
		Collection: listing.Key.Collection.Hex(),
		TokenID:    newWei(listing.Key.TokenID),
		Lister:     listing.Lister.Hex(),
		Price:      newWei(listing.Price),
		ListedAt:   listing.ListedAt.UTC(),
		UpdatedAt:  listing.UpdatedAt.UTC(),
	}
}

func (m listingModel) toEntity() entities.Listing {
	tokenID := m.TokenID.Int()
	return entities.Listing{
		Key:       entities.NewListingKey(common.HexToAddress(m.Collection), &tokenID),
		Lister:    common.HexToAddress(m.Lister),
		Price:     m.Price.Int(),
		ListedAt:  m.ListedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type saleModel struct {
	SaleID     string    `gorm:"column:sale_id;primaryKey"`
	Collection string    `gorm:"column:collection;size:42;index"`
	TokenID    wei       `gorm:"column:token_id;type:numeric(78,0)"`
	Seller     string    `gorm:"column:seller;size:42;index"`
	Buyer      string    `gorm:"column:buyer;size:42;index"`
	Price      wei       `gorm:"column:price;type:numeric(78,0)"`
	Fee        wei       `gorm:"column:fee;type:numeric(78,0)"`
	Proceeds   wei       `gorm:"column:proceeds;type:numeric(78,0)"`
	PayoutID   string    `gorm:"column:payout_id"`
	SoldAt     time.Time `gorm:"column:sold_at;index"`
}

func (saleModel) TableName() string {
	return "market_sales"
}

func saleModelFromEntity(sale entities.Sale) saleModel {
	return saleModel{
		SaleID:     sale.SaleID,
		Collection: sale.Key.Collection.Hex(),
		TokenID:    newWei(sale.Key.TokenID),
		Seller:     sale.Seller.Hex(),
		Buyer:      sale.Buyer.Hex(),
		Price:      newWei(sale.Price),
		Fee:        newWei(sale.Fee),
		Proceeds:   newWei(sale.Proceeds),
		PayoutID:   sale.PayoutID,
		SoldAt:     sale.SoldAt.UTC(),
	}
}

func (m saleModel) toEntity() entities.Sale {
	tokenID := m.TokenID.Int()
	return entities.Sale{
		SaleID:   m.SaleID,
		Key:      entities.NewListingKey(common.HexToAddress(m.Collection), &tokenID),
		Seller:   common.HexToAddress(m.Seller),
		Buyer:    common.HexToAddress(m.Buyer),
		Price:    m.Price.Int(),
		Fee:      m.Fee.Int(),
		Proceeds: m.Proceeds.Int(),
		PayoutID: m.PayoutID,
		SoldAt:   m.SoldAt.UTC(),
	}
}

type feeLedgerModel struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	Accrued   wei       `gorm:"column:accrued;type:numeric(78,0);not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (feeLedgerModel) TableName() string {
	return "market_fee_ledger"
}

func (m feeLedgerModel) toEntity() entities.FeeLedger {
	return entities.FeeLedger{
		Accrued:   m.Accrued.Int(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type payoutModel struct {
	PayoutID   string     `gorm:"column:payout_id;primaryKey"`
	Recipient  string     `gorm:"column:recipient;size:42;index"`
	Amount     wei        `gorm:"column:amount;type:numeric(78,0)"`
	Reason     string     `gorm:"column:reason"`
	Reference  string     `gorm:"column:reference"`
	Status     string     `gorm:"column:status"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ReversedAt *time.Time `gorm:"column:reversed_at"`
}

func (payoutModel) TableName() string {
	return "market_payouts"
}

type outboxModel struct {
	Sequence     int64      `gorm:"column:sequence;autoIncrement;uniqueIndex"`
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "market_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      m.Payload,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "market_idempotency"
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:             m.Key,
		RequestHash:     m.RequestHash,
		ResponsePayload: m.ResponsePayload,
		ExpiresAt:       m.ExpiresAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string {
	return "market_event_dedup"
}
