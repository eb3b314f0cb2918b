package application

import (
	"encoding/json"
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"
)

const (
	EventsTopic   = "marketplace.events"
	SourceService = "nft-marketplace-service"

	EventListingCreated   = "marketplace.listing_created"
	EventItemSold         = "marketplace.item_sold"
	EventListingUpdated   = "marketplace.listing_updated"
	EventListingCancelled = "marketplace.listing_cancelled"
	EventFeesWithdrawn    = "marketplace.fees_withdrawn"
	EventSaleReverted     = "marketplace.sale_reverted"
	EventFeesRestored     = "marketplace.fees_restored"
)

// NewListingEnvelope builds an event partitioned by listing key so every
// transition of one asset is relayed in order.
func NewListingEnvelope(
	eventID string,
	eventType string,
	key entities.ListingKey,
	occurredAt time.Time,
	data map[string]string,
) (ports.EventEnvelope, error) {
	return newEnvelope(eventID, eventType, "listing_key", key.String(), occurredAt, data)
}

func NewFeeEnvelope(
	eventID string,
	eventType string,
	occurredAt time.Time,
	data map[string]string,
) (ports.EventEnvelope, error) {
	return newEnvelope(eventID, eventType, "fee_ledger", "fees", occurredAt, data)
}

func newEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]string,
) (ports.EventEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    SourceService,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             raw,
	}, nil
}
