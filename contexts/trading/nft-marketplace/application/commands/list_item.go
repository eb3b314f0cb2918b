package commands

import (
	"context"
	"encoding/json"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/domain/services"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type ListItemCommand struct {
	Caller         common.Address
	Collection     common.Address
	TokenID        uint256.Int
	Price          uint256.Int
	IdempotencyKey string
}

type ListItemResult struct {
	Listing  entities.Listing
	Replayed bool
}

type ListItemUseCase struct {
	Market         entities.Marketplace
	Listings       ports.ListingRepository
	Registry       ports.AssetRegistry
	Locker         ports.KeyLocker
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// Execute runs the listing workflow in this order:
// 1) price validation, before any registry call
// 2) idempotency replay
// 3) ownership, existing listing and approval checks under the key lock
// 4) atomic listing + outbox persistence.
func (u ListItemUseCase) Execute(ctx context.Context, cmd ListItemCommand) (ListItemResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if cmd.Caller == (common.Address{}) || cmd.Collection == (common.Address{}) {
		return ListItemResult{}, domainerrors.ErrInvalidRequest
	}
	if cmd.Price.IsZero() {
		return ListItemResult{}, domainerrors.ErrInvalidPrice
	}

	key := entities.NewListingKey(cmd.Collection, &cmd.TokenID)
	now := resolveNow(u.Clock)
	requestHash := hashRequest("list", cmd.Caller.Hex(), key.String(), cmd.Price.Dec())

	record, replay, err := replayLookup(ctx, u.Idempotency, cmd.IdempotencyKey, requestHash, now)
	if err != nil {
		logger.Warn("list item idempotency lookup rejected",
			application.LogFields("list_item_idempotency_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return ListItemResult{}, err
	}
	if replay {
		listing, err := decodeListingPayload(record.ResponsePayload)
		if err != nil {
			return ListItemResult{}, err
		}
		return ListItemResult{Listing: listing, Replayed: true}, nil
	}

	unlock, err := acquire(ctx, u.Locker, application.ListingLockKey(key))
	if err != nil {
		return ListItemResult{}, err
	}
	defer unlock()

	owner, err := u.Registry.OwnerOf(ctx, cmd.Collection, &cmd.TokenID)
	if err != nil {
		logger.Error("list item owner lookup failed",
			application.LogFields("list_item_owner_lookup_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return ListItemResult{}, registryFailure("ownerOf", key, err)
	}
	existing, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		return ListItemResult{}, err
	}
	if err := services.EvaluateNewListing(cmd.Caller, owner, existing); err != nil {
		logger.Warn("list item rejected",
			application.LogFields("list_item_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.String("caller", cmd.Caller.Hex()),
				zap.Error(err),
			)...,
		)
		return ListItemResult{}, err
	}

	approved, err := u.Registry.IsApprovedForAll(ctx, cmd.Collection, cmd.Caller, u.Market.Operator)
	if err != nil {
		return ListItemResult{}, registryFailure("isApprovedForAll", key, err)
	}
	if !approved {
		logger.Warn("list item rejected",
			application.LogFields("list_item_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.String("caller", cmd.Caller.Hex()),
				zap.Error(domainerrors.ErrNoApproval),
			)...,
		)
		return ListItemResult{}, domainerrors.ErrNoApproval
	}

	listing, err := entities.NewListing(key, cmd.Caller, &cmd.Price, now)
	if err != nil {
		return ListItemResult{}, err
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ListItemResult{}, err
	}
	event, err := application.NewListingEnvelope(eventID, application.EventListingCreated, key, now, map[string]string{
		"lister":     listing.Lister.Hex(),
		"collection": key.Collection.Hex(),
		"token_id":   key.TokenID.Dec(),
		"price":      listing.Price.Dec(),
	})
	if err != nil {
		return ListItemResult{}, err
	}

	if err := u.Listings.CreateListingWithOutbox(ctx, listing, event); err != nil {
		logger.Error("list item failed on write transaction",
			application.LogFields("list_item_write_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return ListItemResult{}, err
	}

	payload, err := encodeListingPayload(listing)
	if err != nil {
		return ListItemResult{}, err
	}
	if err := remember(ctx, u.Idempotency, cmd.IdempotencyKey, requestHash, payload, now.Add(resolveIdempotencyTTL(u.IdempotencyTTL))); err != nil {
		return ListItemResult{}, err
	}

	logger.Info("item listed",
		application.LogFields("nft_marketplace_item_listed", "application",
			zap.String("listing_key", key.String()),
			zap.String("lister", listing.Lister.Hex()),
			zap.String("price", listing.Price.Dec()),
		)...,
	)
	return ListItemResult{Listing: listing}, nil
}

type listingPayload struct {
	Collection string    `json:"collection"`
	TokenID    string    `json:"token_id"`
	Lister     string    `json:"lister"`
	Price      string    `json:"price"`
	ListedAt   time.Time `json:"listed_at"`
}

func encodeListingPayload(listing entities.Listing) ([]byte, error) {
	return json.Marshal(listingPayload{
		Collection: listing.Key.Collection.Hex(),
		TokenID:    listing.Key.TokenID.Dec(),
		Lister:     listing.Lister.Hex(),
		Price:      listing.Price.Dec(),
		ListedAt:   listing.ListedAt,
	})
}

func decodeListingPayload(raw []byte) (entities.Listing, error) {
	var payload listingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return entities.Listing{}, err
	}
	tokenID, err := uint256.FromDecimal(payload.TokenID)
	if err != nil {
		return entities.Listing{}, domainerrors.ErrRepositoryInvariantBroke
	}
	price, err := uint256.FromDecimal(payload.Price)
	if err != nil {
		return entities.Listing{}, domainerrors.ErrRepositoryInvariantBroke
	}
	key := entities.NewListingKey(common.HexToAddress(payload.Collection), tokenID)
	return entities.NewListing(key, common.HexToAddress(payload.Lister), price, payload.ListedAt)
}
