package commands

import (
	"context"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/domain/services"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type UpdateListingCommand struct {
	Caller     common.Address
	Collection common.Address
	TokenID    uint256.Int
	NewPrice   uint256.Int
}

type UpdateListingResult struct {
	Listing  entities.Listing
	OldPrice uint256.Int
}

type UpdateListingUseCase struct {
	Listings    ports.ListingRepository
	Locker      ports.KeyLocker
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *zap.Logger
}

// Execute overwrites the price of an active listing. Checks run lister first,
// then unchanged price, then zero price.
func (u UpdateListingUseCase) Execute(ctx context.Context, cmd UpdateListingCommand) (UpdateListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if cmd.Caller == (common.Address{}) || cmd.Collection == (common.Address{}) {
		return UpdateListingResult{}, domainerrors.ErrInvalidRequest
	}
	key := entities.NewListingKey(cmd.Collection, &cmd.TokenID)

	unlock, err := acquire(ctx, u.Locker, application.ListingLockKey(key))
	if err != nil {
		return UpdateListingResult{}, err
	}
	defer unlock()

	current, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		return UpdateListingResult{}, err
	}
	if err := services.EvaluatePriceUpdate(current, cmd.Caller, &cmd.NewPrice); err != nil {
		logger.Warn("update listing rejected",
			application.LogFields("update_listing_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.String("caller", cmd.Caller.Hex()),
				zap.Error(err),
			)...,
		)
		return UpdateListingResult{}, err
	}

	now := resolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return UpdateListingResult{}, err
	}
	event, err := application.NewListingEnvelope(eventID, application.EventListingUpdated, key, now, map[string]string{
		"lister":     current.Lister.Hex(),
		"collection": key.Collection.Hex(),
		"token_id":   key.TokenID.Dec(),
		"old_price":  current.Price.Dec(),
		"price":      cmd.NewPrice.Dec(),
	})
	if err != nil {
		return UpdateListingResult{}, err
	}

	updated, err := u.Listings.UpdateListingPriceWithOutbox(ctx, key, cmd.Caller, cmd.NewPrice, now, event)
	if err != nil {
		logger.Error("update listing failed on write transaction",
			application.LogFields("update_listing_write_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return UpdateListingResult{}, err
	}

	logger.Info("listing price updated",
		application.LogFields("nft_marketplace_listing_updated", "application",
			zap.String("listing_key", key.String()),
			zap.String("old_price", current.Price.Dec()),
			zap.String("price", updated.Price.Dec()),
		)...,
	)
	return UpdateListingResult{Listing: updated, OldPrice: current.Price}, nil
}
