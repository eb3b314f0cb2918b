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

type CancelListingCommand struct {
	Caller     common.Address
	Collection common.Address
	TokenID    uint256.Int
}

type CancelListingResult struct {
	Cancelled entities.Listing
}

type CancelListingUseCase struct {
	Listings    ports.ListingRepository
	Locker      ports.KeyLocker
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *zap.Logger
}

func (u CancelListingUseCase) Execute(ctx context.Context, cmd CancelListingCommand) (CancelListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if cmd.Caller == (common.Address{}) || cmd.Collection == (common.Address{}) {
		return CancelListingResult{}, domainerrors.ErrInvalidRequest
	}
	key := entities.NewListingKey(cmd.Collection, &cmd.TokenID)

	unlock, err := acquire(ctx, u.Locker, application.ListingLockKey(key))
	if err != nil {
		return CancelListingResult{}, err
	}
	defer unlock()

	listing, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		return CancelListingResult{}, err
	}
	if err := services.EvaluateListerAction(listing, cmd.Caller); err != nil {
		logger.Warn("cancel listing rejected",
			application.LogFields("cancel_listing_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.String("caller", cmd.Caller.Hex()),
				zap.Error(err),
			)...,
		)
		return CancelListingResult{}, err
	}

	now := resolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CancelListingResult{}, err
	}
	event, err := application.NewListingEnvelope(eventID, application.EventListingCancelled, key, now, map[string]string{
		"lister":     listing.Lister.Hex(),
		"collection": key.Collection.Hex(),
		"token_id":   key.TokenID.Dec(),
	})
	if err != nil {
		return CancelListingResult{}, err
	}
	if err := u.Listings.DeleteListingWithOutbox(ctx, key, cmd.Caller, event); err != nil {
		logger.Error("cancel listing failed on write transaction",
			application.LogFields("cancel_listing_write_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return CancelListingResult{}, err
	}

	logger.Info("listing cancelled",
		application.LogFields("nft_marketplace_listing_cancelled", "application",
			zap.String("listing_key", key.String()),
			zap.String("lister", listing.Lister.Hex()),
		)...,
	)
	return CancelListingResult{Cancelled: listing}, nil
}
