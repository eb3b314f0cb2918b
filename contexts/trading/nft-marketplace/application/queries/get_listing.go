package queries

import (
	"context"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type GetListingQuery struct {
	Collection common.Address
	TokenID    uint256.Int
}

type GetListingResult struct {
	Listing entities.Listing
}

type GetListingUseCase struct {
	Listings ports.ListingRepository
	Logger   *zap.Logger
}

// Execute never reports absence as an error; an unlisted key reads as the
// zero-lister, zero-price sentinel.
func (u GetListingUseCase) Execute(ctx context.Context, query GetListingQuery) (GetListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	key := entities.NewListingKey(query.Collection, &query.TokenID)

	listing, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		logger.Error("get listing failed",
			application.LogFields("get_listing_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return GetListingResult{}, err
	}
	return GetListingResult{Listing: listing}, nil
}
