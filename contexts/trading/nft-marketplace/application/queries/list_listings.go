package queries

import (
	"context"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ListListingsQuery struct {
	Collection common.Address
	Lister     common.Address
	Cursor     string
	Limit      int
}

type ListListingsResult struct {
	Items      []entities.Listing
	NextCursor string
}

type ListListingsUseCase struct {
	Listings ports.ListingRepository
	Logger   *zap.Logger
}

func (u ListListingsUseCase) Execute(ctx context.Context, query ListListingsQuery) (ListListingsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	limit := clampLimit(query.Limit)

	items, nextCursor, err := u.Listings.ListListings(ctx, ports.ListingFilter{
		Collection: query.Collection,
		Lister:     query.Lister,
		Cursor:     query.Cursor,
		Limit:      limit,
	})
	if err != nil {
		logger.Error("list listings failed",
			application.LogFields("list_listings_failed", "application", zap.Error(err))...,
		)
		return ListListingsResult{}, err
	}

	logger.Debug("list listings completed",
		application.LogFields("list_listings_completed", "application",
			zap.Int("items_count", len(items)),
			zap.Bool("has_next_cursor", nextCursor != ""),
		)...,
	)
	return ListListingsResult{Items: items, NextCursor: nextCursor}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
