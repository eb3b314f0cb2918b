package workers

import (
	"context"
	"fmt"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"go.uber.org/zap"
)

// StaleListingSweeper cancels listings whose lister no longer owns the asset
// or has revoked the marketplace operator. Such listings can never settle.
type StaleListingSweeper struct {
	Market      entities.Marketplace
	Listings    ports.ListingRepository
	Registry    ports.AssetRegistry
	Locker      ports.KeyLocker
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	PageSize    int
	Logger      *zap.Logger
}

func (s StaleListingSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var stale []entities.Listing
	cursor := ""
	for {
		page, next, err := s.Listings.ListListings(ctx, ports.ListingFilter{Cursor: cursor, Limit: pageSize})
		if err != nil {
			logger.Error("stale listing scan failed",
				application.LogFields("nft_marketplace_stale_scan_failed", "worker", zap.Error(err))...,
			)
			return err
		}
		for _, listing := range page {
			reason, err := s.staleReason(ctx, listing)
			if err != nil {
				// Registry outages leave listings in place; the next cycle retries.
				logger.Warn("stale listing check failed",
					application.LogFields("nft_marketplace_stale_check_failed", "worker",
						zap.String("listing_key", listing.Key.String()),
						zap.Error(err),
					)...,
				)
				continue
			}
			if reason != "" {
				stale = append(stale, listing)
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	swept := 0
	for _, listing := range stale {
		removed, err := s.sweep(ctx, listing)
		if err != nil {
			logger.Error("stale listing cancel failed",
				application.LogFields("nft_marketplace_stale_cancel_failed", "worker",
					zap.String("listing_key", listing.Key.String()),
					zap.Error(err),
				)...,
			)
			return err
		}
		if removed {
			swept++
		}
	}

	if swept > 0 {
		logger.Info("stale listing sweep completed",
			application.LogFields("nft_marketplace_stale_sweep_completed", "worker",
				zap.Int("cancelled_count", swept),
			)...,
		)
	}
	return nil
}

func (s StaleListingSweeper) staleReason(ctx context.Context, listing entities.Listing) (string, error) {
	owner, err := s.Registry.OwnerOf(ctx, listing.Key.Collection, &listing.Key.TokenID)
	if err != nil {
		return "", err
	}
	if owner != listing.Lister {
		return "ownership_changed", nil
	}
	approved, err := s.Registry.IsApprovedForAll(ctx, listing.Key.Collection, listing.Lister, s.Market.Operator)
	if err != nil {
		return "", err
	}
	if !approved {
		return "approval_revoked", nil
	}
	return "", nil
}

// sweep re-checks the listing under its key lock before deleting it, so a
// concurrent update or sale wins over the sweeper.
func (s StaleListingSweeper) sweep(ctx context.Context, candidate entities.Listing) (bool, error) {
	if s.Locker != nil {
		unlock, err := s.Locker.Lock(ctx, application.ListingLockKey(candidate.Key))
		if err != nil {
			return false, err
		}
		defer unlock()
	}

	current, err := s.Listings.GetListing(ctx, candidate.Key)
	if err != nil {
		return false, err
	}
	if !current.ListedBy(candidate.Lister) || !current.Price.Eq(&candidate.Price) {
		return false, nil
	}
	reason, err := s.staleReason(ctx, current)
	if err != nil || reason == "" {
		return false, err
	}

	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	eventID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return false, err
	}
	event, err := application.NewListingEnvelope(eventID, application.EventListingCancelled, current.Key, now, map[string]string{
		"lister":     current.Lister.Hex(),
		"collection": current.Key.Collection.Hex(),
		"token_id":   current.Key.TokenID.Dec(),
		"reason":     reason,
	})
	if err != nil {
		return false, err
	}
	if err := s.Listings.DeleteListingWithOutbox(ctx, current.Key, current.Lister, event); err != nil {
		return false, fmt.Errorf("cancel stale listing %s: %w", current.Key, err)
	}
	return true, nil
}
