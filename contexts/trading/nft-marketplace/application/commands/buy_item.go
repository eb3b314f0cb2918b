package commands

import (
	"context"
	"errors"
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

type BuyItemCommand struct {
	Caller         common.Address
	Collection     common.Address
	TokenID        uint256.Int
	PaidAmount     uint256.Int
	IdempotencyKey string
}

type BuyItemResult struct {
	Sale     entities.Sale
	Replayed bool
	// TransferPending is set when the custody transfer was submitted but not
	// confirmed. The sale stands and the seller keeps the proceeds.
	TransferPending bool
}

type BuyItemUseCase struct {
	Market         entities.Marketplace
	Listings       ports.ListingRepository
	Sales          ports.SaleRepository
	Payments       ports.Payments
	Registry       ports.AssetRegistry
	Locker         ports.KeyLocker
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// Execute settles a purchase. The listing delete, fee credit, sale row and
// item_sold event commit together; the seller payout and the custody transfer
// follow and are compensated in reverse order when either fails. A transfer
// whose outcome is unknown is never compensated.
func (u BuyItemUseCase) Execute(ctx context.Context, cmd BuyItemCommand) (BuyItemResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if cmd.Caller == (common.Address{}) || cmd.Collection == (common.Address{}) {
		return BuyItemResult{}, domainerrors.ErrInvalidRequest
	}

	key := entities.NewListingKey(cmd.Collection, &cmd.TokenID)
	now := resolveNow(u.Clock)
	requestHash := hashRequest("buy", cmd.Caller.Hex(), key.String(), cmd.PaidAmount.Dec())

	record, replay, err := replayLookup(ctx, u.Idempotency, cmd.IdempotencyKey, requestHash, now)
	if err != nil {
		return BuyItemResult{}, err
	}
	if replay {
		sale, err := u.Sales.GetSale(ctx, string(record.ResponsePayload))
		if err != nil {
			return BuyItemResult{}, err
		}
		return BuyItemResult{Sale: sale, Replayed: true}, nil
	}

	unlock, err := acquire(ctx, u.Locker, application.ListingLockKey(key))
	if err != nil {
		return BuyItemResult{}, err
	}
	defer unlock()

	listing, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		return BuyItemResult{}, err
	}
	if err := services.EvaluatePurchase(listing, cmd.Caller, &cmd.PaidAmount); err != nil {
		logger.Warn("buy item rejected",
			application.LogFields("buy_item_rejected", "application",
				zap.String("listing_key", key.String()),
				zap.String("buyer", cmd.Caller.Hex()),
				zap.Error(err),
			)...,
		)
		return BuyItemResult{}, err
	}

	// Settlement credits the fee ledger and may have to debit it again on
	// compensation, so it runs under the fee lock. Lock order is always
	// listing then fees.
	unlockFees, err := acquire(ctx, u.Locker, application.FeeLockKey)
	if err != nil {
		return BuyItemResult{}, err
	}
	defer unlockFees()

	fee, proceeds := services.SplitSale(&listing.Price, u.Market.FeeDivisor)
	saleID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return BuyItemResult{}, err
	}
	payoutID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return BuyItemResult{}, err
	}
	sale := entities.Sale{
		SaleID:   saleID,
		Key:      key,
		Seller:   listing.Lister,
		Buyer:    cmd.Caller,
		Price:    listing.Price,
		Fee:      fee,
		Proceeds: proceeds,
		PayoutID: payoutID,
		SoldAt:   now,
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return BuyItemResult{}, err
	}
	event, err := application.NewListingEnvelope(eventID, application.EventItemSold, key, now, map[string]string{
		"sale_id":    saleID,
		"seller":     sale.Seller.Hex(),
		"buyer":      sale.Buyer.Hex(),
		"collection": key.Collection.Hex(),
		"token_id":   key.TokenID.Dec(),
		"sale_price": sale.Price.Dec(),
		"fee":        sale.Fee.Dec(),
	})
	if err != nil {
		return BuyItemResult{}, err
	}

	if err := u.Sales.RecordSaleWithOutbox(ctx, sale, event); err != nil {
		logger.Error("buy item failed on write transaction",
			application.LogFields("buy_item_write_failed", "application",
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		return BuyItemResult{}, err
	}

	if !sale.Proceeds.IsZero() {
		payout := entities.Payout{
			PayoutID:  payoutID,
			Recipient: sale.Seller,
			Amount:    sale.Proceeds,
			Reason:    entities.PayoutReasonSaleProceeds,
			Reference: saleID,
			CreatedAt: now,
		}
		if err := u.Payments.Pay(ctx, payout); err != nil {
			logger.Error("buy item seller payout failed",
				application.LogFields("buy_item_payout_failed", "application",
					zap.String("sale_id", saleID),
					zap.Error(err),
				)...,
			)
			return BuyItemResult{}, u.revert(ctx, logger, sale, listing, err)
		}
	}

	transferPending := false
	if err := u.Registry.TransferFrom(ctx, cmd.Collection, listing.Lister, cmd.Caller, &cmd.TokenID); errors.Is(err, domainerrors.ErrTransferPending) {
		transferPending = true
		logger.Warn("buy item custody transfer unconfirmed",
			application.LogFields("buy_item_transfer_pending", "application",
				zap.String("sale_id", saleID),
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
	} else if err != nil {
		logger.Error("buy item custody transfer failed",
			application.LogFields("buy_item_transfer_failed", "application",
				zap.String("sale_id", saleID),
				zap.String("listing_key", key.String()),
				zap.Error(err),
			)...,
		)
		cause := registryFailure("transferFrom", key, err)
		if !sale.Proceeds.IsZero() {
			if reverseErr := u.Payments.Reverse(ctx, payoutID); reverseErr != nil {
				logger.Error("buy item payout reversal failed",
					application.LogFields("buy_item_payout_reverse_failed", "application",
						zap.String("sale_id", saleID),
						zap.String("payout_id", payoutID),
						zap.Error(reverseErr),
					)...,
				)
				cause = errors.Join(cause, reverseErr)
			}
		}
		return BuyItemResult{}, u.revert(ctx, logger, sale, listing, cause)
	}

	if err := remember(ctx, u.Idempotency, cmd.IdempotencyKey, requestHash, []byte(saleID), now.Add(resolveIdempotencyTTL(u.IdempotencyTTL))); err != nil {
		return BuyItemResult{}, err
	}

	logger.Info("item sold",
		application.LogFields("nft_marketplace_item_sold", "application",
			zap.String("sale_id", saleID),
			zap.String("listing_key", key.String()),
			zap.String("seller", sale.Seller.Hex()),
			zap.String("buyer", sale.Buyer.Hex()),
			zap.String("price", sale.Price.Dec()),
			zap.String("fee", sale.Fee.Dec()),
			zap.Bool("transfer_pending", transferPending),
		)...,
	)
	return BuyItemResult{Sale: sale, TransferPending: transferPending}, nil
}

// revert restores the listing and fee ledger after a failed settlement step
// and returns cause, joined with any error from the compensation itself.
func (u BuyItemUseCase) revert(
	ctx context.Context,
	logger *zap.Logger,
	sale entities.Sale,
	listing entities.Listing,
	cause error,
) error {
	now := resolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return errors.Join(cause, err)
	}
	event, err := application.NewListingEnvelope(eventID, application.EventSaleReverted, sale.Key, now, map[string]string{
		"sale_id":    sale.SaleID,
		"seller":     sale.Seller.Hex(),
		"buyer":      sale.Buyer.Hex(),
		"collection": sale.Key.Collection.Hex(),
		"token_id":   sale.Key.TokenID.Dec(),
		"fee":        sale.Fee.Dec(),
	})
	if err != nil {
		return errors.Join(cause, err)
	}
	if err := u.Sales.RevertSale(ctx, sale, listing, event); err != nil {
		logger.Error("buy item sale revert failed",
			application.LogFields("buy_item_revert_failed", "application",
				zap.String("sale_id", sale.SaleID),
				zap.Error(err),
			)...,
		)
		return errors.Join(cause, err)
	}
	logger.Warn("buy item reverted",
		application.LogFields("buy_item_reverted", "application",
			zap.String("sale_id", sale.SaleID),
			zap.String("listing_key", sale.Key.String()),
			zap.Error(cause),
		)...,
	)
	return cause
}
