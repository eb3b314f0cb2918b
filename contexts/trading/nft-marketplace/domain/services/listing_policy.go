package services

import (
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EvaluateNewListing applies the listing preconditions that depend only on
// marketplace state. Ownership is checked first, then the any-lister
// already-listed rule. Approval is checked separately by the caller because it
// needs another registry read.
func EvaluateNewListing(caller common.Address, owner common.Address, existing entities.Listing) error {
	if caller == (common.Address{}) || owner != caller {
		return domainerrors.ErrNotOwner
	}
	if existing.IsActive() {
		return domainerrors.ErrAlreadyListed
	}
	return nil
}

// EvaluatePurchase checks, in order: listing exists, buyer is not the seller,
// and the paid amount equals the price exactly.
func EvaluatePurchase(listing entities.Listing, buyer common.Address, paid *uint256.Int) error {
	if !listing.IsActive() {
		return domainerrors.ErrNotListed
	}
	if buyer == listing.Lister {
		return domainerrors.ErrSellerCannotBuy
	}
	if paid == nil || !paid.Eq(&listing.Price) {
		return domainerrors.ErrPriceMismatch
	}
	return nil
}

// EvaluateListerAction guards cancel/update. An unlisted key fails the same
// way since the sentinel lister never equals a real caller.
func EvaluateListerAction(listing entities.Listing, caller common.Address) error {
	if !listing.ListedBy(caller) {
		return domainerrors.ErrNotLister
	}
	return nil
}

func EvaluatePriceUpdate(listing entities.Listing, caller common.Address, newPrice *uint256.Int) error {
	if err := EvaluateListerAction(listing, caller); err != nil {
		return err
	}
	if newPrice == nil {
		return domainerrors.ErrInvalidPrice
	}
	if newPrice.Eq(&listing.Price) {
		return domainerrors.ErrPriceUnchanged
	}
	if newPrice.IsZero() {
		return domainerrors.ErrInvalidPrice
	}
	return nil
}
