package errors

import "errors"

var (
	ErrNotOwner          = errors.New("caller is not the owner")
	ErrAlreadyListed     = errors.New("token is already listed")
	ErrNoApproval        = errors.New("marketplace has no approval")
	ErrNotListed         = errors.New("token is not listed")
	ErrSellerCannotBuy   = errors.New("seller cannot buy own listing")
	ErrPriceMismatch     = errors.New("paid amount does not match listing price")
	ErrNotLister         = errors.New("caller is not the lister")
	ErrPriceUnchanged    = errors.New("new price equals current price")
	ErrNothingToWithdraw = errors.New("no admin fees to withdraw")
	ErrInvalidPrice      = errors.New("price must be greater than zero")
	ErrRegistryError     = errors.New("asset registry call failed")

	// ErrTransferPending means a custody transfer was submitted but its
	// outcome is not yet known. It must not be compensated.
	ErrTransferPending = errors.New("custody transfer submitted but not confirmed")

	ErrInvalidRequest           = errors.New("invalid marketplace request")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key reused with different request")
	ErrLockUnavailable          = errors.New("listing lock unavailable")
	ErrPayoutNotFound           = errors.New("payout not found")
	ErrSaleNotFound             = errors.New("sale not found")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
