package services

import (
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SplitSale computes fee = price / divisor (rounded toward zero) and the
// seller proceeds price - fee.
func SplitSale(price *uint256.Int, divisor uint64) (fee uint256.Int, proceeds uint256.Int) {
	if divisor == 0 {
		divisor = entities.DefaultFeeDivisor
	}
	fee.Div(price, uint256.NewInt(divisor))
	proceeds.Sub(price, &fee)
	return fee, proceeds
}

// EvaluateWithdrawal is owner-only and requires a non-zero ledger.
func EvaluateWithdrawal(market entities.Marketplace, caller common.Address, ledger entities.FeeLedger) error {
	if !market.IsOwner(caller) {
		return domainerrors.ErrNotOwner
	}
	if ledger.Accrued.IsZero() {
		return domainerrors.ErrNothingToWithdraw
	}
	return nil
}
