package services

import (
	"testing"
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	collection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func activeListing(t *testing.T, price uint64) entities.Listing {
	t.Helper()
	listing, err := entities.NewListing(
		entities.NewListingKey(collection, uint256.NewInt(0)),
		alice,
		uint256.NewInt(price),
		time.Now(),
	)
	require.NoError(t, err)
	return listing
}

func TestEvaluateNewListingOrder(t *testing.T) {
	key := entities.NewListingKey(collection, uint256.NewInt(0))

	// Ownership failure wins even when the key is already listed.
	err := EvaluateNewListing(bob, alice, activeListing(t, 10))
	require.ErrorIs(t, err, domainerrors.ErrNotOwner)

	err = EvaluateNewListing(alice, alice, activeListing(t, 10))
	require.ErrorIs(t, err, domainerrors.ErrAlreadyListed)

	require.NoError(t, EvaluateNewListing(alice, alice, entities.Unlisted(key)))
}

func TestEvaluatePurchase(t *testing.T) {
	key := entities.NewListingKey(collection, uint256.NewInt(0))
	listing := activeListing(t, 1000)

	require.ErrorIs(t, EvaluatePurchase(entities.Unlisted(key), bob, uint256.NewInt(1000)), domainerrors.ErrNotListed)
	require.ErrorIs(t, EvaluatePurchase(listing, alice, uint256.NewInt(1000)), domainerrors.ErrSellerCannotBuy)
	require.ErrorIs(t, EvaluatePurchase(listing, bob, uint256.NewInt(999)), domainerrors.ErrPriceMismatch)
	require.ErrorIs(t, EvaluatePurchase(listing, bob, nil), domainerrors.ErrPriceMismatch)
	require.NoError(t, EvaluatePurchase(listing, bob, uint256.NewInt(1000)))
}

func TestEvaluatePriceUpdate(t *testing.T) {
	listing := activeListing(t, 1000)

	require.ErrorIs(t, EvaluatePriceUpdate(listing, bob, uint256.NewInt(5)), domainerrors.ErrNotLister)
	require.ErrorIs(t, EvaluatePriceUpdate(listing, alice, uint256.NewInt(1000)), domainerrors.ErrPriceUnchanged)
	require.ErrorIs(t, EvaluatePriceUpdate(listing, alice, uint256.NewInt(0)), domainerrors.ErrInvalidPrice)
	require.NoError(t, EvaluatePriceUpdate(listing, alice, uint256.NewInt(2000)))
}

func TestSplitSaleRoundsFeeDown(t *testing.T) {
	oneEther, err := uint256.FromDecimal("1000000000000000000")
	require.NoError(t, err)

	fee, proceeds := SplitSale(oneEther, 50)
	require.Equal(t, "20000000000000000", fee.Dec())
	require.Equal(t, "980000000000000000", proceeds.Dec())

	fee, proceeds = SplitSale(uint256.NewInt(49), 50)
	require.True(t, fee.IsZero())
	require.Equal(t, uint64(49), proceeds.Uint64())

	fee, _ = SplitSale(uint256.NewInt(149), 50)
	require.Equal(t, uint64(2), fee.Uint64())
}

func TestEvaluateWithdrawal(t *testing.T) {
	market, err := entities.NewMarketplace(alice, common.HexToAddress("0x00000000000000000000000000000000000000ee"), 50)
	require.NoError(t, err)

	var ledger entities.FeeLedger
	require.ErrorIs(t, EvaluateWithdrawal(market, bob, ledger), domainerrors.ErrNotOwner)
	require.ErrorIs(t, EvaluateWithdrawal(market, alice, ledger), domainerrors.ErrNothingToWithdraw)

	ledger.Accrued.SetUint64(20)
	require.NoError(t, EvaluateWithdrawal(market, alice, ledger))
}
