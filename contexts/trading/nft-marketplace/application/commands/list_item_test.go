package commands_test

import (
	"context"
	"testing"

	"emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/application/commands"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestListItemCreatesListingOnce(t *testing.T) {
	f := newFixture(t)

	listing := f.listToken(t, 0, "1000000000000000000")
	require.Equal(t, alice, listing.Lister)
	require.Equal(t, "1000000000000000000", listing.Price.Dec())

	stored := f.listingAt(t, 0)
	require.True(t, stored.IsActive())
	require.Equal(t, alice, stored.Lister)

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: collection,
		TokenID:    tokenID(0),
		Price:      amount(t, "5"),
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyListed)
	require.Equal(t, []string{application.EventListingCreated}, f.outboxTypes())
}

func TestListItemRejectsNewOwnerWhileListingStands(t *testing.T) {
	f := newFixture(t)
	f.listToken(t, 0, "1000")

	token := tokenID(0)
	require.NoError(t, f.registry.Transfer(collection, alice, bob, &token))
	require.NoError(t, f.registry.SetApprovalForAll(collection, bob, operator, true))

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     bob,
		Collection: collection,
		TokenID:    tokenID(0),
		Price:      amount(t, "2000"),
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyListed)

	stored := f.listingAt(t, 0)
	require.Equal(t, alice, stored.Lister)
	require.Equal(t, "1000", stored.Price.Dec())
	require.Equal(t, []string{application.EventListingCreated}, f.outboxTypes())
}

func TestListItemRejectsZeroPriceBeforeOwnership(t *testing.T) {
	f := newFixture(t)

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     bob,
		Collection: collection,
		TokenID:    tokenID(0),
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidPrice)
}

func TestListItemRequiresOwnership(t *testing.T) {
	f := newFixture(t)

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     bob,
		Collection: collection,
		TokenID:    tokenID(1),
		Price:      amount(t, "10"),
	})
	require.ErrorIs(t, err, domainerrors.ErrNotOwner)

	_, err = f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: collection,
		TokenID:    tokenID(99),
		Price:      amount(t, "10"),
	})
	require.ErrorIs(t, err, domainerrors.ErrNotOwner)
	require.Empty(t, f.outboxTypes())
}

func TestListItemRequiresOperatorApproval(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.SetApprovalForAll(collection, alice, operator, false))

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: collection,
		TokenID:    tokenID(0),
		Price:      amount(t, "10"),
	})
	require.ErrorIs(t, err, domainerrors.ErrNoApproval)
	require.False(t, f.listingAt(t, 0).IsActive())
}

func TestListItemWrapsRegistryFailures(t *testing.T) {
	f := newFixture(t)
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000c9")

	_, err := f.list.Execute(context.Background(), commands.ListItemCommand{
		Caller:     alice,
		Collection: unknown,
		TokenID:    tokenID(0),
		Price:      amount(t, "10"),
	})
	require.ErrorIs(t, err, domainerrors.ErrRegistryError)
}

func TestListItemReplaysIdempotentRequest(t *testing.T) {
	f := newFixture(t)
	cmd := commands.ListItemCommand{
		Caller:         alice,
		Collection:     collection,
		TokenID:        tokenID(2),
		Price:          amount(t, "700"),
		IdempotencyKey: "list-2",
	}

	first, err := f.list.Execute(context.Background(), cmd)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.list.Execute(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Listing.Lister, second.Listing.Lister)
	require.Equal(t, first.Listing.Price.Dec(), second.Listing.Price.Dec())
	require.Len(t, f.outboxTypes(), 1)

	cmd.Price = amount(t, "800")
	_, err = f.list.Execute(context.Background(), cmd)
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyConflict)
}
