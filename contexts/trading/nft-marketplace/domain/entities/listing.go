package entities

import (
	"fmt"
	"time"

	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ListingKey identifies one asset: a collection contract plus a token id.
// It is comparable and is used directly as a map key.
type ListingKey struct {
	Collection common.Address
	TokenID    uint256.Int
}

func NewListingKey(collection common.Address, tokenID *uint256.Int) ListingKey {
	key := ListingKey{Collection: collection}
	if tokenID != nil {
		key.TokenID = *tokenID
	}
	return key
}

// String renders the key as "<collection>:<token id>", the form used for lock
// names and partition keys.
func (k ListingKey) String() string {
	return fmt.Sprintf("%s:%s", k.Collection.Hex(), k.TokenID.Dec())
}

type Listing struct {
	Key       ListingKey
	Lister    common.Address
	Price     uint256.Int
	ListedAt  time.Time
	UpdatedAt time.Time
}

// Unlisted is the sentinel read for a key without an active listing:
// zero lister and zero price.
func Unlisted(key ListingKey) Listing {
	return Listing{Key: key}
}

func NewListing(key ListingKey, lister common.Address, price *uint256.Int, listedAt time.Time) (Listing, error) {
	if lister == (common.Address{}) || key.Collection == (common.Address{}) {
		return Listing{}, domainerrors.ErrInvalidRequest
	}
	if price == nil || price.IsZero() {
		return Listing{}, domainerrors.ErrInvalidPrice
	}
	return Listing{
		Key:       key,
		Lister:    lister,
		Price:     *price,
		ListedAt:  listedAt.UTC(),
		UpdatedAt: listedAt.UTC(),
	}, nil
}

func (l Listing) IsActive() bool {
	return l.Lister != (common.Address{}) && !l.Price.IsZero()
}

func (l Listing) ListedBy(caller common.Address) bool {
	return l.IsActive() && l.Lister == caller
}
