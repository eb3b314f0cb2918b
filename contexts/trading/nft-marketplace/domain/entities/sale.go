package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Sale is the settled record of one purchase. Proceeds is Price minus Fee and
// is what the seller is paid.
type Sale struct {
	SaleID   string
	Key      ListingKey
	Seller   common.Address
	Buyer    common.Address
	Price    uint256.Int
	Fee      uint256.Int
	Proceeds uint256.Int
	PayoutID string
	SoldAt   time.Time
}
