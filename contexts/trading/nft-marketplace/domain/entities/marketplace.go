package entities

import (
	"time"

	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultFeeDivisor reproduces the provisioning default: a 1/50 (2%) fee.
const DefaultFeeDivisor uint64 = 50

// Marketplace is the construction-time configuration of the singleton.
// FeeDivisor is a reciprocal rate: fee = price / FeeDivisor.
// Operator is the identity the asset registry sees as the marketplace when
// checking approvals and moving custody.
type Marketplace struct {
	Owner      common.Address
	Operator   common.Address
	FeeDivisor uint64
}

func NewMarketplace(owner common.Address, operator common.Address, feeDivisor uint64) (Marketplace, error) {
	if owner == (common.Address{}) || operator == (common.Address{}) || feeDivisor == 0 {
		return Marketplace{}, domainerrors.ErrInvalidRequest
	}
	return Marketplace{
		Owner:      owner,
		Operator:   operator,
		FeeDivisor: feeDivisor,
	}, nil
}

func (m Marketplace) IsOwner(caller common.Address) bool {
	return caller != (common.Address{}) && caller == m.Owner
}

// FeeLedger holds fees collected since the last withdrawal.
type FeeLedger struct {
	Accrued   uint256.Int
	UpdatedAt time.Time
}

// Payout is one value transfer out of the marketplace.
type Payout struct {
	PayoutID  string
	Recipient common.Address
	Amount    uint256.Int
	Reason    PayoutReason
	Reference string
	CreatedAt time.Time
}

type PayoutReason string

const (
	PayoutReasonSaleProceeds PayoutReason = "sale_proceeds"
	PayoutReasonAdminFees    PayoutReason = "admin_fees"
)
