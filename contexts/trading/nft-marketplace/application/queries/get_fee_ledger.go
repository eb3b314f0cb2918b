package queries

import (
	"context"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"
)

type GetFeeLedgerResult struct {
	Ledger     entities.FeeLedger
	Owner      string
	FeeDivisor uint64
}

type GetFeeLedgerUseCase struct {
	Market entities.Marketplace
	Fees   ports.FeeLedgerRepository
}

func (u GetFeeLedgerUseCase) Execute(ctx context.Context) (GetFeeLedgerResult, error) {
	ledger, err := u.Fees.GetFeeLedger(ctx)
	if err != nil {
		return GetFeeLedgerResult{}, err
	}
	return GetFeeLedgerResult{
		Ledger:     ledger,
		Owner:      u.Market.Owner.Hex(),
		FeeDivisor: u.Market.FeeDivisor,
	}, nil
}
