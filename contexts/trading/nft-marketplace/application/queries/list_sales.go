package queries

import (
	"context"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type ListSalesQuery struct {
	Collection common.Address
	Seller     common.Address
	Buyer      common.Address
	Cursor     string
	Limit      int
}

type ListSalesResult struct {
	Items      []entities.Sale
	NextCursor string
}

type ListSalesUseCase struct {
	Sales  ports.SaleRepository
	Logger *zap.Logger
}

func (u ListSalesUseCase) Execute(ctx context.Context, query ListSalesQuery) (ListSalesResult, error) {
	logger := application.ResolveLogger(u.Logger)

	items, nextCursor, err := u.Sales.ListSales(ctx, ports.SaleFilter{
		Collection: query.Collection,
		Seller:     query.Seller,
		Buyer:      query.Buyer,
		Cursor:     query.Cursor,
		Limit:      clampLimit(query.Limit),
	})
	if err != nil {
		logger.Error("list sales failed",
			application.LogFields("list_sales_failed", "application", zap.Error(err))...,
		)
		return ListSalesResult{}, err
	}
	return ListSalesResult{Items: items, NextCursor: nextCursor}, nil
}
