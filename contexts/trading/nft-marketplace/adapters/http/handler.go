package httpadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"
	"emporium/contexts/trading/nft-marketplace/application/commands"
	"emporium/contexts/trading/nft-marketplace/application/queries"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	httptransport "emporium/contexts/trading/nft-marketplace/transport/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type Handler struct {
	ListItem      commands.ListItemUseCase
	BuyItem       commands.BuyItemUseCase
	CancelListing commands.CancelListingUseCase
	UpdateListing commands.UpdateListingUseCase
	WithdrawFees  commands.WithdrawAdminFeesUseCase
	GetListing    queries.GetListingUseCase
	ListListings  queries.ListListingsUseCase
	ListSales     queries.ListSalesUseCase
	GetFeeLedger  queries.GetFeeLedgerUseCase
	Logger        *zap.Logger
}

// ListItemHandler godoc
// @Summary List an asset for sale
// @Description Creates a fixed-price listing. The caller must own the token and have approved the marketplace operator.
// @Tags nft-marketplace
// @Accept json
// @Produce json
// @Param X-Caller-Address header string true "Caller address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body httptransport.ListItemRequest true "Listing payload"
// @Success 201 {object} httptransport.ListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 412 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings [post]
func (h Handler) ListItemHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	req httptransport.ListItemRequest,
) (httptransport.ListingResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	callerAddress, err := parseAddress("caller", caller)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	tokenID, err := parseAmount("token_id", req.TokenID)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}

	result, err := h.ListItem.Execute(ctx, commands.ListItemCommand{
		Caller:         callerAddress,
		Collection:     collection,
		TokenID:        *tokenID,
		Price:          *price,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	})
	if err != nil {
		logger.Debug("list item request failed",
			application.LogFields("http_list_item_failed", "transport", zap.Error(err))...,
		)
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Listing), Replayed: result.Replayed}, nil
}

// BuyItemHandler godoc
// @Summary Buy a listed asset
// @Description Pays exactly the listing price; the seller receives price minus the platform fee.
// @Tags nft-marketplace
// @Accept json
// @Produce json
// @Param X-Caller-Address header string true "Buyer address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param collection path string true "Collection address"
// @Param token_id path string true "Token id"
// @Param request body httptransport.BuyItemRequest true "Payment"
// @Success 200 {object} httptransport.BuyItemResponse
// @Success 202 {object} httptransport.BuyItemResponse "Transfer submitted, not yet mined"
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{collection}/{token_id}/buy [post]
func (h Handler) BuyItemHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	collectionRaw string,
	tokenIDRaw string,
	req httptransport.BuyItemRequest,
) (httptransport.BuyItemResponse, error) {
	callerAddress, err := parseAddress("caller", caller)
	if err != nil {
		return httptransport.BuyItemResponse{}, err
	}
	collection, tokenID, err := parseKey(collectionRaw, tokenIDRaw)
	if err != nil {
		return httptransport.BuyItemResponse{}, err
	}
	paid, err := parseAmount("paid_amount", req.PaidAmount)
	if err != nil {
		return httptransport.BuyItemResponse{}, err
	}

	result, err := h.BuyItem.Execute(ctx, commands.BuyItemCommand{
		Caller:         callerAddress,
		Collection:     collection,
		TokenID:        *tokenID,
		PaidAmount:     *paid,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	})
	if err != nil {
		return httptransport.BuyItemResponse{}, err
	}
	return httptransport.BuyItemResponse{
		Sale:            mapSale(result.Sale),
		Replayed:        result.Replayed,
		TransferPending: result.TransferPending,
	}, nil
}

// CancelListingHandler godoc
// @Summary Cancel a listing
// @Tags nft-marketplace
// @Produce json
// @Param X-Caller-Address header string true "Lister address"
// @Param collection path string true "Collection address"
// @Param token_id path string true "Token id"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{collection}/{token_id} [delete]
func (h Handler) CancelListingHandler(
	ctx context.Context,
	caller string,
	collectionRaw string,
	tokenIDRaw string,
) (httptransport.ListingResponse, error) {
	callerAddress, err := parseAddress("caller", caller)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	collection, tokenID, err := parseKey(collectionRaw, tokenIDRaw)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	result, err := h.CancelListing.Execute(ctx, commands.CancelListingCommand{
		Caller:     callerAddress,
		Collection: collection,
		TokenID:    *tokenID,
	})
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Cancelled)}, nil
}

// UpdateListingHandler godoc
// @Summary Change a listing price
// @Tags nft-marketplace
// @Accept json
// @Produce json
// @Param X-Caller-Address header string true "Lister address"
// @Param collection path string true "Collection address"
// @Param token_id path string true "Token id"
// @Param request body httptransport.UpdateListingRequest true "New price"
// @Success 200 {object} httptransport.UpdateListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{collection}/{token_id} [patch]
func (h Handler) UpdateListingHandler(
	ctx context.Context,
	caller string,
	collectionRaw string,
	tokenIDRaw string,
	req httptransport.UpdateListingRequest,
) (httptransport.UpdateListingResponse, error) {
	callerAddress, err := parseAddress("caller", caller)
	if err != nil {
		return httptransport.UpdateListingResponse{}, err
	}
	collection, tokenID, err := parseKey(collectionRaw, tokenIDRaw)
	if err != nil {
		return httptransport.UpdateListingResponse{}, err
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		return httptransport.UpdateListingResponse{}, err
	}
	result, err := h.UpdateListing.Execute(ctx, commands.UpdateListingCommand{
		Caller:     callerAddress,
		Collection: collection,
		TokenID:    *tokenID,
		NewPrice:   *price,
	})
	if err != nil {
		return httptransport.UpdateListingResponse{}, err
	}
	return httptransport.UpdateListingResponse{
		Item:     mapListing(result.Listing),
		OldPrice: result.OldPrice.Dec(),
	}, nil
}

// GetListingHandler godoc
// @Summary Read one listing
// @Description An unlisted asset returns listed=false with a zero lister and zero price.
// @Tags nft-marketplace
// @Produce json
// @Param collection path string true "Collection address"
// @Param token_id path string true "Token id"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{collection}/{token_id} [get]
func (h Handler) GetListingHandler(ctx context.Context, collectionRaw string, tokenIDRaw string) (httptransport.ListingResponse, error) {
	collection, tokenID, err := parseKey(collectionRaw, tokenIDRaw)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	result, err := h.GetListing.Execute(ctx, queries.GetListingQuery{Collection: collection, TokenID: *tokenID})
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Listing)}, nil
}

// ListListingsHandler godoc
// @Summary List active listings
// @Tags nft-marketplace
// @Produce json
// @Param collection query string false "Collection address"
// @Param lister query string false "Lister address"
// @Param cursor query string false "Cursor token"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListListingsResponse
// @Router /v1/marketplace/listings [get]
func (h Handler) ListListingsHandler(ctx context.Context, req httptransport.ListListingsRequest) (httptransport.ListListingsResponse, error) {
	collection, err := parseOptionalAddress("collection", req.Collection)
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}
	lister, err := parseOptionalAddress("lister", req.Lister)
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}
	result, err := h.ListListings.Execute(ctx, queries.ListListingsQuery{
		Collection: collection,
		Lister:     lister,
		Cursor:     req.Cursor,
		Limit:      req.Limit,
	})
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}
	items := make([]httptransport.ListingDTO, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, mapListing(listing))
	}
	return httptransport.ListListingsResponse{Items: items, NextCursor: result.NextCursor}, nil
}

// ListSalesHandler godoc
// @Summary List settled sales
// @Tags nft-marketplace
// @Produce json
// @Param collection query string false "Collection address"
// @Param seller query string false "Seller address"
// @Param buyer query string false "Buyer address"
// @Param cursor query string false "Cursor token"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListSalesResponse
// @Router /v1/marketplace/sales [get]
func (h Handler) ListSalesHandler(ctx context.Context, req httptransport.ListSalesRequest) (httptransport.ListSalesResponse, error) {
	collection, err := parseOptionalAddress("collection", req.Collection)
	if err != nil {
		return httptransport.ListSalesResponse{}, err
	}
	seller, err := parseOptionalAddress("seller", req.Seller)
	if err != nil {
		return httptransport.ListSalesResponse{}, err
	}
	buyer, err := parseOptionalAddress("buyer", req.Buyer)
	if err != nil {
		return httptransport.ListSalesResponse{}, err
	}
	result, err := h.ListSales.Execute(ctx, queries.ListSalesQuery{
		Collection: collection,
		Seller:     seller,
		Buyer:      buyer,
		Cursor:     req.Cursor,
		Limit:      req.Limit,
	})
	if err != nil {
		return httptransport.ListSalesResponse{}, err
	}
	items := make([]httptransport.SaleDTO, 0, len(result.Items))
	for _, sale := range result.Items {
		items = append(items, mapSale(sale))
	}
	return httptransport.ListSalesResponse{Items: items, NextCursor: result.NextCursor}, nil
}

// GetFeeLedgerHandler godoc
// @Summary Read accrued platform fees
// @Tags nft-marketplace
// @Produce json
// @Success 200 {object} httptransport.FeeLedgerResponse
// @Router /v1/marketplace/fees [get]
func (h Handler) GetFeeLedgerHandler(ctx context.Context) (httptransport.FeeLedgerResponse, error) {
	result, err := h.GetFeeLedger.Execute(ctx)
	if err != nil {
		return httptransport.FeeLedgerResponse{}, err
	}
	resp := httptransport.FeeLedgerResponse{
		Accrued:    result.Ledger.Accrued.Dec(),
		Owner:      result.Owner,
		FeeDivisor: result.FeeDivisor,
	}
	if !result.Ledger.UpdatedAt.IsZero() {
		resp.UpdatedAt = result.Ledger.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// WithdrawFeesHandler godoc
// @Summary Withdraw accrued platform fees
// @Description Owner only. Drains the fee ledger and pays the full amount to the owner.
// @Tags nft-marketplace
// @Produce json
// @Param X-Caller-Address header string true "Owner address"
// @Success 200 {object} httptransport.WithdrawFeesResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/fees/withdraw [post]
func (h Handler) WithdrawFeesHandler(ctx context.Context, caller string) (httptransport.WithdrawFeesResponse, error) {
	callerAddress, err := parseAddress("caller", caller)
	if err != nil {
		return httptransport.WithdrawFeesResponse{}, err
	}
	result, err := h.WithdrawFees.Execute(ctx, commands.WithdrawAdminFeesCommand{Caller: callerAddress})
	if err != nil {
		return httptransport.WithdrawFeesResponse{}, err
	}
	return httptransport.WithdrawFeesResponse{
		Amount:   result.Amount.Dec(),
		PayoutID: result.PayoutID,
	}, nil
}

func mapListing(listing entities.Listing) httptransport.ListingDTO {
	dto := httptransport.ListingDTO{
		Collection: listing.Key.Collection.Hex(),
		TokenID:    listing.Key.TokenID.Dec(),
		Lister:     listing.Lister.Hex(),
		Price:      listing.Price.Dec(),
		Listed:     listing.IsActive(),
	}
	if listing.IsActive() {
		dto.ListedAt = listing.ListedAt.UTC().Format(time.RFC3339)
		dto.UpdatedAt = listing.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func mapSale(sale entities.Sale) httptransport.SaleDTO {
	return httptransport.SaleDTO{
		SaleID:     sale.SaleID,
		Collection: sale.Key.Collection.Hex(),
		TokenID:    sale.Key.TokenID.Dec(),
		Seller:     sale.Seller.Hex(),
		Buyer:      sale.Buyer.Hex(),
		Price:      sale.Price.Dec(),
		Fee:        sale.Fee.Dec(),
		Proceeds:   sale.Proceeds.Dec(),
		SoldAt:     sale.SoldAt.UTC().Format(time.RFC3339),
	}
}

func parseKey(collectionRaw string, tokenIDRaw string) (common.Address, *uint256.Int, error) {
	collection, err := parseAddress("collection", collectionRaw)
	if err != nil {
		return common.Address{}, nil, err
	}
	tokenID, err := parseAmount("token_id", tokenIDRaw)
	if err != nil {
		return common.Address{}, nil, err
	}
	return collection, tokenID, nil
}

func parseAddress(field string, raw string) (common.Address, error) {
	value := strings.TrimSpace(raw)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%w: %s must be a 0x address", domainerrors.ErrInvalidRequest, field)
	}
	address := common.HexToAddress(value)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s must not be the zero address", domainerrors.ErrInvalidRequest, field)
	}
	return address, nil
}

func parseOptionalAddress(field string, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, raw)
}

func parseAmount(field string, raw string) (*uint256.Int, error) {
	value, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a base-10 integer", domainerrors.ErrInvalidRequest, field)
	}
	return value, nil
}
