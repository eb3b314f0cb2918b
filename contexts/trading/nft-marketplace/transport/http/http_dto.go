package httptransport

// Amounts and token ids travel as base-10 strings; addresses as 0x hex.

type ListItemRequest struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Price      string `json:"price"`
}

type BuyItemRequest struct {
	PaidAmount string `json:"paid_amount"`
}

type UpdateListingRequest struct {
	Price string `json:"price"`
}

type ListListingsRequest struct {
	Collection string `json:"collection,omitempty"`
	Lister     string `json:"lister,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ListSalesRequest struct {
	Collection string `json:"collection,omitempty"`
	Seller     string `json:"seller,omitempty"`
	Buyer      string `json:"buyer,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ListingDTO struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Lister     string `json:"lister"`
	Price      string `json:"price"`
	Listed     bool   `json:"listed"`
	ListedAt   string `json:"listed_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type ListingResponse struct {
	Item     ListingDTO `json:"item"`
	Replayed bool       `json:"replayed,omitempty"`
}

type UpdateListingResponse struct {
	Item     ListingDTO `json:"item"`
	OldPrice string     `json:"old_price"`
}

type ListListingsResponse struct {
	Items      []ListingDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type SaleDTO struct {
	SaleID     string `json:"sale_id"`
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer"`
	Price      string `json:"price"`
	Fee        string `json:"fee"`
	Proceeds   string `json:"proceeds"`
	SoldAt     string `json:"sold_at"`
}

type BuyItemResponse struct {
	Sale            SaleDTO `json:"sale"`
	Replayed        bool    `json:"replayed,omitempty"`
	TransferPending bool    `json:"transfer_pending,omitempty"`
}

type ListSalesResponse struct {
	Items      []SaleDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type FeeLedgerResponse struct {
	Accrued    string `json:"accrued"`
	Owner      string `json:"owner"`
	FeeDivisor uint64 `json:"fee_divisor"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type WithdrawFeesResponse struct {
	Amount   string `json:"amount"`
	PayoutID string `json:"payout_id"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
