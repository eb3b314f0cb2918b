package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	nftmarketplace "emporium/contexts/trading/nft-marketplace"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	markethttp "emporium/contexts/trading/nft-marketplace/transport/http"
	"emporium/internal/platform/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	testOwner      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testOperator   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	testCollection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testAlice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testBob        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	market, err := entities.NewMarketplace(testOwner, testOperator, entities.DefaultFeeDivisor)
	if err != nil {
		t.Fatalf("new marketplace: %v", err)
	}
	module := nftmarketplace.NewInMemoryModule(market, zap.NewNop())
	if err := module.Registry.DeployCollection(testCollection, "Bob", "BOBS"); err != nil {
		t.Fatalf("deploy collection: %v", err)
	}
	if _, err := module.Registry.Mint(testCollection, testAlice, 2); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := module.Registry.SetApprovalForAll(testCollection, testAlice, testOperator, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return New(module, metrics.NewHTTP(prometheus.NewRegistry(), zap.NewNop()), zap.NewNop(), ":0")
}

func doRequest(server *Server, method string, path string, caller common.Address, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != (common.Address{}) {
		req.Header.Set(callerHeader, caller.Hex())
	}
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) markethttp.ErrorResponse {
	t.Helper()
	var resp markethttp.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestListBuyAndWithdrawFlow(t *testing.T) {
	server := newTestServer(t)
	listingPath := "/v1/marketplace/listings/" + testCollection.Hex() + "/0"

	rec := doRequest(server, http.MethodPost, "/v1/marketplace/listings", testAlice, markethttp.ListItemRequest{
		Collection: testCollection.Hex(),
		TokenID:    "0",
		Price:      "1000000000000000000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPost, listingPath+"/buy", testBob, markethttp.BuyItemRequest{PaidAmount: "1000000000000000000"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var bought markethttp.BuyItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bought); err != nil {
		t.Fatalf("decode buy response: %v", err)
	}
	if bought.Sale.Proceeds != "980000000000000000" || bought.Sale.Fee != "20000000000000000" {
		t.Fatalf("unexpected split: proceeds=%s fee=%s", bought.Sale.Proceeds, bought.Sale.Fee)
	}

	rec = doRequest(server, http.MethodGet, listingPath, common.Address{}, nil)
	var listing markethttp.ListingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Item.Listed || listing.Item.Price != "0" {
		t.Fatalf("expected sentinel listing after sale, got %+v", listing.Item)
	}

	rec = doRequest(server, http.MethodGet, "/v1/marketplace/fees", common.Address{}, nil)
	var ledger markethttp.FeeLedgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ledger); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if ledger.Accrued != "20000000000000000" || ledger.FeeDivisor != 50 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}

	rec = doRequest(server, http.MethodPost, "/v1/marketplace/fees/withdraw", testAlice, nil)
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "not_owner" {
		t.Fatalf("expected 403 not_owner, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodPost, "/v1/marketplace/fees/withdraw", testOwner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodPost, "/v1/marketplace/fees/withdraw", testOwner, nil)
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != "nothing_to_withdraw" {
		t.Fatalf("expected 409 nothing_to_withdraw, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMarketplaceErrorMapping(t *testing.T) {
	server := newTestServer(t)
	listingPath := "/v1/marketplace/listings/" + testCollection.Hex() + "/1"

	rec := doRequest(server, http.MethodPost, "/v1/marketplace/listings", testBob, markethttp.ListItemRequest{
		Collection: testCollection.Hex(), TokenID: "1", Price: "10",
	})
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "not_owner" {
		t.Fatalf("expected 403 not_owner, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPost, listingPath+"/buy", testBob, markethttp.BuyItemRequest{PaidAmount: "10"})
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != "not_listed" {
		t.Fatalf("expected 404 not_listed, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPost, "/v1/marketplace/listings", testAlice, markethttp.ListItemRequest{
		Collection: testCollection.Hex(), TokenID: "1", Price: "10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodPost, "/v1/marketplace/listings", testAlice, markethttp.ListItemRequest{
		Collection: testCollection.Hex(), TokenID: "1", Price: "10",
	})
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != "already_listed" {
		t.Fatalf("expected 409 already_listed, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPost, listingPath+"/buy", testAlice, markethttp.BuyItemRequest{PaidAmount: "10"})
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "seller_cannot_buy" {
		t.Fatalf("expected 403 seller_cannot_buy, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodPost, listingPath+"/buy", testBob, markethttp.BuyItemRequest{PaidAmount: "9"})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "price_mismatch" {
		t.Fatalf("expected 400 price_mismatch, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPatch, listingPath, testAlice, markethttp.UpdateListingRequest{Price: "10"})
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != "price_unchanged" {
		t.Fatalf("expected 409 price_unchanged, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodDelete, listingPath, testBob, nil)
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "not_lister" {
		t.Fatalf("expected 403 not_lister, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodDelete, listingPath, testAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodPost, "/v1/marketplace/listings", testAlice, markethttp.ListItemRequest{
		Collection: testCollection.Hex(), TokenID: "1", Price: "0",
	})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_price" {
		t.Fatalf("expected 400 invalid_price, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(server, http.MethodPost, "/v1/marketplace/listings", testAlice, markethttp.ListItemRequest{
		Collection: "not-an-address", TokenID: "1", Price: "5",
	})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_request" {
		t.Fatalf("expected 400 invalid_request, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMutationsRequireCallerHeader(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/v1/marketplace/fees/withdraw", common.Address{}, nil)
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Code != "missing_caller" {
		t.Fatalf("expected 401 missing_caller, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListListingsRejectsBadLimit(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/v1/marketplace/listings?limit=abc", common.Address{}, nil)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_limit" {
		t.Fatalf("expected 400 invalid_limit, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(server, http.MethodGet, "/healthz", common.Address{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}
