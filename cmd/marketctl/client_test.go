package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	markethttp "emporium/contexts/trading/nft-marketplace/transport/http"

	"github.com/stretchr/testify/require"
)

func TestAPIClientSendsCallerAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/marketplace/fees/withdraw", r.URL.Path)
		require.Equal(t, "0x0000000000000000000000000000000000000001", r.Header.Get(callerHeader))
		_ = json.NewEncoder(w).Encode(markethttp.WithdrawFeesResponse{Amount: "20", PayoutID: "p-1"})
	}))
	defer server.Close()

	var resp markethttp.WithdrawFeesResponse
	err := newAPIClient(server.URL+"/", 0).post(context.Background(), "/v1/marketplace/fees/withdraw",
		"0x0000000000000000000000000000000000000001", nil, &resp)
	require.NoError(t, err)
	require.Equal(t, "20", resp.Amount)
	require.Equal(t, "p-1", resp.PayoutID)
}

func TestAPIClientSurfacesErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "limit=5&lister=0xabc", r.URL.RawQuery)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(markethttp.ErrorResponse{Code: "invalid_request", Message: "lister must be a 0x address"})
	}))
	defer server.Close()

	query := url.Values{}
	query.Set("lister", "0xabc")
	query.Set("limit", "5")
	err := newAPIClient(server.URL, 0).get(context.Background(), "/v1/marketplace/listings", query, nil)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "invalid_request", apiErr.Body.Code)
}

func TestAPIClientRetriesServiceUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(markethttp.FeeLedgerResponse{Accrued: "0", FeeDivisor: 50})
	}))
	defer server.Close()

	var resp markethttp.FeeLedgerResponse
	require.NoError(t, newAPIClient(server.URL, 2).get(context.Background(), "/v1/marketplace/fees", nil, &resp))
	require.Equal(t, uint64(50), resp.FeeDivisor)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
