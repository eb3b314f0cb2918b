package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	nftmarketplace "emporium/contexts/trading/nft-marketplace"
	marketerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	markethttp "emporium/contexts/trading/nft-marketplace/transport/http"
	"emporium/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "emporium/internal/platform/httpserver/docs"
)

const callerHeader = "X-Caller-Address"

type Server struct {
	mux         *http.ServeMux
	logger      *zap.Logger
	addr        string
	marketplace nftmarketplace.Module
	metrics     *metrics.HTTP
	http        *http.Server
}

func New(
	marketplace nftmarketplace.Module,
	httpMetrics *metrics.HTTP,
	logger *zap.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = zap.L()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		marketplace: marketplace,
		metrics:     httpMetrics,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		zap.String("event", "http_server_starting"),
		zap.String("module", "internal/platform/httpserver"),
		zap.String("layer", "platform"),
		zap.String("addr", s.addr),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.handle("POST /v1/marketplace/listings", s.handleListItem)
	s.handle("GET /v1/marketplace/listings", s.handleListListings)
	s.handle("GET /v1/marketplace/listings/{collection}/{token_id}", s.handleGetListing)
	s.handle("PATCH /v1/marketplace/listings/{collection}/{token_id}", s.handleUpdateListing)
	s.handle("DELETE /v1/marketplace/listings/{collection}/{token_id}", s.handleCancelListing)
	s.handle("POST /v1/marketplace/listings/{collection}/{token_id}/buy", s.handleBuyItem)
	s.handle("GET /v1/marketplace/sales", s.handleListSales)
	s.handle("GET /v1/marketplace/fees", s.handleGetFeeLedger)
	s.handle("POST /v1/marketplace/fees/withdraw", s.handleWithdrawFees)
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	if s.metrics == nil {
		s.mux.HandleFunc(pattern, handler)
		return
	}
	s.mux.Handle(pattern, s.metrics.Instrument(pattern, handler))
}

func (s *Server) handleListItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req markethttp.ListItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.marketplace.Handler.ListItemHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := markethttp.ListListingsRequest{
		Collection: query.Get("collection"),
		Lister:     query.Get("lister"),
		Cursor:     query.Get("cursor"),
	}
	limit, ok := parseLimit(w, query.Get("limit"))
	if !ok {
		return
	}
	req.Limit = limit

	resp, err := s.marketplace.Handler.ListListingsHandler(r.Context(), req)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.GetListingHandler(r.Context(), r.PathValue("collection"), r.PathValue("token_id"))
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req markethttp.UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.marketplace.Handler.UpdateListingHandler(
		r.Context(),
		caller,
		r.PathValue("collection"),
		r.PathValue("token_id"),
		req,
	)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.CancelListingHandler(r.Context(), caller, r.PathValue("collection"), r.PathValue("token_id"))
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuyItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req markethttp.BuyItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.marketplace.Handler.BuyItemHandler(
		r.Context(),
		caller,
		r.Header.Get("Idempotency-Key"),
		r.PathValue("collection"),
		r.PathValue("token_id"),
		req,
	)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.TransferPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := markethttp.ListSalesRequest{
		Collection: query.Get("collection"),
		Seller:     query.Get("seller"),
		Buyer:      query.Get("buyer"),
		Cursor:     query.Get("cursor"),
	}
	limit, ok := parseLimit(w, query.Get("limit"))
	if !ok {
		return
	}
	req.Limit = limit

	resp, err := s.marketplace.Handler.ListSalesHandler(r.Context(), req)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetFeeLedger(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.GetFeeLedgerHandler(r.Context())
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.WithdrawFeesHandler(r.Context(), caller)
	if err != nil {
		s.writeMarketplaceDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get(callerHeader))
	if caller == "" {
		writeMarketplaceError(w, http.StatusUnauthorized, "missing_caller", callerHeader+" header is required")
		return "", false
	}
	return caller, true
}

func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return 0, false
	}
	return limit, true
}

func (s *Server) writeMarketplaceDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, marketerrors.ErrNotOwner):
		writeMarketplaceError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, marketerrors.ErrNotLister):
		writeMarketplaceError(w, http.StatusForbidden, "not_lister", err.Error())
	case errors.Is(err, marketerrors.ErrSellerCannotBuy):
		writeMarketplaceError(w, http.StatusForbidden, "seller_cannot_buy", err.Error())
	case errors.Is(err, marketerrors.ErrNotListed):
		writeMarketplaceError(w, http.StatusNotFound, "not_listed", err.Error())
	case errors.Is(err, marketerrors.ErrSaleNotFound):
		writeMarketplaceError(w, http.StatusNotFound, "sale_not_found", err.Error())
	case errors.Is(err, marketerrors.ErrAlreadyListed):
		writeMarketplaceError(w, http.StatusConflict, "already_listed", err.Error())
	case errors.Is(err, marketerrors.ErrPriceUnchanged):
		writeMarketplaceError(w, http.StatusConflict, "price_unchanged", err.Error())
	case errors.Is(err, marketerrors.ErrNothingToWithdraw):
		writeMarketplaceError(w, http.StatusConflict, "nothing_to_withdraw", err.Error())
	case errors.Is(err, marketerrors.ErrIdempotencyKeyConflict):
		writeMarketplaceError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, marketerrors.ErrNoApproval):
		writeMarketplaceError(w, http.StatusPreconditionFailed, "no_approval", err.Error())
	case errors.Is(err, marketerrors.ErrPriceMismatch):
		writeMarketplaceError(w, http.StatusBadRequest, "price_mismatch", err.Error())
	case errors.Is(err, marketerrors.ErrInvalidPrice):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_price", err.Error())
	case errors.Is(err, marketerrors.ErrInvalidRequest):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, marketerrors.ErrLockUnavailable):
		writeMarketplaceError(w, http.StatusServiceUnavailable, "lock_unavailable", "listing is busy, retry later")
	case errors.Is(err, marketerrors.ErrRegistryError):
		s.logger.Warn("asset registry failure",
			zap.String("event", "http_registry_error"),
			zap.String("module", "internal/platform/httpserver"),
			zap.String("layer", "platform"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMarketplaceError(w, http.StatusBadGateway, "registry_error", "asset registry call failed")
	default:
		s.logger.Error("unhandled marketplace error",
			zap.String("event", "http_internal_error"),
			zap.String("module", "internal/platform/httpserver"),
			zap.String("layer", "platform"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMarketplaceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeMarketplaceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, markethttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
