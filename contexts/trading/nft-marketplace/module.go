package nftmarketplace

import (
	"time"

	httpadapter "emporium/contexts/trading/nft-marketplace/adapters/http"
	"emporium/contexts/trading/nft-marketplace/adapters/memory"
	"emporium/contexts/trading/nft-marketplace/application/commands"
	"emporium/contexts/trading/nft-marketplace/application/queries"
	"emporium/contexts/trading/nft-marketplace/application/workers"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"

	"go.uber.org/zap"
)

// Module is the composition surface for the marketplace. Runtime wiring
// consumes Handler; the memory adapters are exposed for tests and dev seeding
// when the module was built by NewInMemoryModule.
type Module struct {
	Handler  httpadapter.Handler
	Market   entities.Marketplace
	Store    *memory.Store
	Registry *memory.Registry
	Ledger   *memory.Ledger
}

type Dependencies struct {
	Market         entities.Marketplace
	Listings       ports.ListingRepository
	Sales          ports.SaleRepository
	Fees           ports.FeeLedgerRepository
	Payments       ports.Payments
	Registry       ports.AssetRegistry
	Locker         ports.KeyLocker
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// NewModule wires the marketplace use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		ListItem: commands.ListItemUseCase{
			Market:         deps.Market,
			Listings:       deps.Listings,
			Registry:       deps.Registry,
			Locker:         deps.Locker,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		BuyItem: commands.BuyItemUseCase{
			Market:         deps.Market,
			Listings:       deps.Listings,
			Sales:          deps.Sales,
			Payments:       deps.Payments,
			Registry:       deps.Registry,
			Locker:         deps.Locker,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		CancelListing: commands.CancelListingUseCase{
			Listings:    deps.Listings,
			Locker:      deps.Locker,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		UpdateListing: commands.UpdateListingUseCase{
			Listings:    deps.Listings,
			Locker:      deps.Locker,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		WithdrawFees: commands.WithdrawAdminFeesUseCase{
			Market:      deps.Market,
			Fees:        deps.Fees,
			Payments:    deps.Payments,
			Locker:      deps.Locker,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		GetListing:   queries.GetListingUseCase{Listings: deps.Listings, Logger: deps.Logger},
		ListListings: queries.ListListingsUseCase{Listings: deps.Listings, Logger: deps.Logger},
		ListSales:    queries.ListSalesUseCase{Sales: deps.Sales, Logger: deps.Logger},
		GetFeeLedger: queries.GetFeeLedgerUseCase{Market: deps.Market, Fees: deps.Fees},
		Logger:       deps.Logger,
	}
	return Module{Handler: handler, Market: deps.Market}
}

// NewInMemoryModule wires the use cases against in-memory adapters, including
// an in-memory ERC721 registry whose transfers are made by market.Operator.
func NewInMemoryModule(market entities.Marketplace, logger *zap.Logger) Module {
	store := memory.NewStore(logger)
	registry := memory.NewRegistry(market.Operator)
	ledger := memory.NewLedger()
	module := NewModule(Dependencies{
		Market:         market,
		Listings:       store,
		Sales:          store,
		Fees:           store,
		Payments:       ledger,
		Registry:       registry,
		Locker:         memory.NewKeyLocker(),
		Idempotency:    memory.NewIdempotencyCache(7*24*time.Hour, 10*time.Minute),
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Registry = registry
	module.Ledger = ledger
	return module
}

type WorkerDependencies struct {
	Market      entities.Marketplace
	Listings    ports.ListingRepository
	Registry    ports.AssetRegistry
	Locker      ports.KeyLocker
	Outbox      ports.OutboxRepository
	Dedup       ports.EventDedupStore
	Publisher   ports.EventPublisher
	Subscriber  ports.EventSubscriber
	Metrics     ports.MarketMetrics
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *zap.Logger
}

type Workers struct {
	Relay     workers.OutboxRelay
	Sweeper   workers.StaleListingSweeper
	Projector workers.EventMetricsProjector
}

func NewWorkers(deps WorkerDependencies) Workers {
	return Workers{
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Sweeper: workers.StaleListingSweeper{
			Market:      deps.Market,
			Listings:    deps.Listings,
			Registry:    deps.Registry,
			Locker:      deps.Locker,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		Projector: workers.EventMetricsProjector{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Metrics:    deps.Metrics,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}
