package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	nftmarketplace "emporium/contexts/trading/nft-marketplace"
	evmadapter "emporium/contexts/trading/nft-marketplace/adapters/evm"
	"emporium/contexts/trading/nft-marketplace/adapters/memory"
	postgresadapter "emporium/contexts/trading/nft-marketplace/adapters/postgres"
	redisadapter "emporium/contexts/trading/nft-marketplace/adapters/redis"
	"emporium/contexts/trading/nft-marketplace/domain/entities"
	"emporium/contexts/trading/nft-marketplace/ports"
	"emporium/internal/platform/config"
	"emporium/internal/platform/db"
	"emporium/internal/platform/messaging"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const idempotencyTTL = 7 * 24 * time.Hour

// runtime holds the adapters chosen by configuration. Every process builds
// one; the API turns it into a Module, the worker into Workers.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	market entities.Marketplace

	deps      nftmarketplace.Dependencies
	outbox    ports.OutboxRepository
	dedup     ports.EventDedupStore
	publisher ports.EventPublisher
	consumer  ports.EventSubscriber

	memoryStore    *memory.Store
	memoryRegistry *memory.Registry
	memoryLedger   *memory.Ledger

	closers []func() error
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.build(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(ctx context.Context) error {
	owner, err := parseAddress("MARKETPLACE_OWNER", rt.cfg.Marketplace.Owner)
	if err != nil {
		return err
	}

	registry, operator, err := rt.buildRegistry(ctx)
	if err != nil {
		return err
	}
	market, err := entities.NewMarketplace(owner, operator, rt.cfg.Marketplace.FeeDivisor)
	if err != nil {
		return fmt.Errorf("marketplace configuration: %w", err)
	}
	rt.market = market

	var redisClient *redis.Client
	if rt.cfg.Locks.Backend == config.BackendRedis || rt.cfg.Messaging.Backend == config.BackendRedis {
		redisClient, err = rt.connectRedis(ctx)
		if err != nil {
			return err
		}
	}

	rt.deps = nftmarketplace.Dependencies{
		Market:         market,
		Registry:       registry,
		IdempotencyTTL: idempotencyTTL,
		Logger:         rt.logger,
	}
	if err := rt.buildStorage(ctx); err != nil {
		return err
	}

	switch rt.cfg.Locks.Backend {
	case config.BackendRedis:
		rt.deps.Locker = redisadapter.NewKeyLocker(
			redisClient,
			rt.cfg.Messaging.StreamPrefix+"lock:",
			rt.logger,
			redisadapter.WithLeaseTTL(rt.cfg.Locks.LeaseTTL),
		)
	default:
		rt.deps.Locker = memory.NewKeyLocker()
	}

	switch rt.cfg.Messaging.Backend {
	case config.BackendRedis:
		streams := messaging.NewRedisStreams(redisClient, rt.cfg.Messaging.StreamPrefix, rt.logger)
		rt.publisher, rt.consumer = streams, streams
	default:
		bus := messaging.NewBus(rt.logger)
		rt.publisher, rt.consumer = bus, bus
	}
	return nil
}

func (rt *runtime) buildRegistry(ctx context.Context) (ports.AssetRegistry, common.Address, error) {
	switch rt.cfg.Registry.Backend {
	case config.BackendEVM:
		registry, err := evmadapter.Dial(ctx, evmadapter.Config{
			RPCURL:      rt.cfg.Registry.RPCURL,
			ChainID:     rt.cfg.Registry.ChainID,
			OperatorKey: rt.cfg.Registry.OperatorKey,
			RetryMax:    rt.cfg.Registry.RetryMax,
			MineTimeout: rt.cfg.Registry.MineTimeout,
		}, rt.logger)
		if err != nil {
			return nil, common.Address{}, err
		}
		rt.closers = append(rt.closers, func() error {
			registry.Close()
			return nil
		})
		if rt.cfg.Marketplace.Operator != "" {
			configured, err := parseAddress("MARKETPLACE_OPERATOR", rt.cfg.Marketplace.Operator)
			if err != nil {
				return nil, common.Address{}, err
			}
			if configured != registry.Operator() {
				return nil, common.Address{}, fmt.Errorf(
					"MARKETPLACE_OPERATOR %s does not match the address of EVM_OPERATOR_KEY %s",
					configured.Hex(), registry.Operator().Hex(),
				)
			}
		}
		return registry, registry.Operator(), nil
	default:
		operator, err := parseAddress("MARKETPLACE_OPERATOR", rt.cfg.Marketplace.Operator)
		if err != nil {
			return nil, common.Address{}, err
		}
		registry := memory.NewRegistry(operator)
		rt.memoryRegistry = registry
		if rt.cfg.DevSeed.Tokens > 0 {
			holder, err := parseAddress("DEV_SEED_HOLDER", rt.cfg.DevSeed.Holder)
			if err != nil {
				return nil, common.Address{}, err
			}
			seeded, err := SeedDevCollection(registry, operator, holder, rt.cfg.DevSeed.Tokens)
			if err != nil {
				return nil, common.Address{}, err
			}
			rt.logger.Info("dev collection seeded",
				zap.String("event", "bootstrap_dev_collection_seeded"),
				zap.String("module", "internal/app/bootstrap"),
				zap.String("layer", "platform"),
				zap.String("collection", seeded.Collection.Hex()),
				zap.String("holder", holder.Hex()),
				zap.Int("token_count", len(seeded.TokenIDs)),
			)
		}
		return registry, operator, nil
	}
}

func (rt *runtime) buildStorage(ctx context.Context) error {
	switch rt.cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := db.Connect(rt.cfg.Storage.PostgresDSN, db.Options{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Debug:           rt.cfg.Debug,
		}, rt.logger)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, pg.Close)
		if err := postgresadapter.Migrate(ctx, pg.DB); err != nil {
			return err
		}

		repo := postgresadapter.NewRepository(pg.DB, rt.logger)
		rt.deps.Listings = repo
		rt.deps.Sales = repo
		rt.deps.Fees = repo
		rt.deps.Payments = repo
		rt.deps.Idempotency = repo
		rt.deps.Clock = postgresadapter.SystemClock{}
		rt.deps.IDGenerator = postgresadapter.UUIDGenerator{}
		rt.outbox = repo
		rt.dedup = repo
	default:
		store := memory.NewStore(rt.logger)
		ledger := memory.NewLedger()
		rt.deps.Listings = store
		rt.deps.Sales = store
		rt.deps.Fees = store
		rt.deps.Payments = ledger
		rt.deps.Idempotency = memory.NewIdempotencyCache(idempotencyTTL, 10*time.Minute)
		rt.deps.Clock = store
		rt.deps.IDGenerator = store
		rt.outbox = store
		rt.dedup = store
		rt.memoryStore = store
		rt.memoryLedger = ledger
	}
	return nil
}

func (rt *runtime) connectRedis(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rt.cfg.Redis.Addr,
		Password: rt.cfg.Redis.Password,
		DB:       rt.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rt.cfg.Redis.Addr, err)
	}
	rt.closers = append(rt.closers, client.Close)
	return client, nil
}

func (rt *runtime) module() nftmarketplace.Module {
	module := nftmarketplace.NewModule(rt.deps)
	module.Store = rt.memoryStore
	module.Registry = rt.memoryRegistry
	module.Ledger = rt.memoryLedger
	return module
}

func (rt *runtime) workers(metrics ports.MarketMetrics) nftmarketplace.Workers {
	return nftmarketplace.NewWorkers(nftmarketplace.WorkerDependencies{
		Market:      rt.market,
		Listings:    rt.deps.Listings,
		Registry:    rt.deps.Registry,
		Locker:      rt.deps.Locker,
		Outbox:      rt.outbox,
		Dedup:       rt.dedup,
		Publisher:   rt.publisher,
		Subscriber:  rt.consumer,
		Metrics:     metrics,
		Clock:       rt.deps.Clock,
		IDGenerator: rt.deps.IDGenerator,
		Logger:      rt.logger,
	})
}

// Close releases adapters in reverse construction order.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func parseAddress(name string, raw string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s must be a 0x address, got %q", name, raw)
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s must not be the zero address", name)
	}
	return address, nil
}
