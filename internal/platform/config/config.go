package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendEVM      = "evm"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	Debug       bool
	LogFile     string

	Marketplace MarketplaceConfig
	Storage     StorageConfig
	Registry    RegistryConfig
	Locks       LocksConfig
	Messaging   MessagingConfig
	Redis       RedisConfig
	Worker      WorkerConfig
	DevSeed     DevSeedConfig
}

type MarketplaceConfig struct {
	Owner      string
	Operator   string
	FeeDivisor uint64
}

type StorageConfig struct {
	Backend     string
	PostgresDSN string
}

type RegistryConfig struct {
	Backend     string
	RPCURL      string
	ChainID     int64
	OperatorKey string
	RetryMax    int
	MineTimeout time.Duration
}

type LocksConfig struct {
	Backend  string
	LeaseTTL time.Duration
}

type MessagingConfig struct {
	Backend      string
	StreamPrefix string
}

// RedisConfig is shared by the lock and messaging backends.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WorkerConfig struct {
	PollInterval    time.Duration
	SweepInterval   time.Duration
	EnableSweeper   bool
	EnableProjector bool
	MetricsAddr     string
}

// DevSeedConfig deploys a mock collection on the memory registry at startup.
// Tokens == 0 disables seeding.
type DevSeedConfig struct {
	Holder string
	Tokens uint64
}

// Load reads an optional .env file and resolves every value from the
// environment with defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		HTTPPort:    v.GetString("HTTP_PORT"),
		Debug:       v.GetBool("DEBUG"),
		LogFile:     v.GetString("LOG_FILE"),
		Marketplace: MarketplaceConfig{
			Owner:      strings.TrimSpace(v.GetString("MARKETPLACE_OWNER")),
			Operator:   strings.TrimSpace(v.GetString("MARKETPLACE_OPERATOR")),
			FeeDivisor: v.GetUint64("MARKETPLACE_FEE_DIVISOR"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(v.GetString("STORAGE_BACKEND")),
			PostgresDSN: v.GetString("POSTGRES_DSN"),
		},
		Registry: RegistryConfig{
			Backend:     strings.ToLower(v.GetString("REGISTRY_BACKEND")),
			RPCURL:      v.GetString("EVM_RPC_URL"),
			ChainID:     v.GetInt64("EVM_CHAIN_ID"),
			OperatorKey: v.GetString("EVM_OPERATOR_KEY"),
			RetryMax:    v.GetInt("EVM_RETRY_MAX"),
			MineTimeout: v.GetDuration("EVM_MINE_TIMEOUT"),
		},
		Locks: LocksConfig{
			Backend:  strings.ToLower(v.GetString("LOCK_BACKEND")),
			LeaseTTL: v.GetDuration("LOCK_LEASE_TTL"),
		},
		Messaging: MessagingConfig{
			Backend:      strings.ToLower(v.GetString("MESSAGING_BACKEND")),
			StreamPrefix: v.GetString("MESSAGING_STREAM_PREFIX"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Worker: WorkerConfig{
			PollInterval:    v.GetDuration("WORKER_POLL_INTERVAL"),
			SweepInterval:   v.GetDuration("WORKER_SWEEP_INTERVAL"),
			EnableSweeper:   v.GetBool("ENABLE_STALE_LISTING_SWEEPER"),
			EnableProjector: v.GetBool("ENABLE_EVENT_METRICS_PROJECTOR"),
			MetricsAddr:     v.GetString("WORKER_METRICS_ADDR"),
		},
		DevSeed: DevSeedConfig{
			Holder: strings.TrimSpace(v.GetString("DEV_SEED_HOLDER")),
			Tokens: v.GetUint64("DEV_SEED_TOKENS"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "nft-marketplace")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("MARKETPLACE_FEE_DIVISOR", 50)
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("REGISTRY_BACKEND", BackendMemory)
	v.SetDefault("EVM_CHAIN_ID", 31337)
	v.SetDefault("EVM_RETRY_MAX", 4)
	v.SetDefault("EVM_MINE_TIMEOUT", "2m")
	v.SetDefault("LOCK_BACKEND", BackendMemory)
	v.SetDefault("LOCK_LEASE_TTL", "30s")
	v.SetDefault("MESSAGING_BACKEND", BackendMemory)
	v.SetDefault("MESSAGING_STREAM_PREFIX", "emporium:")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("WORKER_POLL_INTERVAL", "2s")
	v.SetDefault("WORKER_SWEEP_INTERVAL", "1m")
	v.SetDefault("ENABLE_STALE_LISTING_SWEEPER", false)
	v.SetDefault("ENABLE_EVENT_METRICS_PROJECTOR", true)
	v.SetDefault("WORKER_METRICS_ADDR", ":9091")
	v.SetDefault("DEV_SEED_TOKENS", 0)
}

func (c Config) Validate() error {
	if c.Marketplace.FeeDivisor == 0 {
		return errors.New("MARKETPLACE_FEE_DIVISOR must be greater than zero")
	}
	if err := oneOf("STORAGE_BACKEND", c.Storage.Backend, BackendMemory, BackendPostgres); err != nil {
		return err
	}
	if err := oneOf("REGISTRY_BACKEND", c.Registry.Backend, BackendMemory, BackendEVM); err != nil {
		return err
	}
	if err := oneOf("LOCK_BACKEND", c.Locks.Backend, BackendMemory, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("MESSAGING_BACKEND", c.Messaging.Backend, BackendMemory, BackendRedis); err != nil {
		return err
	}
	if c.Storage.Backend == BackendPostgres && strings.TrimSpace(c.Storage.PostgresDSN) == "" {
		return errors.New("POSTGRES_DSN is required for the postgres storage backend")
	}
	if c.Registry.Backend == BackendEVM {
		if strings.TrimSpace(c.Registry.RPCURL) == "" || strings.TrimSpace(c.Registry.OperatorKey) == "" {
			return errors.New("EVM_RPC_URL and EVM_OPERATOR_KEY are required for the evm registry backend")
		}
	}
	if c.DevSeed.Tokens > 0 {
		if c.Registry.Backend != BackendMemory {
			return errors.New("DEV_SEED_TOKENS requires the memory registry backend")
		}
		if c.DevSeed.Holder == "" {
			return errors.New("DEV_SEED_HOLDER is required when DEV_SEED_TOKENS is set")
		}
	}
	return nil
}

func oneOf(name string, value string, allowed ...string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), value)
}
