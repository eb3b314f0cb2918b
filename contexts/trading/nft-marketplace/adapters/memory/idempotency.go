package memory

import (
	"context"
	"time"

	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"

	gocache "github.com/patrickmn/go-cache"
)

// IdempotencyCache keeps idempotency records in a TTL cache. Expired records
// are evicted by the cache janitor and also treated as absent on read.
type IdempotencyCache struct {
	cache *gocache.Cache
}

func NewIdempotencyCache(defaultTTL time.Duration, cleanupInterval time.Duration) *IdempotencyCache {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &IdempotencyCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *IdempotencyCache) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	value, ok := c.cache.Get(key)
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	record, ok := value.(ports.IdempotencyRecord)
	if !ok {
		return ports.IdempotencyRecord{}, false, domainerrors.ErrRepositoryInvariantBroke
	}
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		c.cache.Delete(key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (c *IdempotencyCache) Put(_ context.Context, record ports.IdempotencyRecord) error {
	ttl := gocache.DefaultExpiration
	if !record.ExpiresAt.IsZero() {
		ttl = time.Until(record.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	if err := c.cache.Add(record.Key, record, ttl); err == nil {
		return nil
	}

	value, ok := c.cache.Get(record.Key)
	if !ok {
		// Expired between Add and Get.
		c.cache.Set(record.Key, record, ttl)
		return nil
	}
	existing, ok := value.(ports.IdempotencyRecord)
	if !ok || existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}
