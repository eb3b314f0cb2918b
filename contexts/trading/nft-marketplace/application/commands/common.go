package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func resolveIdempotencyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultIdempotencyTTL
	}
	return ttl
}

func acquire(ctx context.Context, locker ports.KeyLocker, key string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domainerrors.ErrLockUnavailable, key, err)
	}
	return unlock, nil
}

func registryFailure(operation string, key entities.ListingKey, err error) error {
	return fmt.Errorf("%w: %s %s: %v", domainerrors.ErrRegistryError, operation, key, err)
}

func hashRequest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// replayLookup returns the stored record for a reused idempotency key. A key
// reused with a different request hash is rejected.
func replayLookup(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	now time.Time,
) (ports.IdempotencyRecord, bool, error) {
	if store == nil || strings.TrimSpace(key) == "" {
		return ports.IdempotencyRecord{}, false, nil
	}
	record, found, err := store.Get(ctx, key, now)
	if err != nil || !found {
		return ports.IdempotencyRecord{}, false, err
	}
	if record.RequestHash != requestHash {
		return ports.IdempotencyRecord{}, false, domainerrors.ErrIdempotencyKeyConflict
	}
	return record, true, nil
}

func remember(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	payload []byte,
	expiresAt time.Time,
) error {
	if store == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return store.Put(ctx, ports.IdempotencyRecord{
		Key:             key,
		RequestHash:     requestHash,
		ResponsePayload: payload,
		ExpiresAt:       expiresAt,
	})
}
