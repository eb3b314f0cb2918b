package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"
)

func TestIdempotencyCacheStoresAndDetectsConflicts(t *testing.T) {
	cache := NewIdempotencyCache(time.Hour, time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()
	record := ports.IdempotencyRecord{
		Key:             "idem-1",
		RequestHash:     "hash-a",
		ResponsePayload: []byte("sale-1"),
		ExpiresAt:       now.Add(time.Hour),
	}

	if err := cache.Put(ctx, record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Put(ctx, record); err != nil {
		t.Fatalf("same request put should be accepted: %v", err)
	}

	got, found, err := cache.Get(ctx, "idem-1", now)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if string(got.ResponsePayload) != "sale-1" {
		t.Fatalf("unexpected payload %q", got.ResponsePayload)
	}

	record.RequestHash = "hash-b"
	if err := cache.Put(ctx, record); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, found, _ := cache.Get(ctx, "idem-1", now.Add(2*time.Hour)); found {
		t.Fatal("expected record to read as expired")
	}
}
