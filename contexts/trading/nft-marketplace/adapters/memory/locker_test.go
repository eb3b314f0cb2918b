package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyLockerSerializesSameKey(t *testing.T) {
	locker := NewKeyLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "listing:a")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if len(locker.slots) != 0 {
		t.Fatalf("expected idle slots to be dropped, have %d", len(locker.slots))
	}
}

func TestKeyLockerHonorsContextWhileWaiting(t *testing.T) {
	locker := NewKeyLocker()
	unlock, err := locker.Lock(context.Background(), "fees")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "fees"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	other, err := locker.Lock(context.Background(), "listing:b")
	if err != nil {
		t.Fatalf("independent key should not block: %v", err)
	}
	other()

	unlock()
	unlock()
	again, err := locker.Lock(context.Background(), "fees")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}
