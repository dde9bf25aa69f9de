package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalStore_Incr(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("ttl = %v, want within (0, 1m]", ttl)
		}
	}
}

func TestLocalStore_WindowExpiry(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	store.Incr(ctx, "k", 10*time.Millisecond)
	store.Incr(ctx, "k", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	count, _, err := store.Incr(ctx, "k", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after window expiry = %d, want 1", count)
	}
}

func TestLocalStore_Reset(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	store.Incr(ctx, "k", time.Minute)
	store.Incr(ctx, "k", time.Minute)
	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	count, _, _ := store.Incr(ctx, "k", time.Minute)
	if count != 1 {
		t.Errorf("count after reset = %d, want 1", count)
	}
}

func TestLocalStore_ConcurrentIncr(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	var max int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				count, _, err := store.Incr(ctx, "hot", time.Minute)
				if err != nil {
					t.Errorf("Incr failed: %v", err)
					return
				}
				for {
					cur := atomic.LoadInt64(&max)
					if count <= cur || atomic.CompareAndSwapInt64(&max, cur, count) {
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	if max != workers*perWorker {
		t.Errorf("max observed count = %d, want %d (no lost increments)", max, workers*perWorker)
	}
}

func TestLocalStore_Sweep(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()

	store.Incr(ctx, "stale", 5*time.Millisecond)
	store.Incr(ctx, "fresh", time.Minute)
	time.Sleep(10 * time.Millisecond)

	store.Sweep()
	if store.Len() != 1 {
		t.Errorf("entries after sweep = %d, want 1", store.Len())
	}
}
