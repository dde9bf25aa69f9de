package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "ratelimit"), mr
}

func TestRedisStore_Incr(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.Incr(ctx, "signin:1.2.3.4", 15*time.Minute)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
		if ttl <= 0 || ttl > 15*time.Minute {
			t.Errorf("ttl = %v, want within (0, 15m]", ttl)
		}
	}
}

func TestRedisStore_WindowExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	store.Incr(ctx, "k", time.Minute)
	store.Incr(ctx, "k", time.Minute)

	mr.FastForward(2 * time.Minute)

	count, _, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after TTL expiry = %d, want 1", count)
	}
}

func TestRedisStore_Reset(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Incr(ctx, "email-otp:a@b.c", 15*time.Minute)
	store.Incr(ctx, "email-otp:a@b.c", 15*time.Minute)
	if err := store.Reset(ctx, "email-otp:a@b.c"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	count, _, _ := store.Incr(ctx, "email-otp:a@b.c", 15*time.Minute)
	if count != 1 {
		t.Errorf("count after reset = %d, want 1", count)
	}
}

func TestRedisStore_RearmsLostTTL(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	// Simulate a counter whose TTL was lost (crash between INCR and EXPIRE)
	mr.Set("ratelimit:k", "3")

	_, ttl, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if ttl != time.Minute {
		t.Errorf("ttl = %v, want re-armed 1m", ttl)
	}
	if mr.TTL("ratelimit:k") <= 0 {
		t.Error("key left without TTL")
	}
}

func TestRedisStore_KeysIsolated(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Incr(ctx, "signin:1.2.3.4", time.Minute)
	store.Incr(ctx, "signin:1.2.3.4", time.Minute)
	count, _, err := store.Incr(ctx, "signin:5.6.7.8", time.Minute)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if count != 1 {
		t.Errorf("independent key count = %d, want 1", count)
	}
}
