package ratelimit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rampline/rampline/pkg/observability"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestFallbackStore_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewLocalStore()
	fallback := NewLocalStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	degraded := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_degraded_total"})

	store := NewFallbackStore(primary, fallback, logger, degraded)
	ctx := context.Background()

	count, _, err := store.Incr(ctx, "k", time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("Incr = (%d, %v)", count, err)
	}
	if fallback.Len() != 0 {
		t.Error("fallback touched while primary healthy")
	}
	if counterValue(t, degraded) != 0 {
		t.Error("degradation counted while primary healthy")
	}
}

func TestFallbackStore_DegradesOnPrimaryError(t *testing.T) {
	fallback := NewLocalStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	degraded := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_degraded_total"})

	store := NewFallbackStore(&failingStore{err: errors.New("down")}, fallback, logger, degraded)
	ctx := context.Background()

	count, ttl, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr should degrade, got error: %v", err)
	}
	if count != 1 || ttl <= 0 {
		t.Errorf("degraded Incr = (%d, %v)", count, ttl)
	}
	if fallback.Len() != 1 {
		t.Error("fallback not used")
	}
	if counterValue(t, degraded) != 1 {
		t.Errorf("degradation counter = %v, want 1", counterValue(t, degraded))
	}

	// Counting continues on the fallback across calls
	count, _, _ = store.Incr(ctx, "k", time.Minute)
	if count != 2 {
		t.Errorf("second degraded count = %d, want 2", count)
	}
}

func TestFallbackStore_ResetClearsBothStores(t *testing.T) {
	primary := NewLocalStore()
	fallback := NewLocalStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	store := NewFallbackStore(primary, fallback, logger, nil)
	ctx := context.Background()

	primary.Incr(ctx, "k", time.Minute)
	fallback.Incr(ctx, "k", time.Minute)

	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if primary.Len() != 0 || fallback.Len() != 0 {
		t.Error("Reset left a phantom window behind")
	}
}
