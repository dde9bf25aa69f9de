package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rampline/rampline/pkg/observability"
)

// FallbackStore wraps the distributed store with an in-process fallback for
// outages. Degradation is never silent: every fallback hit is logged and
// counted, because the local store loses cross-instance correctness and an
// operator needs to know the fleet is running in that mode.
type FallbackStore struct {
	primary  Store
	fallback Store
	logger   *observability.Logger
	degraded prometheus.Counter
}

// NewFallbackStore wraps primary with fallback. The counter may be nil in
// tests; the logger may not.
func NewFallbackStore(primary, fallback Store, logger *observability.Logger, degraded prometheus.Counter) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		degraded: degraded,
	}
}

// Incr tries the primary store and degrades to the local fallback on error
func (s *FallbackStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, ttl, err := s.primary.Incr(ctx, key, window)
	if err == nil {
		return count, ttl, nil
	}

	s.noteDegradation("incr", key, err)
	return s.fallback.Incr(ctx, key, window)
}

// Reset clears the window in both stores. The fallback may hold a counter
// from a recent degradation window, so clearing only the primary could
// leave a phantom limit behind. A primary outage is noted but does not fail
// the reset as long as the fallback was cleared.
func (s *FallbackStore) Reset(ctx context.Context, key string) error {
	if err := s.primary.Reset(ctx, key); err != nil {
		s.noteDegradation("reset", key, err)
	}
	return s.fallback.Reset(ctx, key)
}

func (s *FallbackStore) noteDegradation(op, key string, err error) {
	if s.logger != nil {
		s.logger.WithError(err).
			WithField("op", op).
			WithField("key", key).
			Warn("rate limit store degraded to in-process fallback")
	}
	if s.degraded != nil {
		s.degraded.Inc()
	}
}
