package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// FailMode decides what a store-connectivity failure means for the guarded
// endpoint. The default is fail-open for availability, but the tradeoff is
// explicit and overridable per endpoint; sign-in style endpoints prefer
// unavailability over an unmetered abuse window.
type FailMode int

const (
	// FailOpen allows the request when the store is unreachable
	FailOpen FailMode = iota
	// FailClosed rejects the request when the store is unreachable
	FailClosed
)

// Policy is one endpoint's abuse budget
type Policy struct {
	// Max attempts allowed within the window
	Max int
	// Window is the fixed counting window length
	Window time.Duration
	// FailMode for store outages
	FailMode FailMode
}

// Result is the outcome of a single limiter check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Store is a rate-limit counter backend. Incr must be atomic: the
// check-then-increment race between concurrent workers from the same
// identity is exactly what this interface exists to prevent, so a separate
// read followed by a write is not a valid implementation.
type Store interface {
	// Incr adds one attempt under key, creating the record with a fresh TTL
	// when absent, and returns the new count and the time left in the window
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Reset clears the window for key (success-triggered early reset)
	Reset(ctx context.Context, key string) error
}

// Limiter applies policies against a Store
type Limiter struct {
	store Store
}

// NewLimiter creates a limiter over the given store
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Key builds the canonical limiter key, e.g. Key("signin", ip) or
// Key("email-otp", email).
func Key(class, identity string) string {
	return fmt.Sprintf("%s:%s", class, identity)
}

// Check records one attempt under key and decides whether it is allowed.
// A store error is returned to the caller untranslated; the caller applies
// the policy's FailMode, so that the fail-open tradeoff lives with the
// endpoint configuration rather than inside the limiter.
func (l *Limiter) Check(ctx context.Context, key string, policy Policy) (Result, error) {
	count, ttl, err := l.store.Incr(ctx, key, policy.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := policy.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	result := Result{
		Allowed:   count <= int64(policy.Max),
		Limit:     policy.Max,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}
	if !result.Allowed {
		result.RetryAfter = ttl
		if result.RetryAfter <= 0 {
			result.RetryAfter = time.Second
		}
	}
	return result, nil
}

// Reset clears the window for key early, e.g. after a successful sign-in or
// a correct one-time code.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
