package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rampline/rampline/pkg/observability"
	"github.com/rampline/rampline/pkg/ratelimit"
)

type brokenStore struct{}

func (brokenStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func (brokenStore) Reset(ctx context.Context, key string) error {
	return errors.New("store down")
}

func limitedPipeline(store ratelimit.Store) *Pipeline {
	return &Pipeline{
		Limiter: ratelimit.NewLimiter(store),
		Logger:  observability.NewLogger(observability.ErrorLevel, io.Discard),
	}
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", nil)
	req.RemoteAddr = ip + ":4444"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitGuardCeiling(t *testing.T) {
	p := limitedPipeline(ratelimit.NewLocalStore())
	h := p.Protect(RouteConfig{
		Public: true,
		RateLimit: &RateLimitRule{
			Class:  "signin",
			Policy: ratelimit.Policy{Max: 3, Window: 15 * time.Minute, FailMode: ratelimit.FailClosed},
		},
	}, okHandler())

	for i := 1; i <= 3; i++ {
		rec := hit(h, "198.51.100.7")
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "3" {
			t.Errorf("attempt %d: X-RateLimit-Limit = %q", i, rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := hit(h, "198.51.100.7")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th attempt: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 missing Retry-After")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("429 missing X-RateLimit-Reset")
	}

	// A different identity is unaffected
	rec = hit(h, "198.51.100.8")
	if rec.Code != http.StatusOK {
		t.Errorf("other ip status = %d, want 200", rec.Code)
	}
}

func TestRateLimitGuardFailOpen(t *testing.T) {
	p := limitedPipeline(brokenStore{})
	h := p.Protect(RouteConfig{
		Public: true,
		RateLimit: &RateLimitRule{
			Class:  "api",
			Policy: ratelimit.Policy{Max: 10, Window: time.Minute, FailMode: ratelimit.FailOpen},
		},
	}, okHandler())

	rec := hit(h, "198.51.100.9")
	if rec.Code != http.StatusOK {
		t.Errorf("fail-open status = %d, want 200", rec.Code)
	}
}

func TestRateLimitGuardFailClosed(t *testing.T) {
	p := limitedPipeline(brokenStore{})
	h := p.Protect(RouteConfig{
		Public: true,
		RateLimit: &RateLimitRule{
			Class:  "signin",
			Policy: ratelimit.Policy{Max: 5, Window: 15 * time.Minute, FailMode: ratelimit.FailClosed},
		},
	}, okHandler())

	rec := hit(h, "198.51.100.10")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("fail-closed status = %d, want 500", rec.Code)
	}
}

func TestRateLimitGuardCustomKeyFunc(t *testing.T) {
	p := limitedPipeline(ratelimit.NewLocalStore())
	h := p.Protect(RouteConfig{
		Public: true,
		RateLimit: &RateLimitRule{
			Class:  "email-otp",
			Policy: ratelimit.Policy{Max: 1, Window: 10 * time.Minute, FailMode: ratelimit.FailClosed},
			KeyFunc: func(r *http.Request) string {
				return r.URL.Query().Get("email")
			},
		},
	}, okHandler())

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp?email="+email, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("a@example.com"); code != http.StatusOK {
		t.Fatalf("first send = %d", code)
	}
	if code := send("a@example.com"); code != http.StatusTooManyRequests {
		t.Errorf("second send = %d, want 429", code)
	}
	// Keyed by email, not IP: a different address has its own window
	if code := send("b@example.com"); code != http.StatusOK {
		t.Errorf("other email = %d, want 200", code)
	}
}

func TestRateLimitRunsBeforeSessionGuard(t *testing.T) {
	f := newFixture(t)
	f.pipeline.Limiter = ratelimit.NewLimiter(ratelimit.NewLocalStore())

	h := f.pipeline.Protect(RouteConfig{
		SkipWorkspace: true,
		RateLimit: &RateLimitRule{
			Class:  "api",
			Policy: ratelimit.Policy{Max: 1, Window: time.Minute, FailMode: ratelimit.FailOpen},
		},
	}, okHandler())

	// Unauthenticated requests burn the window: the limiter sits in front
	// of session resolution.
	rec := hit(h, "198.51.100.11")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("first status = %d, want 401", rec.Code)
	}
	rec = hit(h, "198.51.100.11")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429 before 401", rec.Code)
	}
}
