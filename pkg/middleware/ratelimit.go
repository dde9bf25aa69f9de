package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/ratelimit"
)

// rateLimit runs the limiter before any other guard so abusive traffic
// never reaches session resolution. A store failure is resolved by the
// policy's FailMode: open lets the request through (logged and counted),
// closed rejects it. Sign-in style endpoints run closed; an attacker must
// not be able to lift the brute-force ceiling by degrading Redis.
func (p *Pipeline) rateLimit(rule RateLimitRule, next http.Handler) http.Handler {
	keyFunc := rule.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string { return httputil.ClientIP(r) }
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		key := ratelimit.Key(rule.Class, keyFunc(r))
		result, err := p.Limiter.Check(r.Context(), key, rule.Policy)
		if err != nil {
			p.observe("ratelimit", start)
			if rule.Policy.FailMode == ratelimit.FailClosed {
				if p.Metrics != nil {
					p.Metrics.RateLimitFailModeTotal.WithLabelValues("closed").Inc()
				}
				p.deny(w, r, "ratelimit", err)
				return
			}
			if p.Metrics != nil {
				p.Metrics.RateLimitFailModeTotal.WithLabelValues("open").Inc()
			}
			if p.Logger != nil {
				p.Logger.WithError(err).WithField("key", key).Warn("rate limit check failed, failing open")
			}
			next.ServeHTTP(w, r)
			return
		}

		if !result.Allowed {
			if p.Metrics != nil {
				p.Metrics.RateLimitChecksTotal.WithLabelValues(rule.Class, "limited").Inc()
			}
			audit.LogRateLimited(r.Context(), r, key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			p.observe("ratelimit", start)
			p.deny(w, r, "ratelimit", &authz.RateLimitedError{Key: key, RetryAfter: result.RetryAfter})
			return
		}

		if p.Metrics != nil {
			p.Metrics.RateLimitChecksTotal.WithLabelValues(rule.Class, "allowed").Inc()
		}
		httputil.SetRateLimitHeaders(w, httputil.RateLimitState{
			Limit:     result.Limit,
			Remaining: result.Remaining,
			ResetAt:   result.ResetAt,
		})

		p.observe("ratelimit", start)
		p.allow("ratelimit")
		next.ServeHTTP(w, r)
	})
}
