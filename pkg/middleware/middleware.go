package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/contextkeys"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/observability"
	"github.com/rampline/rampline/pkg/ratelimit"
	"github.com/rampline/rampline/pkg/workspaces"
)

// Pipeline holds the collaborators shared by every guard. Construct one at
// startup and declare per-route behavior with RouteConfig.
type Pipeline struct {
	Sessions    *auth.Service
	Memberships workspaces.MembershipGetter
	Limiter     *ratelimit.Limiter
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Audit       audit.Logger
}

// RateLimitRule flags a route for rate limiting. KeyFunc derives the
// identity half of the limiter key; nil means client IP.
type RateLimitRule struct {
	Class   string
	Policy  ratelimit.Policy
	KeyFunc func(r *http.Request) string
}

// RouteConfig declares what a route requires. The zero value is a fully
// guarded workspace route whose empty role set denies every caller; a
// route admits someone only by declaring Roles or AnyMember.
type RouteConfig struct {
	// Public skips the session guard and everything after it.
	Public bool

	// SkipWorkspace runs the session guard only. For routes that act on the
	// session itself (sign-out, invitation accept) rather than a workspace.
	SkipWorkspace bool

	// Roles is the allowed set for the route. Role checks are set
	// membership, never rank comparison, and an empty set denies.
	Roles authz.RoleSet

	// AnyMember admits every accepted member regardless of role. The only
	// way to bypass the role guard on a workspace route.
	AnyMember bool

	// RateLimit, when non-nil, runs the limiter before anything else.
	RateLimit *RateLimitRule
}

// Protect wraps next with the guard chain the config asks for. Order is
// fixed: rate limit, session, workspace, roles. Each stage either enriches
// the request context or terminates with a typed failure translated by
// httputil.WriteGuardError.
func (p *Pipeline) Protect(cfg RouteConfig, next http.Handler) http.Handler {
	h := next

	if !cfg.Public {
		if !cfg.SkipWorkspace {
			// The role guard always runs unless the route opted in to
			// AnyMember, so an undeclared set fails closed.
			if !cfg.AnyMember {
				h = p.requireRoles(cfg.Roles, h)
			}
			h = p.bindWorkspace(h)
		}
		h = p.resolveSession(h)
	}

	if cfg.RateLimit != nil {
		h = p.rateLimit(*cfg.RateLimit, h)
	}

	return h
}

// ProtectFunc is Protect for handler funcs
func (p *Pipeline) ProtectFunc(cfg RouteConfig, next http.HandlerFunc) http.Handler {
	return p.Protect(cfg, next)
}

// deny terminates the request with a typed failure. All guard rejections
// funnel through here so denials are logged and counted uniformly.
func (p *Pipeline) deny(w http.ResponseWriter, r *http.Request, guard string, err error) {
	if p.Metrics != nil {
		p.Metrics.GuardDecisionsTotal.WithLabelValues(guard, "denied").Inc()
	}
	if p.Logger != nil {
		p.Logger.WithError(err).
			WithField("guard", guard).
			WithField("path", r.URL.Path).
			WithField("remote", httputil.ClientIP(r)).
			Debug("request denied")
	}
	httputil.WriteGuardError(w, err)
}

func (p *Pipeline) allow(guard string) {
	if p.Metrics != nil {
		p.Metrics.GuardDecisionsTotal.WithLabelValues(guard, "allowed").Inc()
	}
}

func (p *Pipeline) observe(guard string, start time.Time) {
	if p.Metrics != nil {
		p.Metrics.GuardDuration.WithLabelValues(guard).Observe(time.Since(start).Seconds())
	}
}

// RequestID assigns a UUID to each request, honoring an inbound
// X-Request-ID, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = observability.WithRequestID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging injects the base logger into the request context and logs one
// line per request at Debug.
func Logging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := observability.WithLogger(r.Context(), logger)
			start := time.Now()

			next.ServeHTTP(w, r.WithContext(ctx))

			observability.LoggerWithTrace(r.Context(), logger).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  contextkeys.GetRequestID(ctx),
			}).Debug("request handled")
		})
	}
}

// AuditContext injects the audit logger into the request context so
// handlers and guards can record events without plumbing
func AuditContext(logger audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
