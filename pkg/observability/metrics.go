package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Guard chain metrics
	GuardDecisionsTotal *prometheus.CounterVec
	GuardDuration       *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimitChecksTotal    *prometheus.CounterVec
	RateLimitDegradedTotal  prometheus.Counter
	RateLimitFailModeTotal  *prometheus.CounterVec

	// Session metrics
	SessionCacheHitsTotal   prometheus.Counter
	SessionCacheMissesTotal prometheus.Counter
	SessionsActive          prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge

	// Business metrics
	WorkspacesTotal      prometheus.Gauge
	MembershipsTotal     prometheus.Gauge
	PendingInvitesTotal  prometheus.Gauge
	AuditEventsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rampline_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rampline_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rampline_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rampline_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Guard chain metrics
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rampline_guard_decisions_total",
				Help: "Total number of guard chain decisions",
			},
			[]string{"guard", "outcome"},
		),
		GuardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rampline_guard_duration_seconds",
				Help:    "Guard evaluation duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"guard"},
		),

		// Rate limiter metrics
		RateLimitChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rampline_ratelimit_checks_total",
				Help: "Total number of rate limit checks",
			},
			[]string{"class", "outcome"},
		),
		RateLimitDegradedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rampline_ratelimit_degraded_total",
				Help: "Total number of rate limit checks served by the local fallback store",
			},
		),
		RateLimitFailModeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rampline_ratelimit_failmode_total",
				Help: "Total number of rate limit store failures resolved by fail mode",
			},
			[]string{"mode"},
		),

		// Session metrics
		SessionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rampline_session_cache_hits_total",
				Help: "Total number of session cache hits",
			},
		),
		SessionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rampline_session_cache_misses_total",
				Help: "Total number of session cache misses",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_sessions_active",
				Help: "Number of unexpired sessions",
			},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),

		// Business metrics
		WorkspacesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_workspaces_total",
				Help: "Total number of workspaces",
			},
		),
		MembershipsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_memberships_total",
				Help: "Total number of accepted workspace memberships",
			},
		),
		PendingInvitesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rampline_pending_invites_total",
				Help: "Number of pending workspace invitations",
			},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rampline_audit_events_total",
				Help: "Total number of audit events recorded",
			},
			[]string{"event_type"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.GuardDecisionsTotal,
		m.GuardDuration,
		m.RateLimitChecksTotal,
		m.RateLimitDegradedTotal,
		m.RateLimitFailModeTotal,
		m.SessionCacheHitsTotal,
		m.SessionCacheMissesTotal,
		m.SessionsActive,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisConnectionsActive,
		m.WorkspacesTotal,
		m.MembershipsTotal,
		m.PendingInvitesTotal,
		m.AuditEventsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
