// Package observability provides structured logging, Prometheus metrics, health
// checks, and OpenTelemetry tracing for the authorization service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("workspace_id", wsID).Info("member invited")
//
// Request-scoped loggers are derived from context:
//
//	log := observability.FromContext(r.Context())
//	log.WithError(err).Warn("session lookup failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.GuardDecisionsTotal.WithLabelValues("roles", "denied").Inc()
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// Redis being unreachable reports degraded rather than unhealthy; the rate
// limiter continues on its local fallback store.
//
// # OpenTelemetry
//
// InitOTel wires OTLP gRPC exporters for traces and metrics and installs the
// global providers and propagators. ShutdownOTel flushes both on exit.
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Guard chain and request logging middleware
package observability
