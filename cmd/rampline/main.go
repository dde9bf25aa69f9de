package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rampline/rampline/pkg/api"
	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/config"
	"github.com/rampline/rampline/pkg/integrations"
	"github.com/rampline/rampline/pkg/maintenance"
	"github.com/rampline/rampline/pkg/middleware"
	"github.com/rampline/rampline/pkg/observability"
	"github.com/rampline/rampline/pkg/ratelimit"
	"github.com/rampline/rampline/pkg/workspaces"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting rampline")

	ctx := context.Background()

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OpenTelemetry")
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to ping database")
	}

	// Redis backs the distributed rate limiter; the process still serves
	// from the local fallback store when it is down
	redisClient := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable at startup, rate limiting degrades to local counters")
	}

	// Swept by the maintenance scheduler rather than its own goroutine
	localCounters := ratelimit.NewLocalStore()
	limiterStore := ratelimit.NewFallbackStore(
		ratelimit.NewRedisStore(redisClient, "rampline"),
		localCounters,
		logger,
		metrics.RateLimitDegradedTotal,
	)
	limiter := ratelimit.NewLimiter(limiterStore)

	// Sessions
	sessionStore := auth.NewCachedStore(auth.NewPostgresStore(db), cfg.Auth.SessionCacheSize, cfg.Auth.SessionCacheTTL)
	sessions := auth.NewService(sessionStore, cfg.Auth.SessionTTL)

	workspaceService := workspaces.NewPostgresService(db)

	// Audit trail
	var auditLogger audit.Logger = audit.NopLogger{}
	if cfg.Audit.Enabled && cfg.Audit.FilePath != "" {
		fileConfig := audit.DefaultFileLoggerConfig()
		fileConfig.BasePath = cfg.Audit.FilePath
		fileLogger, err := audit.NewFileLogger(fileConfig)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open audit log")
		}
		multi := audit.NewMultiLogger(fileLogger)
		multi.SetAsync(true)
		auditLogger = multi
	}

	pipeline := &middleware.Pipeline{
		Sessions:    sessions,
		Memberships: workspaceService,
		Limiter:     limiter,
		Logger:      logger,
		Metrics:     metrics,
		Audit:       auditLogger,
	}

	handlerLog := logrus.New()
	handlerLog.SetFormatter(&logrus.JSONFormatter{})

	server := api.NewServer(api.Dependencies{
		Pipeline:     pipeline,
		Verifier:     newSQLVerifier(db),
		Workspaces:   workspaceService,
		Integrations: integrations.NewPostgresStore(db),
		Approvals:    api.NewPostgresApprovalStore(db),
		RateLimits:   cfg.RateLimit,
		Logger:       handlerLog,
	})

	handler := middleware.RequestID(
		middleware.Logging(logger)(
			observability.HTTPMetricsMiddleware(metrics)(
				middleware.AuditContext(auditLogger)(server))))
	// The span wraps everything so request logs can carry its trace id
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "rampline.api")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on their own port so probes and scrapes never
	// compete with API traffic
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	scheduler := maintenance.NewScheduler(cfg.Maintenance, sessionStore, workspaceService, logger).
		WithSweeper(localCounters, cfg.RateLimit.LocalSweepInterval)
	if err := scheduler.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start maintenance scheduler")
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	err = observability.GracefulShutdown(logger, httpServer,
		observability.ShutdownStep{Name: "health server", Close: func(ctx context.Context) error {
			return healthServer.Shutdown(ctx)
		}},
		observability.ShutdownStep{Name: "maintenance scheduler", Close: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		}},
		observability.ShutdownStep{Name: "audit logger", Close: func(ctx context.Context) error {
			return auditLogger.Close()
		}},
		observability.ShutdownStep{Name: "otel providers", Close: func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		}},
		observability.ShutdownStep{Name: "redis", Close: func(ctx context.Context) error {
			return redisClient.Close()
		}},
		observability.ShutdownStep{Name: "database", Close: func(ctx context.Context) error {
			return db.Close()
		}},
	)
	if err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}
