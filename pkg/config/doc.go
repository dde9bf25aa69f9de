// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	RAMPLINE_HOST="0.0.0.0"
//	RAMPLINE_PORT="8080"
//	RAMPLINE_HEALTH_PORT="9090"
//	RAMPLINE_READ_TIMEOUT="15s"
//	RAMPLINE_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	RAMPLINE_POSTGRES_URL="postgres://localhost/rampline"
//	RAMPLINE_POSTGRES_MAX_CONNS="25"
//
// Redis settings (distributed rate limiter):
//
//	RAMPLINE_REDIS_ADDR="localhost:6379"
//	RAMPLINE_REDIS_POOL_SIZE="10"
//
// Session settings:
//
//	RAMPLINE_SESSION_TTL="168h"
//	RAMPLINE_SESSION_CACHE_SIZE="10000"
//
// Rate limit settings:
//
//	RAMPLINE_RATELIMIT_SIGNIN_MAX="5"
//	RAMPLINE_RATELIMIT_SIGNIN_WINDOW="15m"
//	RAMPLINE_RATELIMIT_OTP_MAX="3"
//	RAMPLINE_RATELIMIT_OTP_WINDOW="10m"
//
// Observability settings:
//
//	RAMPLINE_LOG_LEVEL="info"  # debug, info, warn, error
//	RAMPLINE_METRICS_ENABLED="true"
//	RAMPLINE_OTEL_ENABLED="true"
//	RAMPLINE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/ratelimit: Uses rate limit configuration
//   - pkg/observability: Uses observability configuration
package config
