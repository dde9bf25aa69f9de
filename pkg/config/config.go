package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rampline/rampline/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Audit configuration
	Audit AuditConfig

	// Maintenance configuration
	Maintenance MaintenanceConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings for the distributed rate limiter
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// AuthConfig holds session settings
type AuthConfig struct {
	SessionTTL       time.Duration
	SessionCacheSize int
	SessionCacheTTL  time.Duration
}

// RateLimitConfig holds rate limiter windows and ceilings
type RateLimitConfig struct {
	SigninMax        int
	SigninWindow     time.Duration
	EmailOTPMax      int
	EmailOTPWindow   time.Duration
	APIDefaultMax    int
	APIDefaultWindow time.Duration

	// LocalSweepInterval is how often the local fallback store evicts
	// expired windows.
	LocalSweepInterval time.Duration
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool
	// FilePath is the directory where the file-backed audit logger writes.
	// Empty leaves only the no-op logger installed.
	FilePath string
}

// MaintenanceConfig holds background job settings
type MaintenanceConfig struct {
	Enabled bool
	// SessionCleanupSchedule and InviteCleanupSchedule are cron expressions.
	SessionCleanupSchedule string
	InviteCleanupSchedule  string
	// InviteMaxAge is how long a pending invitation may sit unaccepted.
	InviteMaxAge time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		RateLimit:     loadRateLimitConfig(),
		Audit:         loadAuditConfig(),
		Maintenance:   loadMaintenanceConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("RAMPLINE_HOST", "0.0.0.0"),
		Port:            getEnv("RAMPLINE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("RAMPLINE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("RAMPLINE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("RAMPLINE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("RAMPLINE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("RAMPLINE_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("RAMPLINE_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("RAMPLINE_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("RAMPLINE_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("RAMPLINE_POSTGRES_CONN_LIFETIME", 5*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       getEnv("RAMPLINE_REDIS_ADDR", "localhost:6379"),
		Password:   getEnv("RAMPLINE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("RAMPLINE_REDIS_DB", 0),
		MaxRetries: getEnvInt("RAMPLINE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("RAMPLINE_REDIS_POOL_SIZE", 10),
	}
}

// loadAuthConfig loads session configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SessionTTL:       getEnvDuration("RAMPLINE_SESSION_TTL", 7*24*time.Hour),
		SessionCacheSize: getEnvInt("RAMPLINE_SESSION_CACHE_SIZE", 10000),
		SessionCacheTTL:  getEnvDuration("RAMPLINE_SESSION_CACHE_TTL", 30*time.Second),
	}
}

// loadRateLimitConfig loads rate limiter configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		SigninMax:          getEnvInt("RAMPLINE_RATELIMIT_SIGNIN_MAX", 5),
		SigninWindow:       getEnvDuration("RAMPLINE_RATELIMIT_SIGNIN_WINDOW", 15*time.Minute),
		EmailOTPMax:        getEnvInt("RAMPLINE_RATELIMIT_OTP_MAX", 3),
		EmailOTPWindow:     getEnvDuration("RAMPLINE_RATELIMIT_OTP_WINDOW", 10*time.Minute),
		APIDefaultMax:      getEnvInt("RAMPLINE_RATELIMIT_API_MAX", 300),
		APIDefaultWindow:   getEnvDuration("RAMPLINE_RATELIMIT_API_WINDOW", time.Minute),
		LocalSweepInterval: getEnvDuration("RAMPLINE_RATELIMIT_SWEEP_INTERVAL", time.Minute),
	}
}

// loadAuditConfig loads audit configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:  getEnvBool("RAMPLINE_AUDIT_ENABLED", true),
		FilePath: getEnv("RAMPLINE_AUDIT_FILE", ""),
	}
}

// loadMaintenanceConfig loads background job configuration from environment
func loadMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		Enabled:                getEnvBool("RAMPLINE_MAINTENANCE_ENABLED", true),
		SessionCleanupSchedule: getEnv("RAMPLINE_SESSION_CLEANUP_SCHEDULE", "@every 1h"),
		InviteCleanupSchedule:  getEnv("RAMPLINE_INVITE_CLEANUP_SCHEDULE", "@daily"),
		InviteMaxAge:           getEnvDuration("RAMPLINE_INVITE_MAX_AGE", 14*24*time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("RAMPLINE_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("RAMPLINE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("RAMPLINE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("RAMPLINE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("RAMPLINE_OTEL_SERVICE_NAME", "rampline"),
		OTelServiceVersion: getEnv("RAMPLINE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("RAMPLINE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.RateLimit.SigninMax <= 0 || c.RateLimit.SigninWindow <= 0 {
		return fmt.Errorf("signin rate limit must have a positive max and window")
	}
	if c.RateLimit.EmailOTPMax <= 0 || c.RateLimit.EmailOTPWindow <= 0 {
		return fmt.Errorf("email OTP rate limit must have a positive max and window")
	}
	if c.RateLimit.APIDefaultMax <= 0 || c.RateLimit.APIDefaultWindow <= 0 {
		return fmt.Errorf("API rate limit must have a positive max and window")
	}

	if c.Maintenance.Enabled && c.Maintenance.InviteMaxAge <= 0 {
		return fmt.Errorf("invite max age must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
