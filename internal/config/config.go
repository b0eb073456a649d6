// Package config provides centralized configuration management for the roster
// server and CLI. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Export   ExportConfig
	Lock     LockConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres or sqlite (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file of the sqlite driver (default: roster.db)
	SQLitePath string `env:"SQLITE_PATH" default:"roster.db"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds import processing settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel imports (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of records per store call (default: 25)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"25"`

	// Timeout is the maximum duration of one import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// ExportConfig holds settings for exports saved on the server side.
type ExportConfig struct {
	// Dir is where saved exports are written when no bucket is set (default: exports)
	Dir string `env:"EXPORT_DIR" default:"exports"`

	// S3Bucket sends saved exports to S3 instead of Dir
	S3Bucket string `env:"EXPORT_S3_BUCKET"`

	// S3Region is the bucket region (default: us-east-1)
	S3Region string `env:"EXPORT_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// S3Endpoint overrides the S3 endpoint (MinIO, LocalStack)
	S3Endpoint string `env:"EXPORT_S3_ENDPOINT"`

	// S3Prefix is prepended to object keys
	S3Prefix string `env:"EXPORT_S3_PREFIX"`
}

// Lock backends.
const (
	LockLocal    = "local"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

// LockConfig selects how concurrent imports of one kind are serialized.
type LockConfig struct {
	// Backend is local, redis or postgres (default: local)
	Backend string `env:"LOCK_BACKEND" default:"local"`

	// RedisAddr is the Redis host:port (default: localhost:6379)
	RedisAddr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// RedisPassword authenticates to Redis
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB selects the Redis database (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// TTL bounds how long a crashed holder blocks a kind (default: 15m)
	TTL time.Duration `env:"LOCK_TTL" default:"15m"`
}

// RateLimitConfig holds rate limiting settings per client IP.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
