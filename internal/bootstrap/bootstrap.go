// Package bootstrap builds the engine's collaborators from configuration.
// The HTTP server and rosterctl share it so both run against the same store,
// locks and export destination.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/lock/redislock"
	"github.com/JonMunkholm/roster/internal/store/postgres"
	"github.com/JonMunkholm/roster/internal/store/sqlite"
)

// Backend is an opened store plus the handles it was built on. Pool is set
// for the postgres driver only.
type Backend struct {
	Store core.Store
	Pool  *pgxpool.Pool

	closers []func()
}

// Close releases every connection the backend opened.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenStore connects to the configured database and creates missing tables.
func OpenStore(ctx context.Context, cfg *config.Config, catalog *core.Catalog, logger *slog.Logger) (*Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Database, catalog, logger)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg.Database, catalog, logger)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, catalog *core.Catalog, logger *slog.Logger) (*Backend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to database", "driver", config.DriverPostgres, "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := postgres.New(pool, catalog, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{Store: store, Pool: pool, closers: []func(){pool.Close}}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, catalog *core.Catalog, logger *slog.Logger) (*Backend, error) {
	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database", "driver", config.DriverSQLite, "path", cfg.SQLitePath)

	store := sqlite.New(db, catalog, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Backend{Store: store, closers: []func(){func() { _ = db.Close() }}}, nil
}

// NewLocker returns the per-kind import lock for the configured backend. The
// postgres backend needs the pool of a postgres Backend.
func NewLocker(ctx context.Context, cfg *config.Config, backend *Backend, logger *slog.Logger) (core.Locker, error) {
	switch cfg.Lock.Backend {
	case "", config.LockLocal:
		return core.NewLocalLocker(), nil

	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		if backend != nil {
			backend.closers = append(backend.closers, func() { _ = client.Close() })
		}
		logger.Info("using redis import locks", "addr", cfg.Lock.RedisAddr)
		return redislock.New(client, redislock.Options{TTL: cfg.Lock.TTL, Logger: logger}), nil

	case config.LockPostgres:
		if backend == nil || backend.Pool == nil {
			return nil, fmt.Errorf("postgres import locks need the postgres driver")
		}
		return postgres.NewAdvisoryLocker(backend.Pool, "roster"), nil
	}
	return nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
}

// NewSink returns where saved exports go: S3 when a bucket is configured,
// otherwise the export directory.
func NewSink(ctx context.Context, cfg config.ExportConfig) (blob.Sink, error) {
	if cfg.S3Bucket != "" {
		sink, err := blob.NewS3Sink(ctx, blob.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	return blob.DirSink{Dir: cfg.Dir}, nil
}

// NewService wires a Service on store with the import settings of cfg.
// Metrics go to the global OpenTelemetry meter provider.
func NewService(cfg *config.Config, catalog *core.Catalog, store core.Store, locker core.Locker, logger *slog.Logger) (*core.Service, error) {
	metrics, err := core.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	if cfg.Import.MaxFileSize > 0 {
		core.MaxFileSize = cfg.Import.MaxFileSize
	}
	return core.NewService(core.ServiceConfig{
		Store:         store,
		Catalog:       catalog,
		Locker:        locker,
		Limiter:       core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Metrics:       metrics,
		Logger:        logger,
		BatchSize:     cfg.Import.BatchSize,
		ImportTimeout: cfg.Import.Timeout,
	}), nil
}
