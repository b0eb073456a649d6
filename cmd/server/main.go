package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/roster/internal/bootstrap"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core/kinds"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	catalog := kinds.DefaultCatalog()

	backend, err := bootstrap.OpenStore(ctx, cfg, catalog, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	locker, err := bootstrap.NewLocker(ctx, cfg, backend, logger)
	if err != nil {
		logger.Error("failed to create import locker", "error", err)
		os.Exit(1)
	}

	sink, err := bootstrap.NewSink(ctx, cfg.Export)
	if err != nil {
		logger.Error("failed to create export sink", "error", err)
		os.Exit(1)
	}

	service, err := bootstrap.NewService(cfg, catalog, backend.Store, locker, logger)
	if err != nil {
		logger.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	logger.Info("kinds registered", "count", len(catalog.Kinds()))

	server := web.NewServer(service, cfg, sink)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first so no new runs start while draining.
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}

		status := service.LimiterStatus()
		if status.Active > 0 {
			logger.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				logger.Warn("imports did not complete in time", "error", err)
			} else {
				logger.Info("all imports completed")
			}
		}
	}()

	logger.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}
