// Package main initializes and runs the Mimir configuration service.
//
// It acts as the composition root: it wires the Redis raw-datafile store,
// the optional PostgreSQL revision archive, the in-memory registry of
// compiled configurations, the CDN poller, the read-only config API, and
// the observability server, then supervises their lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/configapi"
	"github.com/rafaeljc/mimir/internal/database"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/poller"
	"github.com/rafaeljc/mimir/internal/registry"
	"github.com/rafaeljc/mimir/internal/store"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.New(&cfg.App)
	slog.SetDefault(logg)
	cfg.LogConfig(logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------

	// Redis holds the raw datafile payloads shared across instances.
	redisClient, err := cache.NewRedisClient(logger.WithContext(ctx, logg), &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	rawStore := cache.NewRedisStore(redisClient)

	// PostgreSQL archives revision history. Optional; without it the
	// service runs cache-only and the revisions endpoint answers 503.
	var archive store.DatafileArchive
	checkers := []observability.Checker{}
	if cfg.Database.IsConfigured() {
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		archive = store.NewPostgresArchive(pool)
		checkers = append(checkers, database.NewHealthChecker(pool))
		logg.Info("revision archive enabled")
	} else {
		logg.Info("no database configured, revision archive disabled")
	}

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------

	memCache, err := cache.NewMemoryCache(cfg.Registry.L1Capacity, cfg.Registry.L1TTL)
	if err != nil {
		return fmt.Errorf("failed to create memory cache: %w", err)
	}
	defer memCache.Close()

	reg := registry.New(logg, memCache, rawStore, archive, observability.MetricsErrorHandler{})
	checkers = append(checkers, registry.NewHealthChecker(reg))

	api := configapi.NewAPIWithConfig(reg, archive, cfg.API.APIKeyHash, cfg.API.SkipAuth)

	obsServer := observability.NewServer(logg, &cfg.Observability, checkers...)

	// -------------------------------------------------------------------------
	// 4. Background Workers
	// -------------------------------------------------------------------------

	pollerErr := make(chan error, 1)
	if cfg.Poller.Enabled && len(cfg.Poller.SDKKeys) > 0 {
		fetcher := poller.NewFetcher(cfg.Poller.URLTemplate, cfg.Poller.FetchTimeout)
		pollSvc := poller.New(logg, poller.Config{
			Interval: cfg.Poller.Interval,
			SDKKeys:  cfg.Poller.SDKKeys,
		}, fetcher, reg)

		go func() {
			pollerErr <- pollSvc.Run(logger.WithContext(ctx, logg))
		}()
	} else {
		logg.Info("poller disabled, serving on-demand loads only")
	}

	// -------------------------------------------------------------------------
	// 5. Servers & Graceful Shutdown
	// -------------------------------------------------------------------------

	obsServer.Start()

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.API.Port),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	logg.Info("starting config api server", slog.String("addr", apiServer.Addr))

	// Serve blocks until ctx is cancelled by a shutdown signal, then
	// drains in-flight requests.
	serveErr := api.Serve(ctx, apiServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	// A poller stopped by context cancellation is a normal exit.
	select {
	case err := <-pollerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logg.Error("poller exited with error", slog.String("error", err.Error()))
		}
	default:
	}

	if serveErr != nil {
		return fmt.Errorf("config api server failed: %w", serveErr)
	}

	logg.Info("service exited successfully")
	return nil
}
