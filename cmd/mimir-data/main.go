// Package main initializes and runs the Mimir Data Plane service.
//
// It acts as the composition root for the high-performance read path,
// wiring up the compiled-metadata cache, the pub/sub invalidation listener,
// the store watcher, and the server lifecycle.
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
	"time"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/compiler"
	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/database"
	"github.com/rafaeljc/mimir/internal/dataapi"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/provider"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/watcher"
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
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(&cfg.App)
	slog.SetDefault(appLogger)
	appLogger.Info("starting mimir data plane",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	go database.RunPoolMonitor(ctx, pool, 15*time.Second)

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	reserved := policy.DefaultReserved()
	defaults := policy.DefaultConfig()
	comp := compiler.New(reserved, defaults, policy.DefaultValidatorRegistry())
	registry := metadata.DefaultRegistry(reserved)
	repo := store.NewPostgresStore(pool)

	manager, err := provider.NewManager(provider.ManagerConfig{
		Capacity: cfg.Provider.CacheCapacity,
		TTL:      cfg.Provider.CacheTTL,
	}, comp, registry, defaults, repo, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create provider manager: %w", err)
	}
	defer manager.Close()

	api := dataapi.NewAPI(manager, registry)

	// -------------------------------------------------------------------------
	// 4. Background Workers
	// -------------------------------------------------------------------------

	// Pub/sub listener: drops the cached generation for realms the control
	// plane announces.
	invalidator := cache.NewInvalidator(redisClient, appLogger)
	go func() {
		if err := invalidator.Listen(ctx, func(ctx context.Context, realm string) {
			if err := manager.Invalidate(ctx, realm, "pubsub"); err != nil {
				appLogger.Warn("failed to invalidate realm",
					slog.String("realm", realm),
					slog.String("error", err.Error()),
				)
			}
		}); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("invalidation listener stopped", slog.String("error", err.Error()))
		}
	}()

	// Watcher: reconciles against the store to catch missed events.
	if cfg.Watcher.Enabled {
		watchSvc := watcher.New(appLogger, watcher.Config{Interval: cfg.Watcher.Interval}, repo, manager)
		go func() {
			if err := watchSvc.Run(ctx); err != nil {
				appLogger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// -------------------------------------------------------------------------
	// 5. Observability Server (metrics + probes)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(appLogger, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 6. HTTP Server & Graceful Shutdown
	// -------------------------------------------------------------------------
	dataCfg := cfg.Server.Data
	server := &http.Server{
		Addr:              dataCfg.Host + ":" + dataCfg.Port,
		Handler:           api.Router,
		ReadTimeout:       dataCfg.ReadTimeout,
		WriteTimeout:      dataCfg.WriteTimeout,
		ReadHeaderTimeout: dataCfg.ReadHeaderTimeout,
		IdleTimeout:       dataCfg.IdleTimeout,
		MaxHeaderBytes:    dataCfg.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		appLogger.Info("data plane listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("data plane server failed: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		appLogger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	// Stop background workers before draining connections.
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("data plane shutdown failed: %w", err)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	appLogger.Info("service exited successfully")
	return nil
}
