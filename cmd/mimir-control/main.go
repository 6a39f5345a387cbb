// Package main initializes and runs the Mimir Control Plane service.
//
// It acts as the composition root for the administrative REST API, wiring up
// PostgreSQL, Redis, the policy compiler, and the server lifecycle.
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
	"github.com/rafaeljc/mimir/internal/controlapi"
	"github.com/rafaeljc/mimir/internal/database"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/provider"
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
	ctx := context.Background()

	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(&cfg.App)
	slog.SetDefault(appLogger)
	appLogger.Info("starting mimir control plane",
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

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go database.RunPoolMonitor(monitorCtx, pool, 15*time.Second)

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

	invalidator := cache.NewInvalidator(redisClient, appLogger)

	// Authentication is mandatory outside development.
	skipAuth := cfg.App.Environment == config.EnvironmentDevelopment && cfg.Server.Control.APIKeyHash == ""
	if skipAuth {
		appLogger.Warn("control plane authentication disabled (development mode, no API key hash configured)")
	}
	api := controlapi.NewAPIWithConfig(manager, repo, invalidator, cfg.Server.Control.APIKeyHash, skipAuth)

	// -------------------------------------------------------------------------
	// 4. Observability Server (metrics + probes)
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(appLogger, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 5. HTTP Server & Graceful Shutdown
	// -------------------------------------------------------------------------
	ctrlCfg := cfg.Server.Control
	server := &http.Server{
		Addr:              ctrlCfg.Host + ":" + ctrlCfg.Port,
		Handler:           api.Router,
		ReadTimeout:       ctrlCfg.ReadTimeout,
		WriteTimeout:      ctrlCfg.WriteTimeout,
		ReadHeaderTimeout: ctrlCfg.ReadHeaderTimeout,
		IdleTimeout:       ctrlCfg.IdleTimeout,
		MaxHeaderBytes:    ctrlCfg.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		appLogger.Info("control plane listening", slog.String("addr", server.Addr))

		var serveErr error
		if ctrlCfg.TLSEnabled {
			serveErr = server.ListenAndServeTLS(ctrlCfg.TLSCert, ctrlCfg.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("control plane server failed: %w", serveErr)
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

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control plane shutdown failed: %w", err)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("observability server shutdown failed", slog.String("error", err.Error()))
	}

	appLogger.Info("service exited successfully")
	return nil
}
