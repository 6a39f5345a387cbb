// Package watcher implements the background worker that reconciles cached
// profile configurations against the store. Pub/sub invalidation covers the
// common path; the watcher catches events a replica missed (restart,
// dropped subscription, direct database writes).
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/store"
)

// Invalidator receives realms whose stored configuration changed.
// *provider.Manager satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, realm, source string) error
}

// Config holds the configuration for the watcher service.
type Config struct {
	// Interval is the duration between reconciliation cycles (polling).
	Interval time.Duration
}

// Service orchestrates the reconciliation process.
type Service struct {
	logger *slog.Logger
	config Config
	repo   store.ConfigRepository
	target Invalidator

	// seen maps realm to the last stored version this replica observed.
	seen map[string]int64
}

// New creates a new watcher service.
func New(logger *slog.Logger, cfg Config, repo store.ConfigRepository, target Invalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if repo == nil {
		panic("watcher: config repository cannot be nil")
	}
	if target == nil {
		panic("watcher: invalidator cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second // Safe default
	}

	return &Service{
		logger: logger,
		config: cfg,
		repo:   repo,
		target: target,
		seen:   make(map[string]int64),
	}
}

// Run starts the watcher loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting watcher service", slog.String("interval", s.config.Interval.String()))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Prime the baseline immediately on startup so the first tick only
	// reports changes made after this replica came up.
	if err := s.reconcile(ctx, true); err != nil {
		s.logger.Error("initial reconciliation failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher service stopping...")
			return nil
		case <-ticker.C:
			if err := s.reconcile(ctx, false); err != nil {
				// We log the error but don't stop the worker.
				// Retry on next tick.
				s.logger.Error("reconciliation cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// reconcile performs a single reconciliation cycle. When prime is true it
// only records the current versions without invalidating anything.
func (s *Service) reconcile(ctx context.Context, prime bool) error {
	start := time.Now()

	// 1. Read versions from the Source of Truth (Postgres)
	versions, err := s.repo.ListVersions(ctx)
	if err != nil {
		observability.WatcherCyclesTotal.WithLabelValues("error").Inc()
		return err
	}

	if prime {
		s.seen = versions
		observability.WatcherCyclesTotal.WithLabelValues("ok").Inc()
		return nil
	}

	// 2. Invalidate realms whose version moved or whose row appeared.
	// A failed invalidation leaves the recorded version untouched so the
	// change is retried on the next cycle.
	changed := 0
	for realm, version := range versions {
		if s.seen[realm] == version {
			continue
		}
		if err := s.invalidate(ctx, realm); err != nil {
			continue
		}
		changed++
		s.seen[realm] = version
	}

	// 3. Deleted rows mean the realm reverted to the built-in defaults.
	for realm := range s.seen {
		if _, ok := versions[realm]; ok {
			continue
		}
		if err := s.invalidate(ctx, realm); err != nil {
			continue
		}
		changed++
		delete(s.seen, realm)
	}

	if changed > 0 {
		s.logger.Info("reconciliation cycle completed",
			slog.Int("invalidated", changed),
			slog.String("duration", time.Since(start).String()),
		)
	}

	observability.WatcherCyclesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Service) invalidate(ctx context.Context, realm string) error {
	if err := s.target.Invalidate(ctx, realm, "watcher"); err != nil {
		s.logger.Warn("failed to invalidate realm",
			slog.String("realm", realm),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
