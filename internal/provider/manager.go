package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/rafaeljc/mimir/internal/compiler"
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/validation"
)

// Manager hands out per-realm providers, loading them on demand and keeping
// the set of live providers bounded so a deployment serving many tenants
// cannot grow without limit. An evicted provider is simply rebuilt from the
// store on next access.
type Manager struct {
	compiler *compiler.Compiler
	registry *metadata.Registry
	defaults *policy.Config
	repo     store.ConfigRepository
	logger   *slog.Logger

	// mu guards live, the source of truth for provider identity. The otter
	// tracker applies writes asynchronously, so lookups and invalidations
	// must never depend on it.
	mu   sync.RWMutex
	live map[string]*Provider

	// tracker enforces capacity and TTL; its deletion events prune live.
	tracker otter.Cache[string, *Provider]
}

// ManagerConfig bounds the provider cache.
type ManagerConfig struct {
	// Capacity is the maximum number of realm providers kept in memory.
	Capacity int

	// TTL expires idle providers; they reload from the store on next use.
	TTL time.Duration
}

// NewManager creates a Manager. The repository may be nil for in-memory
// deployments (a single implicit configuration per realm, lost on restart).
func NewManager(cfg ManagerConfig, comp *compiler.Compiler, registry *metadata.Registry, defaults *policy.Config, repo store.ConfigRepository, logger *slog.Logger) (*Manager, error) {
	validation.AssertNotNil(comp, "compiler")
	validation.AssertNotNil(registry, "metadata registry")
	validation.AssertNotNil(defaults, "default configuration")

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	m := &Manager{
		compiler: comp,
		registry: registry,
		defaults: defaults,
		repo:     repo,
		logger:   logger,
		live:     make(map[string]*Provider),
	}

	tracker, err := otter.MustBuilder[string, *Provider](cfg.Capacity).
		WithTTL(cfg.TTL).
		DeletionListener(func(realm string, _ *Provider, cause otter.DeletionCause) {
			if cause == otter.Replaced {
				return
			}
			m.mu.Lock()
			delete(m.live, realm)
			m.mu.Unlock()
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build provider cache: %w", err)
	}
	m.tracker = tracker

	return m, nil
}

// Provider returns the provider for a realm, building and loading it on
// first access.
func (m *Manager) Provider(ctx context.Context, realm string) (*Provider, error) {
	m.mu.RLock()
	p, ok := m.live[realm]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	// Double-check after acquiring the write lock.
	if p, ok := m.live[realm]; ok {
		m.mu.Unlock()
		return p, nil
	}

	p = New(realm, m.compiler, m.registry, m.defaults, m.repo, m.logger)
	if err := p.Load(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.live[realm] = p
	m.mu.Unlock()

	// Registered outside the lock: the tracker's deletion listener locks mu.
	m.tracker.Set(realm, p)
	return p, nil
}

// Invalidate discards the compiled metadata for a realm. A realm without a
// live provider needs nothing: the next access loads fresh state anyway.
func (m *Manager) Invalidate(ctx context.Context, realm, source string) error {
	m.mu.RLock()
	p, ok := m.live[realm]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return p.Invalidate(ctx, source)
}

// Close releases the provider cache.
func (m *Manager) Close() {
	m.tracker.Close()

	m.mu.Lock()
	m.live = make(map[string]*Provider)
	m.mu.Unlock()
}
