// Package provider exposes the policy engine to consumers: per-realm
// providers serving compiled profile metadata from a generation-scoped
// cache, and a manager bounding the set of live providers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rafaeljc/mimir/internal/compiler"
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/validation"
)

// ErrUnknownContext is returned when metadata is requested for a context the
// registry does not define.
var ErrUnknownContext = errors.New("unknown profile context")

// Provider serves compiled profile metadata for one realm. It owns the
// metadata cache: a generation container replaced wholesale whenever the
// configuration changes, never patched. All methods are safe for concurrent
// use.
type Provider struct {
	realm    string
	compiler *compiler.Compiler
	registry *metadata.Registry
	defaults *policy.Config

	// repo is optional; without it configuration lives only in memory.
	repo   store.ConfigRepository
	logger *slog.Logger

	// gen is swapped atomically on configuration change so readers observe
	// either the old fully-populated cache or the new empty one, never a mix.
	gen atomic.Pointer[generation]

	// compilations counts compile executions across all generations. Tests
	// use it to verify at-most-once compilation under concurrency.
	compilations atomic.Int64
}

// New creates a Provider for a realm. The repository may be nil for
// in-memory deployments; the logger defaults to slog.Default(). The provider
// starts on the built-in default configuration; call Load to pick up a
// stored document.
func New(realm string, comp *compiler.Compiler, registry *metadata.Registry, defaults *policy.Config, repo store.ConfigRepository, logger *slog.Logger) *Provider {
	validation.AssertNotEmpty(realm, "realm")
	validation.AssertNotNil(comp, "compiler")
	validation.AssertNotNil(registry, "metadata registry")
	validation.AssertNotNil(defaults, "default configuration")

	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		realm:    realm,
		compiler: comp,
		registry: registry,
		defaults: defaults,
		repo:     repo,
		logger:   logger.With(slog.String("realm", realm)),
	}
	p.gen.Store(newGeneration(defaults.Clone(), defaultFingerprint))

	return p
}

// Load reads the stored configuration and swaps in a fresh generation.
// A realm without a stored document runs on the default configuration.
// Note: a stored document that no longer parses leaves the current
// generation in place and returns the error.
func (p *Provider) Load(ctx context.Context) error {
	return p.reload(ctx, "load")
}

// Invalidate discards the entire cache container and rebuilds it from the
// store (or from the current configuration when no store is attached).
// Used by the pub/sub subscriber and the watcher when another replica
// changed the configuration.
func (p *Provider) Invalidate(ctx context.Context, source string) error {
	observability.InvalidationsTotal.WithLabelValues(source).Inc()
	return p.reload(ctx, source)
}

func (p *Provider) reload(ctx context.Context, source string) error {
	if p.repo == nil {
		current := p.gen.Load()
		p.gen.Store(newGeneration(current.config, current.fingerprint))
		return nil
	}

	pc, err := p.repo.GetConfig(ctx, p.realm)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.gen.Store(newGeneration(p.defaults.Clone(), defaultFingerprint))
			return nil
		}
		return fmt.Errorf("failed to reload profile config: %w", err)
	}

	cfg, err := policy.Parse([]byte(pc.Document))
	if err != nil {
		p.logger.Error("stored profile configuration does not parse",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return err
	}

	p.gen.Store(newGeneration(cfg, fingerprint(pc.Document)))
	return nil
}

// GetCompiled returns the compiled profile metadata for a context under the
// current configuration generation. The first request per (context,
// generation) compiles; concurrent first requests observe exactly one
// compilation. The returned metadata is shared and must not be mutated.
func (p *Provider) GetCompiled(ctx context.Context, contextID string) (*metadata.ProfileMetadata, error) {
	gen := p.gen.Load()

	if cached, ok := gen.lookup(contextID); ok {
		observability.MetadataCacheHits.WithLabelValues(p.realm).Inc()
		return cached, nil
	}

	def, ok := p.registry.Definition(contextID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContext, contextID)
	}

	observability.MetadataCacheMisses.WithLabelValues(p.realm).Inc()

	return gen.compute(contextID, func() (*metadata.ProfileMetadata, error) {
		p.compilations.Add(1)
		observability.CompilationsTotal.WithLabelValues(p.realm, contextID).Inc()

		start := time.Now()
		profile, err := p.compiler.Compile(def, gen.config)
		observability.CompileDuration.WithLabelValues(contextID).Observe(time.Since(start).Seconds())

		if err != nil {
			observability.CompilationErrorsTotal.WithLabelValues(p.realm, contextID).Inc()
			p.logger.Error("profile policy compilation failed",
				slog.String("context", contextID),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		return profile, nil
	})
}

// SetConfiguration replaces the realm's configuration. A nil document clears
// it, reverting to the built-in default. The document is parsed and
// semantically validated before being accepted; the cache container is
// swapped only on success. When a repository is attached the document is
// persisted first, so a storage failure leaves the running configuration
// untouched.
func (p *Provider) SetConfiguration(ctx context.Context, document *string) error {
	if document == nil {
		if p.repo != nil {
			if err := p.repo.SetConfig(ctx, p.realm, nil); err != nil {
				return err
			}
		}
		p.gen.Store(newGeneration(p.defaults.Clone(), defaultFingerprint))
		p.logger.Info("profile configuration cleared")
		return nil
	}

	cfg, err := policy.Parse([]byte(*document))
	if err != nil {
		return err
	}

	if errs := p.compiler.Validate(cfg); len(errs) > 0 {
		return &compiler.InvalidConfigError{Errors: errs}
	}

	if p.repo != nil {
		if err := p.repo.SetConfig(ctx, p.realm, document); err != nil {
			return err
		}
	}

	p.gen.Store(newGeneration(cfg, fingerprint(*document)))
	p.logger.Info("profile configuration replaced",
		slog.String("fingerprint", p.Fingerprint()),
		slog.Int("attributes", len(cfg.Attributes)),
	)
	return nil
}

// GetConfiguration returns a clone of the currently effective configuration
// (the stored document, or the built-in default when none is set). Callers
// never receive the live cached object.
func (p *Provider) GetConfiguration() *policy.Config {
	return p.gen.Load().config.Clone()
}

// Fingerprint identifies the current configuration generation.
func (p *Provider) Fingerprint() string {
	return p.gen.Load().fingerprint
}

// Realm returns the realm this provider serves.
func (p *Provider) Realm() string { return p.realm }

// Compilations returns the number of compile executions so far.
func (p *Provider) Compilations() int64 { return p.compilations.Load() }
