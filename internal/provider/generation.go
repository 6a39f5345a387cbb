package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/policy"
)

// defaultFingerprint marks a generation running on the built-in default
// configuration rather than a stored document.
const defaultFingerprint = "default"

// generation is the cache container for one configuration generation: the
// parsed effective configuration, its fingerprint, and the compiled metadata
// per context. A generation is immutable except for the compiled map, which
// only grows; invalidation replaces the whole container.
type generation struct {
	config      *policy.Config
	fingerprint string

	// compiled maps contextID -> *metadata.ProfileMetadata.
	compiled sync.Map

	// group collapses concurrent first-time compilations of the same
	// context into a single execution.
	group singleflight.Group
}

func newGeneration(cfg *policy.Config, fp string) *generation {
	return &generation{config: cfg, fingerprint: fp}
}

func (g *generation) lookup(contextID string) (*metadata.ProfileMetadata, bool) {
	v, ok := g.compiled.Load(contextID)
	if !ok {
		return nil, false
	}
	return v.(*metadata.ProfileMetadata), true
}

// compute runs fn at most once per contextID for this generation and
// publishes the result. Errors are not cached: a failed compilation (for
// instance an invalid configuration) is re-attempted on the next access, so
// validation failures keep surfacing until the configuration is fixed.
func (g *generation) compute(contextID string, fn func() (*metadata.ProfileMetadata, error)) (*metadata.ProfileMetadata, error) {
	v, err, _ := g.group.Do(contextID, func() (any, error) {
		// A caller that lost an earlier singleflight race may arrive after
		// the winner already published; serve the cached result.
		if cached, ok := g.lookup(contextID); ok {
			return cached, nil
		}

		profile, err := fn()
		if err != nil {
			return nil, err
		}

		g.compiled.Store(contextID, profile)
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*metadata.ProfileMetadata), nil
}

// fingerprint derives a stable identity from a raw configuration document.
func fingerprint(document string) string {
	sum := sha256.Sum256([]byte(document))
	return hex.EncodeToString(sum[:])
}
