package config

import "time"

// ProviderConfig bounds the per-realm provider cache.
type ProviderConfig struct {
	// CacheCapacity is the maximum number of realm providers kept in memory.
	CacheCapacity int `envconfig:"CACHE_CAPACITY" default:"1024" validate:"min=1"`

	// CacheTTL expires idle providers; they reload from the store on next use.
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h" validate:"gt=0"`
}
