package config

import "time"

// WatcherConfig contains configuration for the store reconciliation loop
// that catches configuration changes missed by pub/sub.
type WatcherConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Interval time.Duration `envconfig:"INTERVAL" default:"30s" validate:"gt=0"`
}
