package extension

import "time"

// Config holds the Factor extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.factor" or "factor" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Backend selects the store built from an injected grove.DB:
	// "postgres", "sqlite", or "mongo". Ignored when a store is provided
	// programmatically; defaults to "memory" when no grove.DB is injected.
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// OfferValidity is how long a new offer stays open when the lender
	// does not set an explicit expiry (default: 48h).
	OfferValidity time.Duration `json:"offer_validity" mapstructure:"offer_validity" yaml:"offer_validity"`

	// SweepInterval is how frequently the expiry sweeper scans for lapsed
	// offers (default: 1m).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// SweepBatchSize is the maximum number of offers resolved per sweep
	// pass (default: 100).
	SweepBatchSize int `json:"sweep_batch_size" mapstructure:"sweep_batch_size" yaml:"sweep_batch_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OfferValidity:  48 * time.Hour,
		SweepInterval:  time.Minute,
		SweepBatchSize: 100,
	}
}
