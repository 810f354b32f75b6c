package extension

import (
	"time"

	"github.com/xraph/grove"

	factor "github.com/xraph/factor"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/store"
)

// Option configures the Factor Forge extension.
type Option func(*Extension)

// WithStore sets the store for the marketplace engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB injects a grove database; the extension constructs the store
// backend named by the configured Backend ("postgres", "sqlite", or "mongo").
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithBackend selects which store backend is built from the injected grove
// database.
func WithBackend(name string) Option {
	return func(e *Extension) { e.config.Backend = name }
}

// WithMarketplaceOption passes a factor.Option through to the underlying engine.
func WithMarketplaceOption(opt factor.Option) Option {
	return func(e *Extension) {
		e.factorOpts = append(e.factorOpts, opt)
	}
}

// WithPlugin registers a marketplace plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.factorOpts = append(e.factorOpts, factor.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithOfferValidity sets the default lifetime of offers placed without an
// explicit expiry.
func WithOfferValidity(d time.Duration) Option {
	return func(e *Extension) { e.config.OfferValidity = d }
}

// WithSweepInterval sets how frequently the expiry sweeper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithSweepBatchSize sets the maximum offers resolved per sweep pass.
func WithSweepBatchSize(size int) Option {
	return func(e *Extension) { e.config.SweepBatchSize = size }
}
