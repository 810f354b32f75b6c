// Package extension provides the Forge extension adapter for Factor.
//
// It implements the forge.Extension interface to integrate Factor
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.factor" or "factor" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	factor "github.com/xraph/factor"
	"github.com/xraph/factor/store"
	"github.com/xraph/factor/store/memory"
	"github.com/xraph/factor/store/mongo"
	"github.com/xraph/factor/store/postgres"
	"github.com/xraph/factor/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "factor"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Invoice financing marketplace engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Factor as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *factor.Marketplace
	store      store.Store
	groveDB    *grove.DB
	factorOpts []factor.Option
}

// New creates a new Factor Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Marketplace instance.
// This is nil until Register is called.
func (e *Extension) Engine() *factor.Marketplace { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the marketplace engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Build the store: programmatic store wins, then an injected grove
	// database, then in-memory.
	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	opts := e.buildFactorOpts()

	eng := factor.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*factor.Marketplace, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("factor: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("factor: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the store backend from the injected grove database,
// falling back to in-memory when none was injected.
func (e *Extension) buildStore() (store.Store, error) {
	if e.groveDB == nil {
		return memory.New(), nil
	}

	switch e.config.Backend {
	case "postgres":
		return postgres.New(e.groveDB), nil
	case "sqlite":
		return sqlite.New(e.groveDB), nil
	case "mongo":
		return mongo.New(e.groveDB), nil
	case "":
		return nil, errors.New("factor: grove database injected but no backend configured; " +
			"set backend to postgres, sqlite, or mongo")
	default:
		return nil, fmt.Errorf("factor: unknown store backend %q", e.config.Backend)
	}
}

// buildFactorOpts constructs factor.Option values from the resolved config.
func (e *Extension) buildFactorOpts() []factor.Option {
	opts := make([]factor.Option, 0, len(e.factorOpts)+2)

	if e.config.OfferValidity > 0 {
		opts = append(opts, factor.WithOfferValidity(e.config.OfferValidity))
	}
	if e.config.SweepInterval > 0 || e.config.SweepBatchSize > 0 {
		interval := e.config.SweepInterval
		batchSize := e.config.SweepBatchSize
		defaults := DefaultConfig()
		if interval == 0 {
			interval = defaults.SweepInterval
		}
		if batchSize == 0 {
			batchSize = defaults.SweepBatchSize
		}
		opts = append(opts, factor.WithSweepConfig(interval, batchSize))
	}

	// Append any pass-through factor options.
	opts = append(opts, e.factorOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("factor: configuration is required but not found in config files; " +
				"ensure 'extensions.factor' or 'factor' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("factor: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("backend", e.config.Backend),
		forge.F("offer_validity", e.config.OfferValidity),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("sweep_batch_size", e.config.SweepBatchSize),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.factor" first (namespaced pattern).
	if cm.IsSet("extensions.factor") {
		if err := cm.Bind("extensions.factor", &cfg); err == nil {
			e.Logger().Debug("factor: loaded config from file",
				forge.F("key", "extensions.factor"),
			)
			return cfg, true
		}
		e.Logger().Warn("factor: failed to bind extensions.factor config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "factor" key.
	if cm.IsSet("factor") {
		if err := cm.Bind("factor", &cfg); err == nil {
			e.Logger().Debug("factor: loaded config from file",
				forge.F("key", "factor"),
			)
			return cfg, true
		}
		e.Logger().Warn("factor: failed to bind factor config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.OfferValidity == 0 {
		cfg.OfferValidity = defaults.OfferValidity
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Backend == "" && programmaticConfig.Backend != "" {
		yamlConfig.Backend = programmaticConfig.Backend
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.OfferValidity == 0 && programmaticConfig.OfferValidity != 0 {
		yamlConfig.OfferValidity = programmaticConfig.OfferValidity
	}
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.SweepBatchSize == 0 && programmaticConfig.SweepBatchSize != 0 {
		yamlConfig.SweepBatchSize = programmaticConfig.SweepBatchSize
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
