package factor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/store"
)

// Marketplace is the invoice-financing engine. Sellers list
// anchor-approved invoices, lenders bid on them, and the engine
// guarantees exactly one offer wins each listing. All state lives behind
// the Store; the engine itself is safe for concurrent use.
type Marketplace struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	cfg     Config

	// clock is swappable for deterministic tests.
	clock func() time.Time

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Marketplace instance.
func New(s store.Store, opts ...Option) *Marketplace {
	m := &Marketplace{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		cfg:      DefaultConfig(),
		clock:    func() time.Time { return time.Now().UTC() },
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Option configures a Marketplace instance.
type Option func(*Marketplace)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Marketplace) {
		m.logger = logger
		m.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(m *Marketplace) {
		_ = m.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(m *Marketplace) {
		m.cfg = cfg
	}
}

// WithOfferValidity sets the default offer validity window.
func WithOfferValidity(d time.Duration) Option {
	return func(m *Marketplace) {
		m.cfg.OfferValidity = d
	}
}

// WithSweepConfig configures the expiry sweep worker.
func WithSweepConfig(interval time.Duration, batchSize int) Option {
	return func(m *Marketplace) {
		m.cfg.SweepInterval = interval
		m.cfg.SweepBatchSize = batchSize
	}
}

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(clock func() time.Time) Option {
	return func(m *Marketplace) {
		m.clock = clock
	}
}

// Start migrates the store, initializes plugins, and begins the expiry
// sweep worker.
func (m *Marketplace) Start(ctx context.Context) error {
	if err := m.store.Migrate(ctx); err != nil {
		return err
	}

	m.plugins.EmitInit(ctx, m)

	m.wg.Add(1)
	go m.expirySweepWorker(ctx)

	m.logger.Info("marketplace started",
		"sweep_interval", m.cfg.SweepInterval,
		"sweep_batch_size", m.cfg.SweepBatchSize,
		"offer_validity", m.cfg.OfferValidity,
	)

	return nil
}

// Stop shuts down the Marketplace.
func (m *Marketplace) Stop() error {
	close(m.stopChan)
	m.wg.Wait()

	ctx := context.Background()
	m.plugins.EmitShutdown(ctx)

	return m.store.Close()
}

// Plugins exposes the plugin registry for late registration.
func (m *Marketplace) Plugins() *plugin.Registry {
	return m.plugins
}

// ──────────────────────────────────────────────────
// Expiry sweeping
// ──────────────────────────────────────────────────

// expirySweepWorker resolves lapsed offers on a fixed interval.
func (m *Marketplace) expirySweepWorker(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			if _, err := m.ExpireDueOffers(ctx, m.clock()); err != nil {
				m.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// ExpireDueOffers resolves every pending offer whose validity window has
// lapsed at the given instant, up to the configured batch size. The sweep
// is idempotent: offers already resolved are not returned by the store,
// and an offer that loses its version race to a concurrent accept or
// withdraw is skipped silently.
func (m *Marketplace) ExpireDueOffers(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()

	due, err := m.store.ListExpirableOffers(ctx, now, m.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range due {
		o.Status = offer.StatusExpired
		if err := m.store.UpdateOffer(ctx, o); err != nil {
			if IsConflict(err) {
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		elapsed := time.Since(start)
		m.plugins.EmitOffersExpired(ctx, expired, elapsed)
		m.logger.Debug("expired offers",
			"count", expired,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	return expired, nil
}

// ──────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────

// Stats is a read-only aggregate of marketplace state.
type Stats struct {
	Invoices map[invoice.Status]int64 `json:"invoices"`
	Offers   map[offer.Status]int64   `json:"offers"`
}

// Stats returns per-status counts for invoices and offers.
func (m *Marketplace) Stats(ctx context.Context) (*Stats, error) {
	invoices, err := m.store.CountInvoicesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := m.store.CountOffersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Invoices: invoices, Offers: offers}, nil
}
