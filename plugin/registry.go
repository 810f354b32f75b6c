package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
)

// Registry manages all registered plugins and provides efficient dispatch.
// Interface checks run once at registration; emission walks the cached
// list for each hook. Hook failures are logged and never propagate into
// the marketplace pipeline.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onInvoiceSubmitted []OnInvoiceSubmitted
	onInvoiceListed    []OnInvoiceListed
	onInvoiceFunded    []OnInvoiceFunded
	onInvoiceRepaid    []OnInvoiceRepaid
	onInvoiceSettled   []OnInvoiceSettled
	onInvoiceRejected  []OnInvoiceRejected
	onOfferCreated     []OnOfferCreated
	onOfferAccepted    []OnOfferAccepted
	onOfferRejected    []OnOfferRejected
	onOfferWithdrawn   []OnOfferWithdrawn
	onOffersExpired    []OnOffersExpired
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInvoiceSubmitted); ok {
		r.onInvoiceSubmitted = append(r.onInvoiceSubmitted, v)
	}
	if v, ok := p.(OnInvoiceListed); ok {
		r.onInvoiceListed = append(r.onInvoiceListed, v)
	}
	if v, ok := p.(OnInvoiceFunded); ok {
		r.onInvoiceFunded = append(r.onInvoiceFunded, v)
	}
	if v, ok := p.(OnInvoiceRepaid); ok {
		r.onInvoiceRepaid = append(r.onInvoiceRepaid, v)
	}
	if v, ok := p.(OnInvoiceSettled); ok {
		r.onInvoiceSettled = append(r.onInvoiceSettled, v)
	}
	if v, ok := p.(OnInvoiceRejected); ok {
		r.onInvoiceRejected = append(r.onInvoiceRejected, v)
	}
	if v, ok := p.(OnOfferCreated); ok {
		r.onOfferCreated = append(r.onOfferCreated, v)
	}
	if v, ok := p.(OnOfferAccepted); ok {
		r.onOfferAccepted = append(r.onOfferAccepted, v)
	}
	if v, ok := p.(OnOfferRejected); ok {
		r.onOfferRejected = append(r.onOfferRejected, v)
	}
	if v, ok := p.(OnOfferWithdrawn); ok {
		r.onOfferWithdrawn = append(r.onOfferWithdrawn, v)
	}
	if v, ok := p.(OnOffersExpired); ok {
		r.onOffersExpired = append(r.onOffersExpired, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, marketplace interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, marketplace)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceSubmitted emits an invoice submitted event.
func (r *Registry) EmitInvoiceSubmitted(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceSubmitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceSubmitted(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceSubmitted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceListed emits an invoice listed event.
func (r *Registry) EmitInvoiceListed(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceListed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceListed(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceListed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceFunded emits an invoice funded event.
func (r *Registry) EmitInvoiceFunded(ctx context.Context, inv *invoice.Invoice, winner *offer.Offer) {
	r.mu.RLock()
	plugins := r.onInvoiceFunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceFunded(ctx, inv, winner)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceFunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceRepaid emits an invoice repaid event.
func (r *Registry) EmitInvoiceRepaid(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceRepaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceRepaid(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceRepaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceSettled emits an invoice settled event.
func (r *Registry) EmitInvoiceSettled(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceSettled(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceRejected emits an invoice rejected event.
func (r *Registry) EmitInvoiceRejected(ctx context.Context, inv *invoice.Invoice, reason string) {
	r.mu.RLock()
	plugins := r.onInvoiceRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceRejected(ctx, inv, reason)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOfferCreated emits an offer created event.
func (r *Registry) EmitOfferCreated(ctx context.Context, o *offer.Offer) {
	r.mu.RLock()
	plugins := r.onOfferCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOfferCreated(ctx, o)
		}); err != nil {
			r.logger.Warn("plugin OnOfferCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOfferAccepted emits an offer accepted event.
func (r *Registry) EmitOfferAccepted(ctx context.Context, o *offer.Offer) {
	r.mu.RLock()
	plugins := r.onOfferAccepted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOfferAccepted(ctx, o)
		}); err != nil {
			r.logger.Warn("plugin OnOfferAccepted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOfferRejected emits an offer rejected event.
func (r *Registry) EmitOfferRejected(ctx context.Context, o *offer.Offer, reason string) {
	r.mu.RLock()
	plugins := r.onOfferRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOfferRejected(ctx, o, reason)
		}); err != nil {
			r.logger.Warn("plugin OnOfferRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOfferWithdrawn emits an offer withdrawn event.
func (r *Registry) EmitOfferWithdrawn(ctx context.Context, o *offer.Offer) {
	r.mu.RLock()
	plugins := r.onOfferWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOfferWithdrawn(ctx, o)
		}); err != nil {
			r.logger.Warn("plugin OnOfferWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOffersExpired emits an expiry sweep event.
func (r *Registry) EmitOffersExpired(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onOffersExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOffersExpired(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnOffersExpired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the marketplace pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
