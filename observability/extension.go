// Package observability provides a metrics extension for Factor that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceSubmitted = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceListed    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceFunded    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceRepaid    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceSettled   = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceRejected  = (*MetricsExtension)(nil)
	_ plugin.OnOfferCreated     = (*MetricsExtension)(nil)
	_ plugin.OnOfferAccepted    = (*MetricsExtension)(nil)
	_ plugin.OnOfferRejected    = (*MetricsExtension)(nil)
	_ plugin.OnOfferWithdrawn   = (*MetricsExtension)(nil)
	_ plugin.OnOffersExpired    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Factor plugin to automatically track marketplace metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Invoice metrics
	InvoiceSubmitted Counter
	InvoiceListed    Counter
	InvoiceFunded    Counter
	InvoiceRepaid    Counter
	InvoiceSettled   Counter
	InvoiceRejected  Counter
	InvoiceFace      Histogram

	// Offer metrics
	OfferCreated   Counter
	OfferAccepted  Counter
	OfferRejected  Counter
	OfferWithdrawn Counter
	OfferAmount    Histogram
	OfferRateBps   Histogram

	// Sweep metrics
	OffersExpired  Counter
	SweepBatchSize Histogram
	SweepLatency   Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Invoice metrics
		InvoiceSubmitted: factory.Counter("factor.invoice.submitted"),
		InvoiceListed:    factory.Counter("factor.invoice.listed"),
		InvoiceFunded:    factory.Counter("factor.invoice.funded"),
		InvoiceRepaid:    factory.Counter("factor.invoice.repaid"),
		InvoiceSettled:   factory.Counter("factor.invoice.settled"),
		InvoiceRejected:  factory.Counter("factor.invoice.rejected"),
		InvoiceFace:      factory.Histogram("factor.invoice.face_amount"),

		// Offer metrics
		OfferCreated:   factory.Counter("factor.offer.created"),
		OfferAccepted:  factory.Counter("factor.offer.accepted"),
		OfferRejected:  factory.Counter("factor.offer.rejected"),
		OfferWithdrawn: factory.Counter("factor.offer.withdrawn"),
		OfferAmount:    factory.Histogram("factor.offer.amount"),
		OfferRateBps:   factory.Histogram("factor.offer.rate_bps"),

		// Sweep metrics
		OffersExpired:  factory.Counter("factor.offers.expired"),
		SweepBatchSize: factory.Histogram("factor.sweep.batch.size"),
		SweepLatency:   factory.Histogram("factor.sweep.latency_ms"),

		// Error metrics
		StoreErrors:  factory.Counter("factor.store.errors"),
		PluginErrors: factory.Counter("factor.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceSubmitted implements plugin.OnInvoiceSubmitted.
func (m *MetricsExtension) OnInvoiceSubmitted(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceSubmitted.Inc()
	m.InvoiceFace.Observe(float64(inv.FaceAmount.Amount))
	return nil
}

// OnInvoiceListed implements plugin.OnInvoiceListed.
func (m *MetricsExtension) OnInvoiceListed(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceListed.Inc()
	return nil
}

// OnInvoiceFunded implements plugin.OnInvoiceFunded.
func (m *MetricsExtension) OnInvoiceFunded(_ context.Context, _ *invoice.Invoice, winner *offer.Offer) error {
	m.InvoiceFunded.Inc()
	m.OfferAmount.Observe(float64(winner.Amount.Amount))
	return nil
}

// OnInvoiceRepaid implements plugin.OnInvoiceRepaid.
func (m *MetricsExtension) OnInvoiceRepaid(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceRepaid.Inc()
	return nil
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (m *MetricsExtension) OnInvoiceSettled(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceSettled.Inc()
	return nil
}

// OnInvoiceRejected implements plugin.OnInvoiceRejected.
func (m *MetricsExtension) OnInvoiceRejected(_ context.Context, _ *invoice.Invoice, _ string) error {
	m.InvoiceRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Offer lifecycle hooks
// ──────────────────────────────────────────────────

// OnOfferCreated implements plugin.OnOfferCreated.
func (m *MetricsExtension) OnOfferCreated(_ context.Context, o *offer.Offer) error {
	m.OfferCreated.Inc()
	m.OfferRateBps.Observe(float64(o.Rate))
	return nil
}

// OnOfferAccepted implements plugin.OnOfferAccepted.
func (m *MetricsExtension) OnOfferAccepted(_ context.Context, _ *offer.Offer) error {
	m.OfferAccepted.Inc()
	return nil
}

// OnOfferRejected implements plugin.OnOfferRejected.
func (m *MetricsExtension) OnOfferRejected(_ context.Context, _ *offer.Offer, _ string) error {
	m.OfferRejected.Inc()
	return nil
}

// OnOfferWithdrawn implements plugin.OnOfferWithdrawn.
func (m *MetricsExtension) OnOfferWithdrawn(_ context.Context, _ *offer.Offer) error {
	m.OfferWithdrawn.Inc()
	return nil
}

// OnOffersExpired implements plugin.OnOffersExpired.
func (m *MetricsExtension) OnOffersExpired(_ context.Context, count int, elapsed time.Duration) error {
	m.OffersExpired.Add(float64(count))
	m.SweepBatchSize.Observe(float64(count))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
