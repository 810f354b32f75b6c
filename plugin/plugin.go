// Package plugin provides an extensible plugin system for Factor.
// Plugins can hook into marketplace lifecycle events to extend
// functionality without touching the core engine.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, marketplace interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceSubmitted is called when a seller submits an invoice for review.
type OnInvoiceSubmitted interface {
	Plugin
	OnInvoiceSubmitted(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceListed is called when an invoice goes live on the marketplace.
type OnInvoiceListed interface {
	Plugin
	OnInvoiceListed(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceFunded is called when an offer wins and the invoice is funded.
type OnInvoiceFunded interface {
	Plugin
	OnInvoiceFunded(ctx context.Context, inv *invoice.Invoice, winner *offer.Offer) error
}

// OnInvoiceRepaid is called when the anchor repays the invoice.
type OnInvoiceRepaid interface {
	Plugin
	OnInvoiceRepaid(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceSettled is called when proceeds are settled with the lender.
type OnInvoiceSettled interface {
	Plugin
	OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceRejected is called when an invoice is rejected at any review stage.
type OnInvoiceRejected interface {
	Plugin
	OnInvoiceRejected(ctx context.Context, inv *invoice.Invoice, reason string) error
}

// ──────────────────────────────────────────────────
// Offer lifecycle hooks
// ──────────────────────────────────────────────────

// OnOfferCreated is called when a lender places an offer.
type OnOfferCreated interface {
	Plugin
	OnOfferCreated(ctx context.Context, o *offer.Offer) error
}

// OnOfferAccepted is called when the seller accepts an offer.
type OnOfferAccepted interface {
	Plugin
	OnOfferAccepted(ctx context.Context, o *offer.Offer) error
}

// OnOfferRejected is called when an offer is rejected, either by the
// seller or automatically after a sibling wins.
type OnOfferRejected interface {
	Plugin
	OnOfferRejected(ctx context.Context, o *offer.Offer, reason string) error
}

// OnOfferWithdrawn is called when a lender withdraws a pending offer.
type OnOfferWithdrawn interface {
	Plugin
	OnOfferWithdrawn(ctx context.Context, o *offer.Offer) error
}

// OnOffersExpired is called after an expiry sweep resolves lapsed offers.
type OnOffersExpired interface {
	Plugin
	OnOffersExpired(ctx context.Context, count int, elapsed time.Duration) error
}
