package store

import (
	"context"
	"time"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
)

// Store is the unified storage interface for all Factor entities. Instead
// of embedding the per-entity sub-interfaces, we explicitly declare all
// methods to avoid naming conflicts.
//
// UpdateInvoice and UpdateOffer are conditional writes: they succeed only
// when the stored version matches the entity's loaded Version, bumping it
// by one atomically. A mismatch returns factor.ErrVersionConflict with the
// stored entity untouched. This is the fencing mechanism every lifecycle
// transition relies on; backends without multi-document transactions need
// nothing stronger.
type Store interface {
	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error
	ListInvoicesBySeller(ctx context.Context, sellerID id.SellerID, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	BrowseListedInvoices(ctx context.Context, opts invoice.BrowseOpts) ([]*invoice.Invoice, error)
	CountInvoicesByStatus(ctx context.Context) (map[invoice.Status]int64, error)

	// Offer methods
	CreateOffer(ctx context.Context, o *offer.Offer) error
	GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error)
	UpdateOffer(ctx context.Context, o *offer.Offer) error
	ListOffersByInvoice(ctx context.Context, invoiceID id.InvoiceID, opts offer.ListOpts) ([]*offer.Offer, error)
	ListOffersByLender(ctx context.Context, lenderID id.LenderID, opts offer.PortfolioOpts) ([]*offer.Offer, error)
	ListExpirableOffers(ctx context.Context, now time.Time, limit int) ([]*offer.Offer, error)
	CountOffersByStatus(ctx context.Context) (map[offer.Status]int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
