package factor

import (
	"context"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
)

// RankView selects the ordering of an invoice's offer book.
type RankView string

const (
	// RankNewest orders offers by creation time, newest first.
	RankNewest RankView = "newest"

	// RankBest orders offers cheapest first: ascending effective annual
	// rate, ties broken by larger funding percentage, then earlier
	// creation.
	RankBest RankView = "best"
)

// GetInvoice retrieves an invoice by ID.
func (m *Marketplace) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	return m.store.GetInvoice(ctx, invoiceID)
}

// SellerInvoices lists a seller's invoices, newest first.
func (m *Marketplace) SellerInvoices(ctx context.Context, sellerID id.SellerID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return m.store.ListInvoicesBySeller(ctx, sellerID, opts)
}

// BrowseListings pages through currently listed invoices for lenders,
// filtered by amount band, anchor, and remaining runway.
func (m *Marketplace) BrowseListings(ctx context.Context, opts invoice.BrowseOpts) ([]*invoice.Invoice, error) {
	if opts.Now.IsZero() {
		opts.Now = m.clock()
	}
	return m.store.BrowseListedInvoices(ctx, opts)
}

// GetOffer retrieves an offer by ID.
func (m *Marketplace) GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error) {
	return m.store.GetOffer(ctx, offerID)
}

// OffersForInvoice lists the offer book on one invoice in the requested
// ranking.
func (m *Marketplace) OffersForInvoice(ctx context.Context, invoiceID id.InvoiceID, view RankView, opts offer.ListOpts) ([]*offer.Offer, error) {
	offers, err := m.store.ListOffersByInvoice(ctx, invoiceID, opts)
	if err != nil {
		return nil, err
	}
	if view == RankBest {
		offer.SortBestFirst(offers)
	}
	return offers, nil
}

// LenderPortfolio lists a lender's offers across all invoices, newest
// first, filtered by status and date range.
func (m *Marketplace) LenderPortfolio(ctx context.Context, lenderID id.LenderID, opts offer.PortfolioOpts) ([]*offer.Offer, error) {
	return m.store.ListOffersByLender(ctx, lenderID, opts)
}
