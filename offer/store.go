package offer

import (
	"context"
	"time"

	"github.com/xraph/factor/id"
)

// Store is the offer persistence interface. Update is a conditional write
// fenced on the offer's loaded Version; a lost race surfaces as
// factor.ErrVersionConflict and leaves the stored offer untouched.
type Store interface {
	Create(ctx context.Context, o *Offer) error
	Get(ctx context.Context, offerID id.OfferID) (*Offer, error)
	Update(ctx context.Context, o *Offer) error
	ListByInvoice(ctx context.Context, invoiceID id.InvoiceID, opts ListOpts) ([]*Offer, error)
	ListByLender(ctx context.Context, lenderID id.LenderID, opts PortfolioOpts) ([]*Offer, error)
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]*Offer, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// ListOpts filters the offers on one invoice.
type ListOpts struct {
	Status Status // empty = all
	Limit  int
	Offset int
}

// PortfolioOpts filters a lender's offers across invoices.
// Zero time values mean "no constraint".
type PortfolioOpts struct {
	Status Status
	From   time.Time // offers created at or after
	To     time.Time // offers created before
	Limit  int
	Offset int
}
