package invoice

import (
	"context"
	"time"

	"github.com/xraph/factor/id"
)

// Store is the invoice persistence interface. Update is a conditional
// write fenced on the invoice's loaded Version; a lost race surfaces as
// factor.ErrVersionConflict and leaves the stored invoice untouched.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	ListBySeller(ctx context.Context, sellerID id.SellerID, opts ListOpts) ([]*Invoice, error)
	BrowseListed(ctx context.Context, opts BrowseOpts) ([]*Invoice, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// ListOpts filters a seller's own invoices.
type ListOpts struct {
	Status Status // empty = all
	Limit  int
	Offset int
}

// BrowseOpts filters the marketplace browse query over listed invoices.
// Zero values mean "no constraint".
type BrowseOpts struct {
	MinAmount       int64        // smallest-unit face amount lower bound
	MaxAmount       int64        // smallest-unit face amount upper bound
	AnchorID        id.AnchorID  // only invoices drawn on this anchor
	MaxDaysUntilDue int          // only invoices due within this many days
	Now             time.Time    // reference time for MaxDaysUntilDue; zero = time.Now
	Limit           int
	Offset          int
}
