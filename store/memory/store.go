// Package memory provides an in-memory Store for tests and demos. Every
// read returns a deep copy, and writes are fenced on the entity version,
// so it exhibits the same conditional-write semantics as the durable
// backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	factorstore "github.com/xraph/factor/store"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	invoices map[string]*invoice.Invoice
	offers   map[string]*offer.Offer

	closed bool
}

func New() *Store {
	return &Store{
		invoices: make(map[string]*invoice.Invoice),
		offers:   make(map[string]*offer.Offer),
	}
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	if _, exists := s.invoices[inv.ID.String()]; exists {
		return factor.ErrAlreadyExists
	}
	s.invoices[inv.ID.String()] = inv.Clone()
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}
	if inv, ok := s.invoices[invID.String()]; ok {
		return inv.Clone(), nil
	}
	return nil, factor.ErrInvoiceNotFound
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	current, ok := s.invoices[inv.ID.String()]
	if !ok {
		return factor.ErrInvoiceNotFound
	}
	if current.Version != inv.Version {
		return factor.ErrVersionConflict
	}

	stored := inv.Clone()
	stored.Version++
	stored.Touch()
	s.invoices[inv.ID.String()] = stored

	// Reflect the committed revision back to the caller's copy.
	inv.Version = stored.Version
	inv.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) ListInvoicesBySeller(_ context.Context, sellerID id.SellerID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.SellerID.String() != sellerID.String() {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		result = append(result, inv.Clone())
	}
	sortInvoicesNewestFirst(result)

	return pageInvoices(result, opts.Limit, opts.Offset), nil
}

func (s *Store) BrowseListedInvoices(_ context.Context, opts invoice.BrowseOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.Status != invoice.StatusListed {
			continue
		}
		if opts.MinAmount > 0 && inv.FaceAmount.Amount < opts.MinAmount {
			continue
		}
		if opts.MaxAmount > 0 && inv.FaceAmount.Amount > opts.MaxAmount {
			continue
		}
		if !opts.AnchorID.IsNil() && inv.AnchorID.String() != opts.AnchorID.String() {
			continue
		}
		if opts.MaxDaysUntilDue > 0 && inv.DaysUntilDue(now) > opts.MaxDaysUntilDue {
			continue
		}
		result = append(result, inv.Clone())
	}
	sortInvoicesNewestFirst(result)

	return pageInvoices(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CountInvoicesByStatus(_ context.Context) (map[invoice.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	counts := make(map[invoice.Status]int64)
	for _, inv := range s.invoices {
		counts[inv.Status]++
	}
	return counts, nil
}

// ==================== Offer Store ====================

func (s *Store) CreateOffer(_ context.Context, o *offer.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	if _, exists := s.offers[o.ID.String()]; exists {
		return factor.ErrAlreadyExists
	}
	s.offers[o.ID.String()] = o.Clone()
	return nil
}

func (s *Store) GetOffer(_ context.Context, offerID id.OfferID) (*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}
	if o, ok := s.offers[offerID.String()]; ok {
		return o.Clone(), nil
	}
	return nil, factor.ErrOfferNotFound
}

func (s *Store) UpdateOffer(_ context.Context, o *offer.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	current, ok := s.offers[o.ID.String()]
	if !ok {
		return factor.ErrOfferNotFound
	}
	if current.Version != o.Version {
		return factor.ErrVersionConflict
	}

	stored := o.Clone()
	stored.Version++
	stored.Touch()
	s.offers[o.ID.String()] = stored

	// Reflect the committed revision back to the caller's copy.
	o.Version = stored.Version
	o.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) ListOffersByInvoice(_ context.Context, invoiceID id.InvoiceID, opts offer.ListOpts) ([]*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	result := make([]*offer.Offer, 0)
	for _, o := range s.offers {
		if o.InvoiceID.String() != invoiceID.String() {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		result = append(result, o.Clone())
	}
	offer.SortNewestFirst(result)

	return pageOffers(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListOffersByLender(_ context.Context, lenderID id.LenderID, opts offer.PortfolioOpts) ([]*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	result := make([]*offer.Offer, 0)
	for _, o := range s.offers {
		if o.LenderID.String() != lenderID.String() {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		if !opts.From.IsZero() && o.CreatedAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && !o.CreatedAt.Before(opts.To) {
			continue
		}
		result = append(result, o.Clone())
	}
	offer.SortNewestFirst(result)

	return pageOffers(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListExpirableOffers(_ context.Context, now time.Time, limit int) ([]*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	result := make([]*offer.Offer, 0)
	for _, o := range s.offers {
		if o.Status != offer.StatusPending {
			continue
		}
		if !o.ExpiredAt(now) {
			continue
		}
		result = append(result, o.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CountOffersByStatus(_ context.Context) (map[offer.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, factor.ErrStoreClosed
	}

	counts := make(map[offer.Status]int64)
	for _, o := range s.offers {
		counts[o.Status]++
	}
	return counts, nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// ==================== Helpers ====================

func sortInvoicesNewestFirst(invs []*invoice.Invoice) {
	sort.SliceStable(invs, func(i, j int) bool {
		if !invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].CreatedAt.After(invs[j].CreatedAt)
		}
		return invs[i].ID.String() > invs[j].ID.String()
	})
}

func pageInvoices(invs []*invoice.Invoice, limit, offset int) []*invoice.Invoice {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(invs) {
		start = len(invs)
	}
	end := start + limit
	if limit <= 0 || end > len(invs) {
		end = len(invs)
	}
	return invs[start:end]
}

func pageOffers(offers []*offer.Offer, limit, offset int) []*offer.Offer {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(offers) {
		start = len(offers)
	}
	end := start + limit
	if limit <= 0 || end > len(offers) {
		end = len(offers)
	}
	return offers[start:end]
}
