package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/types"
)

func newInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		Entity:     types.NewEntity(),
		ID:         id.NewInvoiceID(),
		SellerID:   id.NewSellerID(),
		AnchorID:   id.NewAnchorID(),
		FaceAmount: types.USD(1_000_000),
		IssueDate:  time.Now().UTC().AddDate(0, 0, -5),
		DueDate:    time.Now().UTC().AddDate(0, 0, 60),
		Status:     invoice.StatusDraft,
	}
}

func newOffer(invoiceID id.InvoiceID, expiresAt time.Time) *offer.Offer {
	return &offer.Offer{
		Entity:     types.NewEntity(),
		ID:         id.NewOfferID(),
		InvoiceID:  invoiceID,
		LenderID:   id.NewLenderID(),
		Amount:     types.USD(800_000),
		Rate:       1200,
		FundingPct: 80,
		TenureDays: 30,
		Status:     offer.StatusPending,
		ExpiresAt:  expiresAt,
	}
}

func TestInvoiceConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := newInvoice()
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	// Two readers take the same snapshot.
	a, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	b, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}

	a.Status = invoice.StatusSubmitted
	if err := s.UpdateInvoice(ctx, a); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("winner version: got %d, want 2", a.Version)
	}

	// The second writer lost the race; its version token is stale.
	b.Status = invoice.StatusRejected
	if err := s.UpdateInvoice(ctx, b); !errors.Is(err, factor.ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}

	// The losing write left nothing behind.
	stored, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if stored.Status != invoice.StatusSubmitted {
		t.Errorf("stored status: got %s, want submitted", stored.Status)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := newInvoice()
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}

	// Mutating the snapshot must not leak into the store.
	got.Status = invoice.StatusSettled
	got.Metadata = map[string]string{"tampered": "yes"}

	fresh, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if fresh.Status != invoice.StatusDraft {
		t.Errorf("snapshot mutation leaked: status %s", fresh.Status)
	}
	if fresh.Metadata != nil {
		t.Error("snapshot mutation leaked: metadata")
	}
}

func TestOfferConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	o := newOffer(id.NewInvoiceID(), now.Add(48*time.Hour))
	if err := s.CreateOffer(ctx, o); err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	accept, err := s.GetOffer(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	expire, err := s.GetOffer(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}

	accept.Status = offer.StatusAccepted
	if err := s.UpdateOffer(ctx, accept); err != nil {
		t.Fatalf("accept update failed: %v", err)
	}

	// A racing expiry write is fenced out by the version check.
	expire.Status = offer.StatusExpired
	if err := s.UpdateOffer(ctx, expire); !errors.Is(err, factor.ErrVersionConflict) {
		t.Fatalf("racing expiry: got %v, want ErrVersionConflict", err)
	}

	stored, err := s.GetOffer(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	if stored.Status != offer.StatusAccepted {
		t.Errorf("stored status: got %s, want accepted", stored.Status)
	}
}

func TestListExpirableOffers(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()
	invID := id.NewInvoiceID()

	lapsed := newOffer(invID, now.Add(-time.Hour))
	boundary := newOffer(invID, now)
	live := newOffer(invID, now.Add(time.Hour))
	resolved := newOffer(invID, now.Add(-2*time.Hour))
	resolved.Status = offer.StatusWithdrawn

	for _, o := range []*offer.Offer{lapsed, boundary, live, resolved} {
		if err := s.CreateOffer(ctx, o); err != nil {
			t.Fatalf("CreateOffer failed: %v", err)
		}
	}

	got, err := s.ListExpirableOffers(ctx, now, 0)
	if err != nil {
		t.Fatalf("ListExpirableOffers failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expirable count: got %d, want 2", len(got))
	}
	for _, o := range got {
		if o.ID.String() == live.ID.String() || o.ID.String() == resolved.ID.String() {
			t.Errorf("unexpected offer in sweep set: %s (%s)", o.ID, o.Status)
		}
	}
}

func TestBrowseListedInvoicesFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()
	anchor := id.NewAnchorID()

	listed := newInvoice()
	listed.Status = invoice.StatusListed
	listed.AnchorID = anchor
	listed.FaceAmount = types.USD(500_000)
	listed.DueDate = now.AddDate(0, 0, 20)

	bigger := newInvoice()
	bigger.Status = invoice.StatusListed
	bigger.FaceAmount = types.USD(2_000_000)
	bigger.DueDate = now.AddDate(0, 0, 90)

	draft := newInvoice()
	draft.AnchorID = anchor

	for _, inv := range []*invoice.Invoice{listed, bigger, draft} {
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice failed: %v", err)
		}
	}

	t.Run("only listed", func(t *testing.T) {
		got, err := s.BrowseListedInvoices(ctx, invoice.BrowseOpts{Now: now})
		if err != nil {
			t.Fatalf("browse failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d invoices, want 2", len(got))
		}
	})

	t.Run("amount band", func(t *testing.T) {
		got, err := s.BrowseListedInvoices(ctx, invoice.BrowseOpts{
			MinAmount: 1_000_000,
			Now:       now,
		})
		if err != nil {
			t.Fatalf("browse failed: %v", err)
		}
		if len(got) != 1 || got[0].ID.String() != bigger.ID.String() {
			t.Errorf("amount filter returned wrong set")
		}
	})

	t.Run("anchor filter", func(t *testing.T) {
		got, err := s.BrowseListedInvoices(ctx, invoice.BrowseOpts{
			AnchorID: anchor,
			Now:      now,
		})
		if err != nil {
			t.Fatalf("browse failed: %v", err)
		}
		if len(got) != 1 || got[0].ID.String() != listed.ID.String() {
			t.Errorf("anchor filter returned wrong set")
		}
	})

	t.Run("days until due", func(t *testing.T) {
		got, err := s.BrowseListedInvoices(ctx, invoice.BrowseOpts{
			MaxDaysUntilDue: 30,
			Now:             now,
		})
		if err != nil {
			t.Fatalf("browse failed: %v", err)
		}
		if len(got) != 1 || got[0].ID.String() != listed.ID.String() {
			t.Errorf("due-date filter returned wrong set")
		}
	})
}

func TestPagingClampsOutOfRangeOpts(t *testing.T) {
	ctx := context.Background()
	s := New()
	seller := id.NewSellerID()
	invID := id.NewInvoiceID()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		inv := newInvoice()
		inv.SellerID = seller
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice failed: %v", err)
		}
		if err := s.CreateOffer(ctx, newOffer(invID, now.Add(time.Hour))); err != nil {
			t.Fatalf("CreateOffer failed: %v", err)
		}
	}

	tests := []struct {
		name string
		opts invoice.ListOpts
		want int
	}{
		{"negative offset", invoice.ListOpts{Offset: -5}, 3},
		{"negative limit", invoice.ListOpts{Limit: -1}, 3},
		{"offset past end", invoice.ListOpts{Offset: 10}, 0},
		{"limit past end", invoice.ListOpts{Offset: 2, Limit: 10}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListInvoicesBySeller(ctx, seller, tt.opts)
			if err != nil {
				t.Fatalf("ListInvoicesBySeller failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d invoices, want %d", len(got), tt.want)
			}
		})
	}

	t.Run("negative offer offset", func(t *testing.T) {
		got, err := s.ListOffersByInvoice(ctx, invID, offer.ListOpts{Offset: -1})
		if err != nil {
			t.Fatalf("ListOffersByInvoice failed: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("got %d offers, want 3", len(got))
		}
	})
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := newInvoice()
	b := newInvoice()
	b.Status = invoice.StatusListed
	c := newInvoice()
	c.Status = invoice.StatusListed

	for _, inv := range []*invoice.Invoice{a, b, c} {
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice failed: %v", err)
		}
	}

	counts, err := s.CountInvoicesByStatus(ctx)
	if err != nil {
		t.Fatalf("CountInvoicesByStatus failed: %v", err)
	}
	if counts[invoice.StatusDraft] != 1 || counts[invoice.StatusListed] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := s.Ping(ctx); !errors.Is(err, factor.ErrStoreClosed) {
		t.Errorf("Ping after close: got %v, want ErrStoreClosed", err)
	}
	if err := s.CreateInvoice(ctx, newInvoice()); !errors.Is(err, factor.ErrStoreClosed) {
		t.Errorf("CreateInvoice after close: got %v, want ErrStoreClosed", err)
	}
}
