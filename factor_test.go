package factor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	factor "github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/party"
	"github.com/xraph/factor/store"
	"github.com/xraph/factor/store/memory"
	"github.com/xraph/factor/terms"
	"github.com/xraph/factor/types"
)

// fixture wires a marketplace on the memory store with a pinned clock and
// one actor per role.
type fixture struct {
	m      *factor.Marketplace
	now    time.Time
	seller party.Actor
	lender party.Actor
	anchor party.Actor
	admin  party.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.New())
}

func newFixtureWith(t *testing.T, s store.Store) *fixture {
	t.Helper()

	f := &fixture{
		now:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		seller: party.Seller(id.NewSellerID()),
		lender: party.Lender(id.NewLenderID()),
		anchor: party.Anchor(id.NewAnchorID()),
		admin:  party.Admin(id.NewAdminID()),
	}
	f.m = factor.New(s,
		factor.WithClock(func() time.Time { return f.now }),
		factor.WithSweepConfig(time.Hour, 100),
	)

	ctx := context.Background()
	if err := f.m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := f.m.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	})

	return f
}

// listInvoice drives an invoice from draft to listed: submit, anchor
// approval, then admin verification at the given advance percentage.
func (f *fixture) listInvoice(t *testing.T, face types.Money, advancePct int64) *invoice.Invoice {
	t.Helper()
	ctx := context.Background()

	inv := &invoice.Invoice{
		AnchorID:   f.anchor.ID,
		FaceAmount: face,
		IssueDate:  f.now.AddDate(0, 0, -5),
		DueDate:    f.now.AddDate(0, 0, 40),
		Reference:  "INV-2026-0042",
	}
	if err := f.m.CreateInvoice(ctx, f.seller, inv); err != nil {
		t.Fatal(err)
	}
	if _, err := f.m.SubmitInvoice(ctx, f.seller, inv.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.m.AnchorReview(ctx, f.anchor, inv.ID, true, "receivable confirmed"); err != nil {
		t.Fatal(err)
	}
	listed, err := f.m.AdminReview(ctx, f.admin, inv.ID, true, terms.Input{
		AdvancePct:      advancePct,
		RecommendedRate: types.BpsFromPercent(12),
	}, "verified against anchor statement")
	if err != nil {
		t.Fatal(err)
	}
	return listed
}

func TestInvoiceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(1_000_000), 80)

	if inv.Status != invoice.StatusListed {
		t.Fatalf("status = %s, want listed", inv.Status)
	}
	if inv.ListedAt == nil || !inv.ListedAt.Equal(f.now) {
		t.Errorf("ListedAt = %v, want %v", inv.ListedAt, f.now)
	}
	if inv.Terms == nil {
		t.Fatal("listed invoice has no terms")
	}
	if got, want := inv.Terms.MaxFunding, types.USD(800_000); !got.Equal(want) {
		t.Errorf("MaxFunding = %v, want %v", got, want)
	}
	// 40 days runway minus the 7-day buffer, under the 45-day policy cap.
	if inv.Terms.MaxTenureDays != 33 {
		t.Errorf("MaxTenureDays = %d, want 33", inv.Terms.MaxTenureDays)
	}

	// Two competing offers.
	rival := party.Lender(id.NewLenderID())
	winning := &offer.Offer{
		InvoiceID:  inv.ID,
		FundingPct: 80,
		Rate:       types.BpsFromPercent(10),
		TenureDays: 30,
	}
	if err := f.m.CreateOffer(ctx, f.lender, winning); err != nil {
		t.Fatal(err)
	}
	losing := &offer.Offer{
		InvoiceID:  inv.ID,
		FundingPct: 70,
		Rate:       types.BpsFromPercent(14),
		TenureDays: 30,
	}
	if err := f.m.CreateOffer(ctx, rival, losing); err != nil {
		t.Fatal(err)
	}

	funded, err := f.m.AcceptOffer(ctx, f.seller, winning.ID)
	if err != nil {
		t.Fatal(err)
	}
	if funded.Status != invoice.StatusFunded {
		t.Fatalf("status = %s, want funded", funded.Status)
	}
	if !funded.FundingConsistent() {
		t.Error("funded invoice has inconsistent FundedBy")
	}
	if funded.FundedBy.OfferID.String() != winning.ID.String() {
		t.Errorf("FundedBy.OfferID = %s, want %s", funded.FundedBy.OfferID, winning.ID)
	}
	if funded.FundedBy.LenderID.String() != f.lender.ID.String() {
		t.Errorf("FundedBy.LenderID = %s, want %s", funded.FundedBy.LenderID, f.lender.ID)
	}

	won, err := f.m.GetOffer(ctx, winning.ID)
	if err != nil {
		t.Fatal(err)
	}
	if won.Status != offer.StatusAccepted {
		t.Errorf("winner status = %s, want accepted", won.Status)
	}
	if won.AcceptedAt == nil {
		t.Error("winner has no AcceptedAt")
	}

	lost, err := f.m.GetOffer(ctx, losing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if lost.Status != offer.StatusRejected {
		t.Errorf("sibling status = %s, want rejected", lost.Status)
	}
	if lost.ResolvedReason != offer.AutoRejectReason {
		t.Errorf("sibling reason = %q, want %q", lost.ResolvedReason, offer.AutoRejectReason)
	}

	// Repayment and settlement close the lifecycle.
	repaid, err := f.m.RepayInvoice(ctx, f.anchor, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if repaid.Status != invoice.StatusRepaid || repaid.RepaidAt == nil {
		t.Fatalf("repaid status = %s, RepaidAt = %v", repaid.Status, repaid.RepaidAt)
	}
	settled, err := f.m.SettleInvoice(ctx, f.admin, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if settled.Status != invoice.StatusSettled || settled.SettledAt == nil {
		t.Fatalf("settled status = %s, SettledAt = %v", settled.Status, settled.SettledAt)
	}
	if !settled.FundingConsistent() {
		t.Error("settled invoice has inconsistent FundedBy")
	}

	stats, err := f.m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Invoices[invoice.StatusSettled] != 1 {
		t.Errorf("settled invoices = %d, want 1", stats.Invoices[invoice.StatusSettled])
	}
	if stats.Offers[offer.StatusAccepted] != 1 || stats.Offers[offer.StatusRejected] != 1 {
		t.Errorf("offer stats = %v", stats.Offers)
	}
}

func TestAcceptOfferExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(5_000_000), 90)

	const bidders = 8
	offers := make([]*offer.Offer, bidders)
	for i := range offers {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			FundingPct: 50 + int64(i*5),
			Rate:       types.BpsFromPercent(int64(8 + i)),
			TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), o); err != nil {
			t.Fatal(err)
		}
		offers[i] = o
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []id.OfferID
	)
	for _, o := range offers {
		wg.Add(1)
		go func(offerID id.OfferID) {
			defer wg.Done()
			_, err := f.m.AcceptOffer(ctx, f.seller, offerID)
			switch {
			case err == nil:
				mu.Lock()
				winners = append(winners, offerID)
				mu.Unlock()
			case errors.Is(err, factor.ErrAlreadyFunded):
				// expected for every loser
			default:
				t.Errorf("accept %s: unexpected error %v", offerID, err)
			}
		}(o.ID)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(winners))
	}

	funded, err := f.m.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if funded.Status != invoice.StatusFunded {
		t.Fatalf("status = %s, want funded", funded.Status)
	}
	if funded.FundedBy.OfferID.String() != winners[0].String() {
		t.Errorf("FundedBy.OfferID = %s, want %s", funded.FundedBy.OfferID, winners[0])
	}

	accepted, rejected := 0, 0
	for _, o := range offers {
		got, err := f.m.GetOffer(ctx, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		switch got.Status {
		case offer.StatusAccepted:
			accepted++
		case offer.StatusRejected:
			rejected++
			if got.ResolvedReason != offer.AutoRejectReason {
				t.Errorf("loser %s reason = %q", got.ID, got.ResolvedReason)
			}
		default:
			t.Errorf("offer %s left in status %s", got.ID, got.Status)
		}
	}
	if accepted != 1 || rejected != bidders-1 {
		t.Errorf("accepted = %d, rejected = %d, want 1 and %d", accepted, rejected, bidders-1)
	}
}

func TestAcceptResolvedOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("AutoRejectedByRivalFunding", func(t *testing.T) {
		inv := f.listInvoice(t, types.USD(1_000_000), 80)
		rival := party.Lender(id.NewLenderID())

		winner := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 80,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		}
		loser := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 70,
			Rate: types.BpsFromPercent(12), TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, winner); err != nil {
			t.Fatal(err)
		}
		if err := f.m.CreateOffer(ctx, rival, loser); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.AcceptOffer(ctx, f.seller, winner.ID); err != nil {
			t.Fatal(err)
		}

		// The loser was auto-rejected by the winning acceptance; a late
		// accept on it reports the invoice as taken.
		if _, err := f.m.AcceptOffer(ctx, f.seller, loser.ID); !errors.Is(err, factor.ErrAlreadyFunded) {
			t.Errorf("accept auto-rejected offer = %v, want ErrAlreadyFunded", err)
		}
	})

	t.Run("WithdrawnByLender", func(t *testing.T) {
		inv := f.listInvoice(t, types.USD(1_000_000), 80)
		o := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 80,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.WithdrawOffer(ctx, f.lender, o.ID, "pricing error"); err != nil {
			t.Fatal(err)
		}

		if _, err := f.m.AcceptOffer(ctx, f.seller, o.ID); !errors.Is(err, factor.ErrOfferNotPending) {
			t.Errorf("accept withdrawn offer = %v, want ErrOfferNotPending", err)
		}
	})
}

// withdrawDuringAccept slips a withdrawal write in between the engine's
// offer read and its accepted write, forcing the version fence to trip on
// the first attempt.
type withdrawDuringAccept struct {
	store.Store
	injected bool
}

func (w *withdrawDuringAccept) UpdateOffer(ctx context.Context, o *offer.Offer) error {
	if o.Status == offer.StatusAccepted && !w.injected {
		w.injected = true
		fresh, err := w.Store.GetOffer(ctx, o.ID)
		if err != nil {
			return err
		}
		fresh.Status = offer.StatusWithdrawn
		fresh.ResolvedReason = "pricing error"
		if err := w.Store.UpdateOffer(ctx, fresh); err != nil {
			return err
		}
	}
	return w.Store.UpdateOffer(ctx, o)
}

func TestAcceptOutrunsConcurrentWithdraw(t *testing.T) {
	racer := &withdrawDuringAccept{Store: memory.New()}
	f := newFixtureWith(t, racer)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(1_000_000), 80)
	o := &offer.Offer{
		InvoiceID: inv.ID, FundingPct: 80,
		Rate: types.BpsFromPercent(10), TenureDays: 30,
	}
	if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
		t.Fatal(err)
	}

	funded, err := f.m.AcceptOffer(ctx, f.seller, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !racer.injected {
		t.Fatal("withdrawal was never injected")
	}

	// The funding commit decides the winner: the interleaved withdrawal
	// is rewritten and the offer row ends consistent with the invoice.
	got, err := f.m.GetOffer(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != offer.StatusAccepted {
		t.Errorf("offer status = %s, want accepted", got.Status)
	}
	if got.AcceptedAt == nil || got.ResolvedReason != "" {
		t.Errorf("offer not fully re-accepted: acceptedAt=%v reason=%q", got.AcceptedAt, got.ResolvedReason)
	}
	if funded.FundedBy == nil || funded.FundedBy.OfferID.String() != o.ID.String() {
		t.Errorf("invoice not funded by the accepted offer")
	}
}

func TestOfferAmountClamping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Face 1,000,000 at 80% advance caps funding at 800,000.
	inv := f.listInvoice(t, types.USD(1_000_000), 80)

	t.Run("PercentAboveCeiling", func(t *testing.T) {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			FundingPct: 90,
			Rate:       types.BpsFromPercent(10),
			TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
			t.Fatal(err)
		}
		if want := types.USD(800_000); !o.Amount.Equal(want) {
			t.Errorf("Amount = %v, want %v", o.Amount, want)
		}
		if o.FundingPct != 80 {
			t.Errorf("FundingPct = %d, want 80", o.FundingPct)
		}
	})

	t.Run("ExplicitAmountAboveCeiling", func(t *testing.T) {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			Amount:     types.USD(950_000),
			Rate:       types.BpsFromPercent(10),
			TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), o); err != nil {
			t.Fatal(err)
		}
		if want := types.USD(800_000); !o.Amount.Equal(want) {
			t.Errorf("Amount = %v, want %v", o.Amount, want)
		}
		if o.FundingPct != 80 {
			t.Errorf("FundingPct = %d, want 80", o.FundingPct)
		}
	})

	t.Run("AmountWithinCeiling", func(t *testing.T) {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			Amount:     types.USD(450_000),
			Rate:       types.BpsFromPercent(10),
			TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), o); err != nil {
			t.Fatal(err)
		}
		if want := types.USD(450_000); !o.Amount.Equal(want) {
			t.Errorf("Amount = %v, want %v", o.Amount, want)
		}
		if o.FundingPct != 45 {
			t.Errorf("FundingPct = %d, want 45", o.FundingPct)
		}
	})

	t.Run("DefaultValidityWindow", func(t *testing.T) {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			FundingPct: 50,
			Rate:       types.BpsFromPercent(10),
			TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), o); err != nil {
			t.Fatal(err)
		}
		if want := f.now.Add(48 * time.Hour); !o.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", o.ExpiresAt, want)
		}
	})
}

func TestCreateOfferValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(1_000_000), 80)

	tests := []struct {
		name    string
		actor   party.Actor
		offer   *offer.Offer
		wantErr error
	}{
		{
			name:  "SelfFunding",
			actor: party.Actor{ID: f.seller.ID, Role: party.RoleLender},
			offer: &offer.Offer{
				InvoiceID: inv.ID, FundingPct: 50,
				Rate: types.BpsFromPercent(10), TenureDays: 30,
			},
			wantErr: factor.ErrSelfFunding,
		},
		{
			name:  "RateAbovePolicy",
			actor: f.lender,
			offer: &offer.Offer{
				InvoiceID: inv.ID, FundingPct: 50,
				Rate: types.BpsFromPercent(60), TenureDays: 30,
			},
			wantErr: factor.ErrRateOutOfBounds,
		},
		{
			name:  "TenureBeyondWindow",
			actor: f.lender,
			offer: &offer.Offer{
				InvoiceID: inv.ID, FundingPct: 50,
				Rate: types.BpsFromPercent(10), TenureDays: 39,
			},
			wantErr: factor.ErrTermsExceedLimits,
		},
		{
			name:  "NotALender",
			actor: f.anchor,
			offer: &offer.Offer{
				InvoiceID: inv.ID, FundingPct: 50,
				Rate: types.BpsFromPercent(10), TenureDays: 30,
			},
			wantErr: factor.ErrForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.m.CreateOffer(ctx, tt.actor, tt.offer)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateOffer() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("InvoiceNotListed", func(t *testing.T) {
		draft := &invoice.Invoice{
			AnchorID:   f.anchor.ID,
			FaceAmount: types.USD(500_000),
			IssueDate:  f.now.AddDate(0, 0, -2),
			DueDate:    f.now.AddDate(0, 0, 40),
		}
		if err := f.m.CreateInvoice(ctx, f.seller, draft); err != nil {
			t.Fatal(err)
		}
		err := f.m.CreateOffer(ctx, f.lender, &offer.Offer{
			InvoiceID: draft.ID, FundingPct: 50,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		})
		if !errors.Is(err, factor.ErrInvoiceNotListed) {
			t.Errorf("CreateOffer() = %v, want ErrInvoiceNotListed", err)
		}
	})
}

func TestExpireDueOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(1_000_000), 80)

	short := &offer.Offer{
		InvoiceID:  inv.ID,
		FundingPct: 60,
		Rate:       types.BpsFromPercent(10),
		TenureDays: 30,
		ExpiresAt:  f.now.Add(time.Hour),
	}
	if err := f.m.CreateOffer(ctx, f.lender, short); err != nil {
		t.Fatal(err)
	}
	long := &offer.Offer{
		InvoiceID:  inv.ID,
		FundingPct: 70,
		Rate:       types.BpsFromPercent(11),
		TenureDays: 30,
		ExpiresAt:  f.now.Add(72 * time.Hour),
	}
	if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), long); err != nil {
		t.Fatal(err)
	}

	f.now = f.now.Add(2 * time.Hour)

	count, err := f.m.ExpireDueOffers(ctx, f.now)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expired = %d, want 1", count)
	}

	// Idempotent: the resolved offer is not swept twice.
	count, err = f.m.ExpireDueOffers(ctx, f.now)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("second sweep expired = %d, want 0", count)
	}

	got, err := f.m.GetOffer(ctx, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != offer.StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}

	// A swept offer cannot be accepted.
	if _, err := f.m.AcceptOffer(ctx, f.seller, short.ID); !errors.Is(err, factor.ErrOfferNotPending) {
		t.Errorf("accept swept offer = %v, want ErrOfferNotPending", err)
	}

	// A lapsed but not yet swept offer is refused at acceptance time.
	f.now = f.now.Add(100 * time.Hour)
	if _, err := f.m.AcceptOffer(ctx, f.seller, long.ID); !errors.Is(err, factor.ErrOfferExpired) {
		t.Errorf("accept lapsed offer = %v, want ErrOfferExpired", err)
	}
}

func TestLifecycleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("SellerCannotRepay", func(t *testing.T) {
		inv := f.listInvoice(t, types.USD(1_000_000), 80)
		o := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 80,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.AcceptOffer(ctx, f.seller, o.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.RepayInvoice(ctx, f.seller, inv.ID); !errors.Is(err, factor.ErrForbidden) {
			t.Errorf("seller repay = %v, want ErrForbidden", err)
		}
	})

	t.Run("CannotRejectFunded", func(t *testing.T) {
		inv := f.listInvoice(t, types.USD(2_000_000), 80)
		o := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 80,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.AcceptOffer(ctx, f.seller, o.ID); err != nil {
			t.Fatal(err)
		}
		_, err := f.m.RejectInvoice(ctx, f.admin, inv.ID, "discovered to be fraudulent")
		if !errors.Is(err, factor.ErrInvalidTransition) {
			t.Errorf("reject funded = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("AcceptAfterInvoiceRejected", func(t *testing.T) {
		inv := f.listInvoice(t, types.USD(3_000_000), 80)
		o := &offer.Offer{
			InvoiceID: inv.ID, FundingPct: 80,
			Rate: types.BpsFromPercent(10), TenureDays: 30,
		}
		if err := f.m.CreateOffer(ctx, f.lender, o); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.RejectInvoice(ctx, f.admin, inv.ID, "anchor disputes the receivable"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.AcceptOffer(ctx, f.seller, o.ID); !errors.Is(err, factor.ErrInvoiceNotListed) {
			t.Errorf("accept on rejected invoice = %v, want ErrInvoiceNotListed", err)
		}
		got, err := f.m.GetInvoice(ctx, inv.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != invoice.StatusRejected || got.FundedBy != nil {
			t.Errorf("invoice mutated by failed accept: status=%s fundedBy=%v", got.Status, got.FundedBy)
		}
	})

	t.Run("ShortRejectReason", func(t *testing.T) {
		inv := &invoice.Invoice{
			AnchorID:   f.anchor.ID,
			FaceAmount: types.USD(100_000),
			IssueDate:  f.now.AddDate(0, 0, -2),
			DueDate:    f.now.AddDate(0, 0, 40),
		}
		if err := f.m.CreateInvoice(ctx, f.seller, inv); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.SubmitInvoice(ctx, f.seller, inv.ID); err != nil {
			t.Fatal(err)
		}
		_, err := f.m.AnchorReview(ctx, f.anchor, inv.ID, false, "bad")
		if !errors.Is(err, factor.ErrInvalidInput) {
			t.Errorf("short reason = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("AnchorRejection", func(t *testing.T) {
		inv := &invoice.Invoice{
			AnchorID:   f.anchor.ID,
			FaceAmount: types.USD(100_000),
			IssueDate:  f.now.AddDate(0, 0, -2),
			DueDate:    f.now.AddDate(0, 0, 40),
		}
		if err := f.m.CreateInvoice(ctx, f.seller, inv); err != nil {
			t.Fatal(err)
		}
		if _, err := f.m.SubmitInvoice(ctx, f.seller, inv.ID); err != nil {
			t.Fatal(err)
		}
		rejected, err := f.m.AnchorReview(ctx, f.anchor, inv.ID, false, "goods were never delivered")
		if err != nil {
			t.Fatal(err)
		}
		if rejected.Status != invoice.StatusRejected {
			t.Errorf("status = %s, want rejected", rejected.Status)
		}
		if rejected.RejectedBy != string(party.RoleAnchor) {
			t.Errorf("RejectedBy = %q, want anchor", rejected.RejectedBy)
		}
	})
}

func TestOfferRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.listInvoice(t, types.USD(1_000_000), 100)

	// Cheapest by effective annual rate is the short-tenure 10% offer.
	quotes := []struct {
		pct    int64
		rate   int64
		tenure int
	}{
		{80, 14, 30},
		{80, 10, 30},
		{90, 12, 32},
	}
	ids := make([]id.OfferID, len(quotes))
	for i, q := range quotes {
		o := &offer.Offer{
			InvoiceID:  inv.ID,
			FundingPct: q.pct,
			Rate:       types.BpsFromPercent(q.rate),
			TenureDays: q.tenure,
		}
		if err := f.m.CreateOffer(ctx, party.Lender(id.NewLenderID()), o); err != nil {
			t.Fatal(err)
		}
		ids[i] = o.ID
	}

	best, err := f.m.OffersForInvoice(ctx, inv.ID, factor.RankBest, offer.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(best) != 3 {
		t.Fatalf("offers = %d, want 3", len(best))
	}
	if best[0].ID.String() != ids[1].String() {
		t.Errorf("best offer = %s (rate %v), want %s", best[0].ID, best[0].Rate, ids[1])
	}
	for i := 1; i < len(best); i++ {
		if best[i-1].EffectiveAnnualRate() > best[i].EffectiveAnnualRate() {
			t.Errorf("offers not sorted by effective rate at %d", i)
		}
	}
}
