package offer

import (
	"testing"
	"time"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/types"
)

func mkOffer(rate types.BasisPoints, tenure int, pct int64, createdAt time.Time) *Offer {
	o := &Offer{
		Entity:     types.NewEntity(),
		ID:         id.NewOfferID(),
		InvoiceID:  id.NewInvoiceID(),
		LenderID:   id.NewLenderID(),
		Amount:     types.USD(100_000),
		Rate:       rate,
		FundingPct: pct,
		TenureDays: tenure,
		Status:     StatusPending,
	}
	o.CreatedAt = createdAt
	return o
}

func TestSortBestFirstByAnnualCost(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	// 300 bps over 30 days annualizes to 3650; 1200 bps over 365 days
	// stays 1200; 500 bps over 45 days annualizes to 4055.
	cheap := mkOffer(1200, 365, 80, base)
	mid := mkOffer(300, 30, 80, base)
	costly := mkOffer(500, 45, 80, base)

	offers := []*Offer{costly, cheap, mid}
	SortBestFirst(offers)

	want := []*Offer{cheap, mid, costly}
	for i := range want {
		if offers[i].ID.String() != want[i].ID.String() {
			t.Fatalf("position %d: got rate %d/%dd, want rate %d/%dd",
				i, offers[i].Rate, offers[i].TenureDays, want[i].Rate, want[i].TenureDays)
		}
	}
}

func TestSortBestFirstExactTies(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	// 100/10 and 1000/100 have identical annual cost; the floored display
	// value could not distinguish 365*100/10 from 365*1000/100 anyway, but
	// cross multiplication must treat them as exactly equal and fall to
	// the funding percentage tie-break.
	small := mkOffer(100, 10, 70, base)
	big := mkOffer(1000, 100, 90, base)

	offers := []*Offer{small, big}
	SortBestFirst(offers)

	if offers[0].ID.String() != big.ID.String() {
		t.Error("expected larger funding percentage to win the tie")
	}
}

func TestSortBestFirstCreatedAtTie(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	early := mkOffer(1000, 30, 80, base)
	late := mkOffer(1000, 30, 80, base.Add(time.Minute))

	offers := []*Offer{late, early}
	SortBestFirst(offers)

	if offers[0].ID.String() != early.ID.String() {
		t.Error("expected earlier offer to win the tie")
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	first := mkOffer(1000, 30, 80, base)
	second := mkOffer(2000, 40, 70, base.Add(time.Hour))
	third := mkOffer(3000, 20, 60, base.Add(2*time.Hour))

	offers := []*Offer{first, third, second}
	SortNewestFirst(offers)

	want := []*Offer{third, second, first}
	for i := range want {
		if offers[i].ID.String() != want[i].ID.String() {
			t.Fatalf("position %d: wrong offer", i)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	terminals := []Status{StatusAccepted, StatusRejected, StatusWithdrawn, StatusExpired}

	for _, next := range terminals {
		if !StatusPending.CanTransition(next) {
			t.Errorf("pending -> %s should be legal", next)
		}
		for _, from := range terminals {
			if from.CanTransition(next) {
				t.Errorf("%s -> %s should be illegal", from, next)
			}
		}
	}

	if StatusPending.CanTransition(StatusPending) {
		t.Error("pending -> pending should be illegal")
	}
	if StatusPending.CanTransition(Status("limbo")) {
		t.Error("pending -> unknown status should be illegal")
	}
}

func TestExpiredAt(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	o := &Offer{ExpiresAt: now}

	if !o.ExpiredAt(now) {
		t.Error("boundary instant should count as expired")
	}
	if o.ExpiredAt(now.Add(-time.Second)) {
		t.Error("offer should still be live before the boundary")
	}
	if !o.ExpiredAt(now.Add(time.Second)) {
		t.Error("offer should be expired after the boundary")
	}
}

func TestEffectiveAnnualRate(t *testing.T) {
	o := mkOffer(300, 30, 80, time.Now())
	if got := o.EffectiveAnnualRate(); got != 3650 {
		t.Errorf("EffectiveAnnualRate: got %d, want 3650", got)
	}
}
