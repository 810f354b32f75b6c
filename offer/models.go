package offer

import (
	"time"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/types"
)

// Status is the lifecycle state of an offer. Pending is the only live
// state; the other four are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
)

// AutoRejectReason is recorded on sibling offers rejected as part of a
// successful acceptance elsewhere on the same invoice.
const AutoRejectReason = "invoice funded by another offer"

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool { return s != StatusPending && s.Valid() }

// CanTransition reports whether moving from s to next is legal. Only
// pending offers move, and only into a terminal state.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next != StatusPending && next.Valid()
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusWithdrawn, StatusExpired:
		return true
	}
	return false
}

// Offer is a lender's funding bid against one listed invoice. Status is
// owned by the engine's offer lifecycle methods; every other component
// reads snapshots.
type Offer struct {
	types.Entity
	ID        id.OfferID   `json:"id"`
	InvoiceID id.InvoiceID `json:"invoice_id"`
	LenderID  id.LenderID  `json:"lender_id"`

	// Amount is the advance offered, at most the invoice's max funding.
	Amount types.Money `json:"amount"`

	// Rate is the interest rate quoted over the offer's tenure.
	Rate types.BasisPoints `json:"rate"`

	// FundingPct is Amount as a floored percentage of the invoice face
	// value. Kept consistent with Amount whenever clamping adjusts either.
	FundingPct int64 `json:"funding_pct"`

	// TenureDays is the repayment horizon, at most the invoice's max tenure.
	TenureDays int `json:"tenure_days"`

	TermsText string `json:"terms_text,omitempty"` // free-text commercial terms
	Notes     string `json:"notes,omitempty"`

	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`

	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	ResolvedReason string     `json:"resolved_reason,omitempty"` // withdraw/reject reason
}

// ExpiredAt reports whether the offer's validity window has lapsed at the
// given instant. The boundary counts as expired.
func (o *Offer) ExpiredAt(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// EffectiveAnnualRate is the tenure-normalized cost of the offer:
// rate * 365 / tenureDays, floored. Used for competitive ranking.
func (o *Offer) EffectiveAnnualRate() types.BasisPoints {
	return o.Rate.Annualize(o.TenureDays)
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state behind the engine's back.
func (o *Offer) Clone() *Offer {
	out := *o
	if o.AcceptedAt != nil {
		t := *o.AcceptedAt
		out.AcceptedAt = &t
	}
	return &out
}
