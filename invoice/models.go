package invoice

import (
	"time"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/terms"
	"github.com/xraph/factor/types"
)

// Status is the lifecycle state of an invoice. The lifecycle is strictly
// forward, with rejection reachable from every non-terminal state:
//
//	draft → submitted → anchor_approved → admin_verified → listed →
//	funded → repaid → settled
type Status string

const (
	StatusDraft          Status = "draft"
	StatusSubmitted      Status = "submitted"
	StatusAnchorApproved Status = "anchor_approved"
	StatusAdminVerified  Status = "admin_verified"
	StatusListed         Status = "listed"
	StatusFunded         Status = "funded"
	StatusRepaid         Status = "repaid"
	StatusSettled        Status = "settled"
	StatusRejected       Status = "rejected"
)

// forward is the legal next state for each non-terminal status.
var forward = map[Status]Status{
	StatusDraft:          StatusSubmitted,
	StatusSubmitted:      StatusAnchorApproved,
	StatusAnchorApproved: StatusAdminVerified,
	StatusAdminVerified:  StatusListed,
	StatusListed:         StatusFunded,
	StatusFunded:         StatusRepaid,
	StatusRepaid:         StatusSettled,
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusRejected
}

// CanTransition reports whether moving from s to next is legal. The
// relation is total: every (state, state) pair answers true or false, so
// call sites never fall back to ad hoc string comparisons.
func (s Status) CanTransition(next Status) bool {
	if next == StatusRejected {
		// Rejection is legal from any non-terminal state, but funded
		// invoices are past the point of no return.
		switch s {
		case StatusFunded, StatusRepaid, StatusSettled, StatusRejected:
			return false
		}
		return true
	}
	return forward[s] == next
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAnchorApproved, StatusAdminVerified,
		StatusListed, StatusFunded, StatusRepaid, StatusSettled, StatusRejected:
		return true
	}
	return false
}

// Funding records which offer funded an invoice. It is written exactly
// once, by the acceptance protocol, and never mutated afterwards.
type Funding struct {
	OfferID  id.OfferID  `json:"offer_id"`
	LenderID id.LenderID `json:"lender_id"`
	At       time.Time   `json:"at"`
}

// Invoice is an anchor-payable trade invoice moving through the
// marketplace lifecycle. Status and FundedBy are owned by the engine's
// invoice lifecycle methods; every other component reads snapshots.
type Invoice struct {
	types.Entity
	ID         id.InvoiceID `json:"id"`
	SellerID   id.SellerID  `json:"seller_id"`
	AnchorID   id.AnchorID  `json:"anchor_id"`
	FaceAmount types.Money  `json:"face_amount"`
	IssueDate  time.Time    `json:"issue_date"`
	DueDate    time.Time    `json:"due_date"`
	Reference  string       `json:"reference,omitempty"` // seller's own invoice number

	Status Status       `json:"status"`
	Terms  *terms.Terms `json:"terms,omitempty"` // set once at verification

	// FundedBy is non-nil exactly when Status is funded, repaid or settled.
	FundedBy *Funding `json:"funded_by,omitempty"`

	ListedAt  *time.Time `json:"listed_at,omitempty"`
	RepaidAt  *time.Time `json:"repaid_at,omitempty"`
	SettledAt *time.Time `json:"settled_at,omitempty"`

	AnchorNotes  string `json:"anchor_notes,omitempty"`
	AdminNotes   string `json:"admin_notes,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
	RejectedBy   string `json:"rejected_by,omitempty"` // role that rejected

	Metadata map[string]string `json:"metadata,omitempty"`
}

// FundingConsistent reports whether the FundedBy reference agrees with the
// status: set exactly when the invoice is funded, repaid or settled.
func (inv *Invoice) FundingConsistent() bool {
	funded := inv.Status == StatusFunded || inv.Status == StatusRepaid || inv.Status == StatusSettled
	return funded == (inv.FundedBy != nil)
}

// DaysUntilDue returns the invoice's remaining runway at the given time.
func (inv *Invoice) DaysUntilDue(now time.Time) int {
	return terms.DaysUntilDue(inv.DueDate, now)
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state behind the engine's back.
func (inv *Invoice) Clone() *Invoice {
	out := *inv
	if inv.Terms != nil {
		t := *inv.Terms
		out.Terms = &t
	}
	if inv.FundedBy != nil {
		f := *inv.FundedBy
		out.FundedBy = &f
	}
	out.ListedAt = cloneTime(inv.ListedAt)
	out.RepaidAt = cloneTime(inv.RepaidAt)
	out.SettledAt = cloneTime(inv.SettledAt)
	if inv.Metadata != nil {
		out.Metadata = make(map[string]string, len(inv.Metadata))
		for k, v := range inv.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
