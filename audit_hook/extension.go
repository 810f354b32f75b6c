// Package audithook bridges Factor lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnInvoiceSubmitted = (*Extension)(nil)
	_ plugin.OnInvoiceListed    = (*Extension)(nil)
	_ plugin.OnInvoiceFunded    = (*Extension)(nil)
	_ plugin.OnInvoiceRepaid    = (*Extension)(nil)
	_ plugin.OnInvoiceSettled   = (*Extension)(nil)
	_ plugin.OnInvoiceRejected  = (*Extension)(nil)
	_ plugin.OnOfferCreated     = (*Extension)(nil)
	_ plugin.OnOfferAccepted    = (*Extension)(nil)
	_ plugin.OnOfferRejected    = (*Extension)(nil)
	_ plugin.OnOfferWithdrawn   = (*Extension)(nil)
	_ plugin.OnOffersExpired    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly; callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Factor lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceSubmitted implements plugin.OnInvoiceSubmitted.
func (e *Extension) OnInvoiceSubmitted(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryCompliance, nil,
		"seller_id", inv.SellerID.String(),
		"anchor_id", inv.AnchorID.String(),
		"face_amount", inv.FaceAmount.Amount,
		"currency", inv.FaceAmount.Currency,
	)
}

// OnInvoiceListed implements plugin.OnInvoiceListed.
func (e *Extension) OnInvoiceListed(ctx context.Context, inv *invoice.Invoice) error {
	meta := []any{
		"seller_id", inv.SellerID.String(),
		"face_amount", inv.FaceAmount.Amount,
	}
	if inv.Terms != nil {
		meta = append(meta,
			"max_funding", inv.Terms.MaxFunding.Amount,
			"recommended_rate", int64(inv.Terms.RecommendedRate),
		)
	}
	return e.record(ctx, ActionInvoiceListed, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryListing, nil, meta...)
}

// OnInvoiceFunded implements plugin.OnInvoiceFunded.
func (e *Extension) OnInvoiceFunded(ctx context.Context, inv *invoice.Invoice, winner *offer.Offer) error {
	return e.record(ctx, ActionInvoiceFunded, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFunding, nil,
		"offer_id", winner.ID.String(),
		"lender_id", winner.LenderID.String(),
		"amount", winner.Amount.Amount,
		"rate", int64(winner.Rate),
	)
}

// OnInvoiceRepaid implements plugin.OnInvoiceRepaid.
func (e *Extension) OnInvoiceRepaid(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceRepaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryRepayment, nil,
		"anchor_id", inv.AnchorID.String(),
	)
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (e *Extension) OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceSettled, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryRepayment, nil,
		"seller_id", inv.SellerID.String(),
	)
}

// OnInvoiceRejected implements plugin.OnInvoiceRejected.
func (e *Extension) OnInvoiceRejected(ctx context.Context, inv *invoice.Invoice, reason string) error {
	return e.record(ctx, ActionInvoiceRejected, SeverityWarning, OutcomeFailure,
		ResourceInvoice, inv.ID.String(), CategoryCompliance, nil,
		"rejected_by", inv.RejectedBy,
		"reject_reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Offer lifecycle hooks
// ──────────────────────────────────────────────────

// OnOfferCreated implements plugin.OnOfferCreated.
func (e *Extension) OnOfferCreated(ctx context.Context, o *offer.Offer) error {
	return e.record(ctx, ActionOfferCreated, SeverityInfo, OutcomeSuccess,
		ResourceOffer, o.ID.String(), CategoryFunding, nil,
		"invoice_id", o.InvoiceID.String(),
		"lender_id", o.LenderID.String(),
		"amount", o.Amount.Amount,
		"rate", int64(o.Rate),
		"tenure_days", o.TenureDays,
	)
}

// OnOfferAccepted implements plugin.OnOfferAccepted.
func (e *Extension) OnOfferAccepted(ctx context.Context, o *offer.Offer) error {
	return e.record(ctx, ActionOfferAccepted, SeverityInfo, OutcomeSuccess,
		ResourceOffer, o.ID.String(), CategoryFunding, nil,
		"invoice_id", o.InvoiceID.String(),
		"lender_id", o.LenderID.String(),
	)
}

// OnOfferRejected implements plugin.OnOfferRejected.
func (e *Extension) OnOfferRejected(ctx context.Context, o *offer.Offer, reason string) error {
	return e.record(ctx, ActionOfferRejected, SeverityInfo, OutcomeSuccess,
		ResourceOffer, o.ID.String(), CategoryFunding, nil,
		"invoice_id", o.InvoiceID.String(),
		"reject_reason", reason,
	)
}

// OnOfferWithdrawn implements plugin.OnOfferWithdrawn.
func (e *Extension) OnOfferWithdrawn(ctx context.Context, o *offer.Offer) error {
	return e.record(ctx, ActionOfferWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceOffer, o.ID.String(), CategoryFunding, nil,
		"invoice_id", o.InvoiceID.String(),
		"lender_id", o.LenderID.String(),
	)
}

// OnOffersExpired implements plugin.OnOffersExpired.
func (e *Extension) OnOffersExpired(ctx context.Context, count int, elapsed time.Duration) error {
	if count == 0 {
		// Quiet sweeps would flood the trail.
		return nil
	}
	return e.record(ctx, ActionOffersExpired, SeverityInfo, OutcomeSuccess,
		ResourceOffer, "", CategoryFunding, nil,
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
