package factor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/party"
	"github.com/xraph/factor/types"
)

// ──────────────────────────────────────────────────
// Offer lifecycle
// ──────────────────────────────────────────────────

// CreateOffer places a lender's funding bid against a listed invoice.
//
// Either Amount or FundingPct may be supplied; the missing one is derived
// from the other against the invoice face value, flooring in the
// marketplace's favor. An amount above the invoice's funding ceiling is
// clamped down to it, and the percentage recomputed to match.
func (m *Marketplace) CreateOffer(ctx context.Context, actor party.Actor, o *offer.Offer) error {
	if !actor.Is(party.RoleLender) {
		return ErrForbidden
	}

	inv, err := m.store.GetInvoice(ctx, o.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status != invoice.StatusListed {
		if inv.Status == invoice.StatusFunded {
			return ErrAlreadyFunded
		}
		return ErrInvoiceNotListed
	}
	if inv.Terms == nil {
		return ErrMissingTerms
	}
	if actor.Owns(inv.SellerID) {
		return ErrSelfFunding
	}

	if o.Rate.IsNegative() || o.Rate > m.cfg.Policy.MaxRate {
		return ErrRateOutOfBounds
	}
	if o.TenureDays < 1 {
		return ValidationError{Field: "tenure_days", Message: "tenure must be at least one day"}
	}
	if o.TenureDays > inv.Terms.MaxTenureDays {
		return ErrTermsExceedLimits
	}

	if err := m.resolveOfferAmount(o, inv); err != nil {
		return err
	}

	now := m.clock()
	if o.ExpiresAt.IsZero() {
		o.ExpiresAt = now.Add(m.cfg.OfferValidity)
	}
	if !o.ExpiresAt.After(now) {
		return ValidationError{Field: "expires_at", Message: "expiry must be in the future"}
	}

	if o.ID.IsNil() {
		o.ID = id.NewOfferID()
	}
	o.LenderID = actor.ID
	o.Entity = types.NewEntity()
	o.Status = offer.StatusPending

	if err := m.store.CreateOffer(ctx, o); err != nil {
		return err
	}

	m.plugins.EmitOfferCreated(ctx, o)
	m.logger.Info("offer created",
		"offer_id", o.ID,
		"invoice_id", o.InvoiceID,
		"amount", o.Amount,
		"rate", o.Rate,
		"tenure_days", o.TenureDays,
	)
	return nil
}

// resolveOfferAmount fills in the missing side of the amount/percentage
// pair and clamps the result to the invoice's funding ceiling.
func (m *Marketplace) resolveOfferAmount(o *offer.Offer, inv *invoice.Invoice) error {
	face := inv.FaceAmount
	maxFunding := inv.Terms.MaxFunding

	if o.Amount.IsZero() {
		if o.FundingPct < 1 || o.FundingPct > 100 {
			return ValidationError{Field: "funding_pct", Message: "funding percentage must be between 1 and 100"}
		}
		o.Amount = face.Percent(o.FundingPct)
	}
	if !o.Amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "offer amount must be positive"}
	}
	if o.Amount.Currency != face.Currency {
		return ValidationError{Field: "amount", Message: "offer currency must match the invoice"}
	}

	if o.Amount.GreaterThan(maxFunding) {
		o.Amount = maxFunding
	}
	o.FundingPct = o.Amount.PercentOf(face)
	return nil
}

// WithdrawOffer retracts the calling lender's pending offer.
func (m *Marketplace) WithdrawOffer(ctx context.Context, actor party.Actor, offerID id.OfferID, reason string) (*offer.Offer, error) {
	o, err := m.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleLender) || !actor.Owns(o.LenderID) {
		return nil, ErrForbidden
	}

	if err := m.transitionOffer(o, offer.StatusWithdrawn); err != nil {
		return nil, err
	}
	o.ResolvedReason = reason
	if err := m.store.UpdateOffer(ctx, o); err != nil {
		return nil, err
	}

	m.plugins.EmitOfferWithdrawn(ctx, o)
	m.logger.Info("offer withdrawn", "offer_id", o.ID, "invoice_id", o.InvoiceID)
	return o, nil
}

// RejectOffer declines a pending offer on behalf of the invoice's seller.
func (m *Marketplace) RejectOffer(ctx context.Context, actor party.Actor, offerID id.OfferID, reason string) (*offer.Offer, error) {
	o, err := m.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	inv, err := m.store.GetInvoice(ctx, o.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleSeller) || !actor.Owns(inv.SellerID) {
		return nil, ErrForbidden
	}
	if len(strings.TrimSpace(reason)) < minReasonLen {
		return nil, ValidationError{Field: "reason", Message: "rejection reason must be at least 10 characters"}
	}

	if err := m.transitionOffer(o, offer.StatusRejected); err != nil {
		return nil, err
	}
	o.ResolvedReason = reason
	if err := m.store.UpdateOffer(ctx, o); err != nil {
		return nil, err
	}

	m.plugins.EmitOfferRejected(ctx, o, reason)
	m.logger.Info("offer rejected", "offer_id", o.ID, "invoice_id", o.InvoiceID)
	return o, nil
}

// AcceptOffer is the seller accepting one offer on their listed invoice.
//
// The invoice write is the commit point: the listed→funded transition is
// fenced on the invoice's version token, so of any number of concurrent
// acceptances exactly one lands. A version conflict earns one retry
// against a fresh read; if the refreshed invoice is no longer listed the
// race was lost and the losing offer is left untouched. Only after the
// invoice is funded is the winning offer marked accepted and every
// sibling pending offer auto-rejected.
func (m *Marketplace) AcceptOffer(ctx context.Context, actor party.Actor, offerID id.OfferID) (*invoice.Invoice, error) {
	o, err := m.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	inv, err := m.store.GetInvoice(ctx, o.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleSeller) || !actor.Owns(inv.SellerID) {
		return nil, ErrForbidden
	}

	now := m.clock()
	if o.Status != offer.StatusPending {
		// A rival acceptance funds the invoice and resolves the siblings
		// before a losing caller observes its own offer. Surface that as
		// the invoice being taken, not as an offer-state complaint.
		if o.Status == offer.StatusRejected && o.ResolvedReason == offer.AutoRejectReason {
			return nil, ErrAlreadyFunded
		}
		return nil, ErrOfferNotPending
	}
	if o.ExpiredAt(now) {
		return nil, ErrOfferExpired
	}

	inv, err = m.fundInvoice(ctx, inv, o, now)
	if err != nil {
		return nil, err
	}

	m.acceptWinningOffer(ctx, o, now)
	m.rejectSiblingOffers(ctx, inv.ID, o.ID)

	m.plugins.EmitInvoiceFunded(ctx, inv, o)
	m.logger.Info("invoice funded",
		"invoice_id", inv.ID,
		"offer_id", o.ID,
		"lender_id", o.LenderID,
		"amount", o.Amount,
	)
	return inv, nil
}

// fundInvoice applies the fenced listed→funded write, retrying once
// against a fresh read when the version token is stale.
func (m *Marketplace) fundInvoice(ctx context.Context, inv *invoice.Invoice, o *offer.Offer, now time.Time) (*invoice.Invoice, error) {
	for attempt := 0; ; attempt++ {
		if inv.Status != invoice.StatusListed {
			if inv.Status == invoice.StatusFunded {
				return nil, ErrAlreadyFunded
			}
			return nil, ErrInvoiceNotListed
		}

		inv.Status = invoice.StatusFunded
		inv.FundedBy = &invoice.Funding{
			OfferID:  o.ID,
			LenderID: o.LenderID,
			At:       now,
		}

		err := m.store.UpdateInvoice(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt > 0 {
			return nil, err
		}

		// Stale token: something else touched the invoice since our read.
		// Refresh and re-check the precondition before the single retry.
		inv, err = m.store.GetInvoice(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
	}
}

// acceptWinningOffer records the acceptance on the winning offer. The
// invoice is already funded, so a lost version race here (an expiry sweep
// squeezing in) is corrected by rewriting against the fresh read: the
// funding commit, not the offer row, decides the winner.
func (m *Marketplace) acceptWinningOffer(ctx context.Context, o *offer.Offer, now time.Time) {
	for attempt := 0; attempt < 2; attempt++ {
		o.Status = offer.StatusAccepted
		o.AcceptedAt = &now
		o.ResolvedReason = ""

		err := m.store.UpdateOffer(ctx, o)
		if err == nil {
			m.plugins.EmitOfferAccepted(ctx, o)
			return
		}
		if !errors.Is(err, ErrVersionConflict) {
			m.logger.Error("failed to record offer acceptance",
				"offer_id", o.ID,
				"error", err,
			)
			return
		}

		fresh, ferr := m.store.GetOffer(ctx, o.ID)
		if ferr != nil {
			m.logger.Error("failed to re-read winning offer",
				"offer_id", o.ID,
				"error", ferr,
			)
			return
		}
		*o = *fresh
	}
	m.logger.Error("gave up recording offer acceptance", "offer_id", o.ID)
}

// rejectSiblingOffers resolves every other pending offer on a freshly
// funded invoice. Version conflicts are skipped: whoever won the race
// (an expiry sweep, a concurrent withdraw) already resolved the offer.
func (m *Marketplace) rejectSiblingOffers(ctx context.Context, invoiceID id.InvoiceID, winnerID id.OfferID) {
	siblings, err := m.store.ListOffersByInvoice(ctx, invoiceID, offer.ListOpts{Status: offer.StatusPending})
	if err != nil {
		m.logger.Error("failed to list sibling offers",
			"invoice_id", invoiceID,
			"error", err,
		)
		return
	}

	for _, sib := range siblings {
		if sib.ID.String() == winnerID.String() {
			continue
		}
		sib.Status = offer.StatusRejected
		sib.ResolvedReason = offer.AutoRejectReason
		if err := m.store.UpdateOffer(ctx, sib); err != nil {
			if IsConflict(err) {
				continue
			}
			m.logger.Error("failed to auto-reject sibling offer",
				"offer_id", sib.ID,
				"error", err,
			)
			continue
		}
		m.plugins.EmitOfferRejected(ctx, sib, offer.AutoRejectReason)
	}
}

// transitionOffer applies a lifecycle transition in memory, or reports
// why it is illegal.
func (m *Marketplace) transitionOffer(o *offer.Offer, next offer.Status) error {
	if !o.Status.CanTransition(next) {
		if o.Status != offer.StatusPending {
			return ErrOfferNotPending
		}
		return &InvalidTransitionError{
			Entity:    "offer",
			Current:   string(o.Status),
			Requested: string(next),
		}
	}
	o.Status = next
	return nil
}
