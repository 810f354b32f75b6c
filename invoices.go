package factor

import (
	"context"
	"strings"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/party"
	"github.com/xraph/factor/terms"
	"github.com/xraph/factor/types"
)

// minReasonLen is the shortest rejection reason accepted anywhere in the
// lifecycle. One-word rejections help nobody downstream.
const minReasonLen = 10

// ──────────────────────────────────────────────────
// Invoice lifecycle
// ──────────────────────────────────────────────────

// CreateInvoice registers a draft invoice for the calling seller. The
// invoice stays private to the seller until submitted.
func (m *Marketplace) CreateInvoice(ctx context.Context, actor party.Actor, inv *invoice.Invoice) error {
	if !actor.Is(party.RoleSeller) {
		return ErrForbidden
	}
	if err := m.validateInvoiceFields(inv); err != nil {
		return err
	}

	if inv.ID.IsNil() {
		inv.ID = id.NewInvoiceID()
	}
	inv.SellerID = actor.ID
	inv.Entity = types.NewEntity()
	inv.Status = invoice.StatusDraft
	inv.FundedBy = nil

	if err := m.store.CreateInvoice(ctx, inv); err != nil {
		return err
	}

	m.logger.Debug("invoice created",
		"invoice_id", inv.ID,
		"seller_id", inv.SellerID,
		"face_amount", inv.FaceAmount,
	)
	return nil
}

// SubmitInvoice moves a draft into the anchor's review queue.
func (m *Marketplace) SubmitInvoice(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleSeller) || !actor.Owns(inv.SellerID) {
		return nil, ErrForbidden
	}
	if inv.IssueDate.After(m.clock()) {
		return nil, ValidationError{Field: "issue_date", Message: "issue date cannot be in the future"}
	}

	if err := m.transitionInvoice(inv, invoice.StatusSubmitted); err != nil {
		return nil, err
	}
	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.plugins.EmitInvoiceSubmitted(ctx, inv)
	m.logger.Info("invoice submitted", "invoice_id", inv.ID, "anchor_id", inv.AnchorID)
	return inv, nil
}

// AnchorReview records the anchor's verdict on a submitted invoice. The
// anchor confirms the receivable is genuine and payable; approval moves
// the invoice to admin verification, rejection ends the lifecycle.
func (m *Marketplace) AnchorReview(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID, approve bool, notes string) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleAnchor) || !actor.Owns(inv.AnchorID) {
		return nil, ErrForbidden
	}

	if !approve {
		return m.rejectInvoice(ctx, inv, actor, notes)
	}

	if err := m.transitionInvoice(inv, invoice.StatusAnchorApproved); err != nil {
		return nil, err
	}
	inv.AnchorNotes = notes
	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.logger.Info("invoice anchor-approved", "invoice_id", inv.ID)
	return inv, nil
}

// AdminReview records the platform's verdict on an anchor-approved
// invoice. Approval attaches the funding terms derived from the given
// input and lists the invoice in one step; rejection ends the lifecycle.
func (m *Marketplace) AdminReview(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID, approve bool, in terms.Input, notes string) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleAdmin) {
		return nil, ErrForbidden
	}

	if !approve {
		return m.rejectInvoice(ctx, inv, actor, notes)
	}

	now := m.clock()
	t, err := m.cfg.Policy.Compute(inv.FaceAmount, inv.DueDate, now, in)
	if err != nil {
		return nil, err
	}

	// Verification and listing are one review action: the invoice passes
	// through admin_verified and lands listed in a single write.
	if err := m.transitionInvoice(inv, invoice.StatusAdminVerified); err != nil {
		return nil, err
	}
	inv.Status = invoice.StatusListed
	inv.Terms = &t
	inv.ListedAt = &now
	inv.AdminNotes = notes

	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.plugins.EmitInvoiceListed(ctx, inv)
	m.logger.Info("invoice listed",
		"invoice_id", inv.ID,
		"max_funding", t.MaxFunding,
		"max_tenure_days", t.MaxTenureDays,
	)
	return inv, nil
}

// RepayInvoice records the anchor's repayment of a funded invoice.
func (m *Marketplace) RepayInvoice(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !m.mayOperate(actor, inv) {
		return nil, ErrForbidden
	}

	if err := m.transitionInvoice(inv, invoice.StatusRepaid); err != nil {
		return nil, err
	}
	now := m.clock()
	inv.RepaidAt = &now
	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.plugins.EmitInvoiceRepaid(ctx, inv)
	m.logger.Info("invoice repaid", "invoice_id", inv.ID)
	return inv, nil
}

// SettleInvoice records the final payout of a repaid invoice to the
// funding lender, closing the lifecycle.
func (m *Marketplace) SettleInvoice(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleAdmin) {
		return nil, ErrForbidden
	}

	if err := m.transitionInvoice(inv, invoice.StatusSettled); err != nil {
		return nil, err
	}
	now := m.clock()
	inv.SettledAt = &now
	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.plugins.EmitInvoiceSettled(ctx, inv)
	m.logger.Info("invoice settled", "invoice_id", inv.ID)
	return inv, nil
}

// RejectInvoice takes an invoice off the marketplace at any reviewable
// stage. Funded invoices are past the point of no return.
func (m *Marketplace) RejectInvoice(ctx context.Context, actor party.Actor, invoiceID id.InvoiceID, reason string) (*invoice.Invoice, error) {
	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(party.RoleAdmin) {
		return nil, ErrForbidden
	}
	return m.rejectInvoice(ctx, inv, actor, reason)
}

// rejectInvoice applies the rejection transition for any rejecting role.
func (m *Marketplace) rejectInvoice(ctx context.Context, inv *invoice.Invoice, actor party.Actor, reason string) (*invoice.Invoice, error) {
	if len(strings.TrimSpace(reason)) < minReasonLen {
		return nil, ValidationError{Field: "reason", Message: "rejection reason must be at least 10 characters"}
	}

	if err := m.transitionInvoice(inv, invoice.StatusRejected); err != nil {
		return nil, err
	}
	inv.RejectReason = reason
	inv.RejectedBy = string(actor.Role)
	if err := m.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	m.plugins.EmitInvoiceRejected(ctx, inv, reason)
	m.logger.Info("invoice rejected",
		"invoice_id", inv.ID,
		"rejected_by", inv.RejectedBy,
	)
	return inv, nil
}

// transitionInvoice applies a lifecycle transition in memory, or reports
// why it is illegal. The store's version fence makes the eventual write
// atomic.
func (m *Marketplace) transitionInvoice(inv *invoice.Invoice, next invoice.Status) error {
	if !inv.Status.CanTransition(next) {
		return &InvalidTransitionError{
			Entity:    "invoice",
			Current:   string(inv.Status),
			Requested: string(next),
		}
	}
	inv.Status = next
	return nil
}

func (m *Marketplace) validateInvoiceFields(inv *invoice.Invoice) error {
	if inv.AnchorID.IsNil() {
		return ValidationError{Field: "anchor_id", Message: "anchor is required"}
	}
	if !inv.FaceAmount.IsPositive() {
		return ValidationError{Field: "face_amount", Message: "face amount must be positive"}
	}
	if inv.IssueDate.IsZero() || inv.DueDate.IsZero() {
		return ValidationError{Field: "due_date", Message: "issue and due dates are required"}
	}
	if !inv.DueDate.After(inv.IssueDate) {
		return ValidationError{Field: "due_date", Message: "due date must be after issue date"}
	}
	return nil
}

// mayOperate reports whether the actor can drive post-funding operations
// on the invoice: the platform, or the anchor that owes it.
func (m *Marketplace) mayOperate(actor party.Actor, inv *invoice.Invoice) bool {
	if actor.Is(party.RoleAdmin) {
		return true
	}
	return actor.Is(party.RoleAnchor) && actor.Owns(inv.AnchorID)
}
