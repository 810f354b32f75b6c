package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/offer"
	"github.com/xraph/factor/terms"
	"github.com/xraph/factor/types"
)

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:factor_invoices"`

	ID                 string            `grove:"id,pk"`
	SellerID           string            `grove:"seller_id"`
	AnchorID           string            `grove:"anchor_id"`
	FaceAmountCents    int64             `grove:"face_amount_cents"`
	FaceAmountCurrency string            `grove:"face_amount_currency"`
	IssueDate          time.Time         `grove:"issue_date"`
	DueDate            time.Time         `grove:"due_date"`
	Reference          string            `grove:"reference"`
	Status             string            `grove:"status"`
	Terms              json.RawMessage   `grove:"terms,type:text"`
	FundedBy           json.RawMessage   `grove:"funded_by,type:text"`
	ListedAt           *time.Time        `grove:"listed_at"`
	RepaidAt           *time.Time        `grove:"repaid_at"`
	SettledAt          *time.Time        `grove:"settled_at"`
	AnchorNotes        string            `grove:"anchor_notes"`
	AdminNotes         string            `grove:"admin_notes"`
	RejectReason       string            `grove:"reject_reason"`
	RejectedBy         string            `grove:"rejected_by"`
	Metadata           map[string]string `grove:"metadata,type:text"`
	Version            int64             `grove:"version"`
	CreatedAt          time.Time         `grove:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	termsJSON, _ := json.Marshal(inv.Terms)      //nolint:errcheck // best-effort
	fundedByJSON, _ := json.Marshal(inv.FundedBy) //nolint:errcheck // best-effort

	return &invoiceModel{
		ID:                 inv.ID.String(),
		SellerID:           inv.SellerID.String(),
		AnchorID:           inv.AnchorID.String(),
		FaceAmountCents:    inv.FaceAmount.Amount,
		FaceAmountCurrency: inv.FaceAmount.Currency,
		IssueDate:          inv.IssueDate,
		DueDate:            inv.DueDate,
		Reference:          inv.Reference,
		Status:             string(inv.Status),
		Terms:              termsJSON,
		FundedBy:           fundedByJSON,
		ListedAt:           inv.ListedAt,
		RepaidAt:           inv.RepaidAt,
		SettledAt:          inv.SettledAt,
		AnchorNotes:        inv.AnchorNotes,
		AdminNotes:         inv.AdminNotes,
		RejectReason:       inv.RejectReason,
		RejectedBy:         inv.RejectedBy,
		Metadata:           inv.Metadata,
		Version:            inv.Version,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	sellerID, err := id.ParseSellerID(m.SellerID)
	if err != nil {
		return nil, err
	}
	anchorID, err := id.ParseAnchorID(m.AnchorID)
	if err != nil {
		return nil, err
	}

	var t *terms.Terms
	if len(m.Terms) > 0 && string(m.Terms) != "null" {
		t = new(terms.Terms)
		_ = json.Unmarshal(m.Terms, t) //nolint:errcheck // best-effort
	}
	var fundedBy *invoice.Funding
	if len(m.FundedBy) > 0 && string(m.FundedBy) != "null" {
		fundedBy = new(invoice.Funding)
		_ = json.Unmarshal(m.FundedBy, fundedBy) //nolint:errcheck // best-effort
	}

	return &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:           invID,
		SellerID:     sellerID,
		AnchorID:     anchorID,
		FaceAmount:   types.Money{Amount: m.FaceAmountCents, Currency: m.FaceAmountCurrency},
		IssueDate:    m.IssueDate,
		DueDate:      m.DueDate,
		Reference:    m.Reference,
		Status:       invoice.Status(m.Status),
		Terms:        t,
		FundedBy:     fundedBy,
		ListedAt:     m.ListedAt,
		RepaidAt:     m.RepaidAt,
		SettledAt:    m.SettledAt,
		AnchorNotes:  m.AnchorNotes,
		AdminNotes:   m.AdminNotes,
		RejectReason: m.RejectReason,
		RejectedBy:   m.RejectedBy,
		Metadata:     m.Metadata,
	}, nil
}

// ==================== Offer models ====================

type offerModel struct {
	grove.BaseModel `grove:"table:factor_offers"`

	ID             string     `grove:"id,pk"`
	InvoiceID      string     `grove:"invoice_id"`
	LenderID       string     `grove:"lender_id"`
	AmountCents    int64      `grove:"amount_cents"`
	AmountCurrency string     `grove:"amount_currency"`
	Rate           int64      `grove:"rate"`
	FundingPct     int64      `grove:"funding_pct"`
	TenureDays     int        `grove:"tenure_days"`
	TermsText      string     `grove:"terms_text"`
	Notes          string     `grove:"notes"`
	Status         string     `grove:"status"`
	ExpiresAt      time.Time  `grove:"expires_at"`
	AcceptedAt     *time.Time `grove:"accepted_at"`
	ResolvedReason string     `grove:"resolved_reason"`
	Version        int64      `grove:"version"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toOfferModel(o *offer.Offer) *offerModel {
	return &offerModel{
		ID:             o.ID.String(),
		InvoiceID:      o.InvoiceID.String(),
		LenderID:       o.LenderID.String(),
		AmountCents:    o.Amount.Amount,
		AmountCurrency: o.Amount.Currency,
		Rate:           int64(o.Rate),
		FundingPct:     o.FundingPct,
		TenureDays:     o.TenureDays,
		TermsText:      o.TermsText,
		Notes:          o.Notes,
		Status:         string(o.Status),
		ExpiresAt:      o.ExpiresAt,
		AcceptedAt:     o.AcceptedAt,
		ResolvedReason: o.ResolvedReason,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func fromOfferModel(m *offerModel) (*offer.Offer, error) {
	offerID, err := id.ParseOfferID(m.ID)
	if err != nil {
		return nil, err
	}
	invoiceID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return nil, err
	}
	lenderID, err := id.ParseLenderID(m.LenderID)
	if err != nil {
		return nil, err
	}

	return &offer.Offer{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:             offerID,
		InvoiceID:      invoiceID,
		LenderID:       lenderID,
		Amount:         types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		Rate:           types.BasisPoints(m.Rate),
		FundingPct:     m.FundingPct,
		TenureDays:     m.TenureDays,
		TermsText:      m.TermsText,
		Notes:          m.Notes,
		Status:         offer.Status(m.Status),
		ExpiresAt:      m.ExpiresAt,
		AcceptedAt:     m.AcceptedAt,
		ResolvedReason: m.ResolvedReason,
	}, nil
}
