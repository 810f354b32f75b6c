package mongo

import (
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

	ID                 string            `grove:"id,pk"               bson:"_id"`
	SellerID           string            `grove:"seller_id"           bson:"seller_id"`
	AnchorID           string            `grove:"anchor_id"           bson:"anchor_id"`
	FaceAmountCents    int64             `grove:"face_amount_cents"   bson:"face_amount_cents"`
	FaceAmountCurrency string            `grove:"face_amount_currency" bson:"face_amount_currency"`
	IssueDate          time.Time         `grove:"issue_date"          bson:"issue_date"`
	DueDate            time.Time         `grove:"due_date"            bson:"due_date"`
	Reference          string            `grove:"reference"           bson:"reference,omitempty"`
	Status             string            `grove:"status"              bson:"status"`
	Terms              *termsModel       `grove:"terms"               bson:"terms,omitempty"`
	FundedBy           *fundingModel     `grove:"funded_by"           bson:"funded_by,omitempty"`
	ListedAt           *time.Time        `grove:"listed_at"           bson:"listed_at,omitempty"`
	RepaidAt           *time.Time        `grove:"repaid_at"           bson:"repaid_at,omitempty"`
	SettledAt          *time.Time        `grove:"settled_at"          bson:"settled_at,omitempty"`
	AnchorNotes        string            `grove:"anchor_notes"        bson:"anchor_notes,omitempty"`
	AdminNotes         string            `grove:"admin_notes"         bson:"admin_notes,omitempty"`
	RejectReason       string            `grove:"reject_reason"       bson:"reject_reason,omitempty"`
	RejectedBy         string            `grove:"rejected_by"         bson:"rejected_by,omitempty"`
	Metadata           map[string]string `grove:"metadata"            bson:"metadata,omitempty"`
	Version            int64             `grove:"version"             bson:"version"`
	CreatedAt          time.Time         `grove:"created_at"          bson:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"          bson:"updated_at"`
}

type termsModel struct {
	MaxFundingCents    int64  `bson:"max_funding_cents"`
	MaxFundingCurrency string `bson:"max_funding_currency"`
	AdvancePct         int64  `bson:"advance_pct"`
	RecommendedRate    int64  `bson:"recommended_rate"`
	MaxTenureDays      int    `bson:"max_tenure_days"`
}

type fundingModel struct {
	OfferID  string    `bson:"offer_id"`
	LenderID string    `bson:"lender_id"`
	At       time.Time `bson:"at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	m := &invoiceModel{
		ID:                 inv.ID.String(),
		SellerID:           inv.SellerID.String(),
		AnchorID:           inv.AnchorID.String(),
		FaceAmountCents:    inv.FaceAmount.Amount,
		FaceAmountCurrency: inv.FaceAmount.Currency,
		IssueDate:          inv.IssueDate,
		DueDate:            inv.DueDate,
		Reference:          inv.Reference,
		Status:             string(inv.Status),
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
	if inv.Terms != nil {
		m.Terms = &termsModel{
			MaxFundingCents:    inv.Terms.MaxFunding.Amount,
			MaxFundingCurrency: inv.Terms.MaxFunding.Currency,
			AdvancePct:         inv.Terms.AdvancePct,
			RecommendedRate:    int64(inv.Terms.RecommendedRate),
			MaxTenureDays:      inv.Terms.MaxTenureDays,
		}
	}
	if inv.FundedBy != nil {
		m.FundedBy = &fundingModel{
			OfferID:  inv.FundedBy.OfferID.String(),
			LenderID: inv.FundedBy.LenderID.String(),
			At:       inv.FundedBy.At,
		}
	}
	return m
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

	inv := &invoice.Invoice{
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
		ListedAt:     m.ListedAt,
		RepaidAt:     m.RepaidAt,
		SettledAt:    m.SettledAt,
		AnchorNotes:  m.AnchorNotes,
		AdminNotes:   m.AdminNotes,
		RejectReason: m.RejectReason,
		RejectedBy:   m.RejectedBy,
		Metadata:     m.Metadata,
	}
	if m.Terms != nil {
		inv.Terms = &terms.Terms{
			MaxFunding:      types.Money{Amount: m.Terms.MaxFundingCents, Currency: m.Terms.MaxFundingCurrency},
			AdvancePct:      m.Terms.AdvancePct,
			RecommendedRate: types.BasisPoints(m.Terms.RecommendedRate),
			MaxTenureDays:   m.Terms.MaxTenureDays,
		}
	}
	if m.FundedBy != nil {
		offerID, oErr := id.ParseOfferID(m.FundedBy.OfferID)
		if oErr != nil {
			return nil, oErr
		}
		lenderID, lErr := id.ParseLenderID(m.FundedBy.LenderID)
		if lErr != nil {
			return nil, lErr
		}
		inv.FundedBy = &invoice.Funding{
			OfferID:  offerID,
			LenderID: lenderID,
			At:       m.FundedBy.At,
		}
	}
	return inv, nil
}

// ==================== Offer models ====================

type offerModel struct {
	grove.BaseModel `grove:"table:factor_offers"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	InvoiceID      string     `grove:"invoice_id"      bson:"invoice_id"`
	LenderID       string     `grove:"lender_id"       bson:"lender_id"`
	AmountCents    int64      `grove:"amount_cents"    bson:"amount_cents"`
	AmountCurrency string     `grove:"amount_currency" bson:"amount_currency"`
	Rate           int64      `grove:"rate"            bson:"rate"`
	FundingPct     int64      `grove:"funding_pct"     bson:"funding_pct"`
	TenureDays     int        `grove:"tenure_days"     bson:"tenure_days"`
	TermsText      string     `grove:"terms_text"      bson:"terms_text,omitempty"`
	Notes          string     `grove:"notes"           bson:"notes,omitempty"`
	Status         string     `grove:"status"          bson:"status"`
	ExpiresAt      time.Time  `grove:"expires_at"      bson:"expires_at"`
	AcceptedAt     *time.Time `grove:"accepted_at"     bson:"accepted_at,omitempty"`
	ResolvedReason string     `grove:"resolved_reason" bson:"resolved_reason,omitempty"`
	Version        int64      `grove:"version"         bson:"version"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
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
