// Package factor provides an invoice financing marketplace engine for Go
// applications.
//
// Factor is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - An invoice lifecycle from draft through listing, funding, and settlement
//   - Competitive funding offers with exclusive, race-safe acceptance
//   - Derived funding terms (max advance, recommended rate, tenure window)
//   - A background sweeper that resolves lapsed offers
//   - Pluggable lifecycle hooks for audit trails and metrics
//   - Storage backends for memory, PostgreSQL, SQLite, and MongoDB
//
// # Quick Start
//
// Create a marketplace instance with your preferred store:
//
//	import (
//	    "github.com/xraph/factor"
//	    "github.com/xraph/factor/store/memory"
//	)
//
//	m := factor.New(memory.New())
//
//	// Start the marketplace (begins background workers)
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
// # Core Concepts
//
// Sellers draft invoices against an anchor (the corporate debtor) and
// submit them for review:
//
//	inv := &invoice.Invoice{
//	    AnchorID:   anchorID,
//	    FaceAmount: factor.USD(1_000_000),
//	    IssueDate:  issued,
//	    DueDate:    due,
//	}
//	if err := m.CreateInvoice(ctx, seller, inv); err != nil {
//	    log.Fatal(err)
//	}
//	inv, err := m.SubmitInvoice(ctx, seller, inv.ID)
//
// After the anchor approves and an admin verifies, the invoice is listed
// with derived funding terms. Lenders then compete with offers:
//
//	o, err := m.CreateOffer(ctx, lender, &offer.Offer{
//	    InvoiceID:  inv.ID,
//	    FundingPct: 80,
//	    Rate:       factor.BpsFromPercent(12),
//	    TenureDays: 30,
//	})
//
// Acceptance is exclusive: exactly one offer wins, the invoice moves to
// funded, and every sibling offer is automatically rejected:
//
//	funded, err := m.AcceptOffer(ctx, seller, o.ID)
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, paise for INR, etc), and percentages floor
// so the marketplace never rounds up in the counterparty's favor.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	inv_01h2xcejqtf2nbrexx3vqjhp41  // Invoice ID
//	off_01h2xcejqtf2nbrexx3vqjhp41  // Offer ID
//	slr_01h455vb4pex5vsknk084sn02q  // Seller ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package factor
