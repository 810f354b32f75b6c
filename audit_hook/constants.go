package audithook

// Action constants for audit events.
const (
	// Invoice actions
	ActionInvoiceSubmitted = "invoice.submitted"
	ActionInvoiceListed    = "invoice.listed"
	ActionInvoiceFunded    = "invoice.funded"
	ActionInvoiceRepaid    = "invoice.repaid"
	ActionInvoiceSettled   = "invoice.settled"
	ActionInvoiceRejected  = "invoice.rejected"

	// Offer actions
	ActionOfferCreated   = "offer.created"
	ActionOfferAccepted  = "offer.accepted"
	ActionOfferRejected  = "offer.rejected"
	ActionOfferWithdrawn = "offer.withdrawn"
	ActionOffersExpired  = "offers.expired"
)

// Resource constants for audit events.
const (
	ResourceInvoice = "invoice"
	ResourceOffer   = "offer"
)

// Category constants for audit events.
const (
	CategoryListing    = "listing"
	CategoryFunding    = "funding"
	CategoryRepayment  = "repayment"
	CategoryCompliance = "compliance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
