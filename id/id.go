// Package id defines TypeID-based identity types for all Factor entities.
//
// Every entity in Factor uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Factor entity types.
const (
	PrefixInvoice Prefix = "inv" // Trade invoice
	PrefixOffer   Prefix = "off" // Funding offer
	PrefixSeller  Prefix = "slr" // Seller (invoice issuer)
	PrefixLender  Prefix = "lnd" // Lender (offer issuer)
	PrefixAnchor  Prefix = "anc" // Anchor (invoice debtor)
	PrefixAdmin   Prefix = "adm" // Marketplace administrator
)

// ID is the primary identifier type for all Factor entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "inv_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases per entity
// ──────────────────────────────────────────────────

// InvoiceID is a type-safe identifier for invoices (prefix: "inv").
type InvoiceID = ID

// OfferID is a type-safe identifier for offers (prefix: "off").
type OfferID = ID

// SellerID is a type-safe identifier for sellers (prefix: "slr").
type SellerID = ID

// LenderID is a type-safe identifier for lenders (prefix: "lnd").
type LenderID = ID

// AnchorID is a type-safe identifier for anchors (prefix: "anc").
type AnchorID = ID

// AdminID is a type-safe identifier for administrators (prefix: "adm").
type AdminID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewInvoiceID generates a new unique invoice ID.
func NewInvoiceID() ID { return New(PrefixInvoice) }

// NewOfferID generates a new unique offer ID.
func NewOfferID() ID { return New(PrefixOffer) }

// NewSellerID generates a new unique seller ID.
func NewSellerID() ID { return New(PrefixSeller) }

// NewLenderID generates a new unique lender ID.
func NewLenderID() ID { return New(PrefixLender) }

// NewAnchorID generates a new unique anchor ID.
func NewAnchorID() ID { return New(PrefixAnchor) }

// NewAdminID generates a new unique admin ID.
func NewAdminID() ID { return New(PrefixAdmin) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseInvoiceID parses a string and validates the "inv" prefix.
func ParseInvoiceID(s string) (ID, error) { return ParseWithPrefix(s, PrefixInvoice) }

// ParseOfferID parses a string and validates the "off" prefix.
func ParseOfferID(s string) (ID, error) { return ParseWithPrefix(s, PrefixOffer) }

// ParseSellerID parses a string and validates the "slr" prefix.
func ParseSellerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSeller) }

// ParseLenderID parses a string and validates the "lnd" prefix.
func ParseLenderID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLender) }

// ParseAnchorID parses a string and validates the "anc" prefix.
func ParseAnchorID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAnchor) }

// ParseAdminID parses a string and validates the "adm" prefix.
func ParseAdminID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAdmin) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
