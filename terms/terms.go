// Package terms derives the funding terms an admin attaches to an invoice
// at verification time: the maximum fundable amount, the recommended rate,
// and the tenure window lenders may quote against.
//
// Everything here is a pure computation over a Policy; the package holds no
// state and touches no store.
package terms

import (
	"errors"
	"time"

	"github.com/xraph/factor/types"
)

// Sentinel errors for calculator precondition failures. The root factor
// package re-exports these so callers can match either spelling.
var (
	ErrInvalidDueDate     = errors.New("terms: due date is not in the future")
	ErrInsufficientRunway = errors.New("terms: too few days until due date to finance")
	ErrRateOutOfBounds    = errors.New("terms: interest rate outside policy bounds")
	ErrAdvanceOutOfBounds = errors.New("terms: advance percentage outside policy bounds")
)

// Policy holds the marketplace-wide financing bounds. It is constructed
// once at startup and passed by reference into the engine; there is no
// ambient global.
type Policy struct {
	// MinAdvancePct and MaxAdvancePct bound the advance rate an admin may
	// set: the percentage of the invoice face value that can be financed.
	MinAdvancePct int64
	MaxAdvancePct int64

	// MaxRate caps both the recommended rate and any offer rate.
	MaxRate types.BasisPoints

	// BufferDays is subtracted from the days-until-due runway before the
	// tenure window is computed, leaving room for repayment processing.
	BufferDays int

	// MinTenureDays and MaxTenureDays clamp the computed tenure ceiling.
	MinTenureDays int
	MaxTenureDays int
}

// DefaultPolicy returns the standard marketplace policy: advances of
// 1-100% of face value, rates up to 50%, a 7-day repayment buffer, and
// tenures between 14 and 45 days.
func DefaultPolicy() Policy {
	return Policy{
		MinAdvancePct: 1,
		MaxAdvancePct: 100,
		MaxRate:       types.BpsFromPercent(50),
		BufferDays:    7,
		MinTenureDays: 14,
		MaxTenureDays: 45,
	}
}

// Terms is the derived funding envelope for one invoice. Once attached at
// verification time it is immutable for the life of the listing.
type Terms struct {
	// MaxFunding is the largest amount any single offer may advance.
	MaxFunding types.Money `json:"max_funding"`

	// AdvancePct is the admin-chosen advance rate MaxFunding was derived from.
	AdvancePct int64 `json:"advance_pct"`

	// RecommendedRate is the admin-suggested rate shown to lenders.
	// It is advisory; offers may quote any rate within policy.
	RecommendedRate types.BasisPoints `json:"recommended_rate"`

	// MaxTenureDays caps the tenure lenders may quote.
	MaxTenureDays int `json:"max_tenure_days"`
}

// Input carries the admin-supplied knobs for Compute.
type Input struct {
	AdvancePct      int64
	RecommendedRate types.BasisPoints
}

// DaysUntilDue returns the number of whole or partial days between now and
// the due date, rounded up. A due date in the past yields zero or less.
func DaysUntilDue(dueDate, now time.Time) int {
	d := dueDate.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Compute derives funding terms for an invoice with the given face amount
// and due date, validating the admin input against the policy.
//
// The max fundable amount is floor(face * advancePct / 100). The tenure
// ceiling is the days-until-due runway minus the policy buffer, clamped to
// [MinTenureDays, MaxTenureDays]; a runway shorter than the minimum tenure
// fails with ErrInsufficientRunway.
func (p Policy) Compute(face types.Money, dueDate, now time.Time, in Input) (Terms, error) {
	daysUntilDue := DaysUntilDue(dueDate, now)
	if daysUntilDue <= 0 {
		return Terms{}, ErrInvalidDueDate
	}
	if in.AdvancePct < p.MinAdvancePct || in.AdvancePct > p.MaxAdvancePct {
		return Terms{}, ErrAdvanceOutOfBounds
	}
	if in.RecommendedRate.IsNegative() || in.RecommendedRate > p.MaxRate {
		return Terms{}, ErrRateOutOfBounds
	}

	runway := daysUntilDue - p.BufferDays
	if runway < p.MinTenureDays {
		return Terms{}, ErrInsufficientRunway
	}
	maxTenure := runway
	if maxTenure > p.MaxTenureDays {
		maxTenure = p.MaxTenureDays
	}

	return Terms{
		MaxFunding:      face.Percent(in.AdvancePct),
		AdvancePct:      in.AdvancePct,
		RecommendedRate: in.RecommendedRate,
		MaxTenureDays:   maxTenure,
	}, nil
}

// Validate checks an externally supplied Terms value against the policy and
// the invoice it is meant for. Used when an admin submits precomputed terms
// instead of asking the calculator to derive them.
func (p Policy) Validate(t Terms, face types.Money, dueDate, now time.Time) error {
	daysUntilDue := DaysUntilDue(dueDate, now)
	if daysUntilDue <= 0 {
		return ErrInvalidDueDate
	}
	if !t.MaxFunding.IsPositive() || t.MaxFunding.GreaterThan(face) {
		return ErrAdvanceOutOfBounds
	}
	if t.RecommendedRate.IsNegative() || t.RecommendedRate > p.MaxRate {
		return ErrRateOutOfBounds
	}
	if t.MaxTenureDays < 1 || t.MaxTenureDays > p.MaxTenureDays {
		return ErrInsufficientRunway
	}
	if daysUntilDue-p.BufferDays < t.MaxTenureDays {
		return ErrInsufficientRunway
	}
	return nil
}
