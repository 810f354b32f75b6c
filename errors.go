package factor

import (
	"errors"
	"fmt"

	"github.com/xraph/factor/terms"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("factor: not found")
	ErrAlreadyExists = errors.New("factor: already exists")
	ErrInvalidInput  = errors.New("factor: invalid input")
	ErrForbidden     = errors.New("factor: forbidden")

	// Invoice errors
	ErrInvoiceNotFound   = errors.New("factor: invoice not found")
	ErrInvoiceNotListed  = errors.New("factor: invoice is not listed")
	ErrAlreadyFunded     = errors.New("factor: invoice already funded")
	ErrInvalidTransition = errors.New("factor: invalid lifecycle transition")
	ErrMissingTerms      = errors.New("factor: funding terms required for verification")

	// Offer errors
	ErrOfferNotFound     = errors.New("factor: offer not found")
	ErrOfferNotPending   = errors.New("factor: offer is not pending")
	ErrOfferExpired      = errors.New("factor: offer has expired")
	ErrTermsExceedLimits = errors.New("factor: offer terms exceed invoice funding limits")
	ErrSelfFunding       = errors.New("factor: seller cannot fund own invoice")

	// Calculator errors, re-exported from the terms package.
	ErrInvalidDueDate     = terms.ErrInvalidDueDate
	ErrInsufficientRunway = terms.ErrInsufficientRunway
	ErrRateOutOfBounds    = terms.ErrRateOutOfBounds
	ErrAdvanceOutOfBounds = terms.ErrAdvanceOutOfBounds

	// Concurrency errors
	ErrVersionConflict = errors.New("factor: entity modified concurrently")

	// Store errors
	ErrUnavailable = errors.New("factor: store unavailable")
	ErrStoreClosed = errors.New("factor: store is closed")
)

// InvalidTransitionError reports an illegal lifecycle transition attempt.
// It wraps ErrInvalidTransition so errors.Is(err, ErrInvalidTransition)
// holds, while carrying the observed and requested states for callers
// that render role-appropriate messages.
type InvalidTransitionError struct {
	Entity    string // "invoice" or "offer"
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("factor: %s cannot move from %s to %s", e.Entity, e.Current, e.Requested)
}

// Unwrap makes the error match ErrInvalidTransition.
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("factor: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes the error match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrOfferNotFound)
}

// IsConflict returns true if the error reports a lost optimistic-concurrency
// race. Callers must re-fetch state and re-validate preconditions before
// resubmitting; a blind retry can revive an invalid command.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrAlreadyFunded)
}

// IsRetryable returns true if the error is transient and the operation can
// be retried as-is after backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
