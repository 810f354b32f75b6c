package factor

import (
	"time"

	"github.com/xraph/factor/terms"
)

// Config holds the marketplace-wide knobs. It is passed explicitly at
// construction; nothing reads ambient global state.
type Config struct {
	// Policy bounds the funding terms admins may attach and the offers
	// lenders may place.
	Policy terms.Policy

	// OfferValidity is the default window an offer stays open when the
	// lender does not choose an expiry.
	OfferValidity time.Duration

	// SweepInterval is how often the background worker resolves lapsed
	// offers. SweepBatchSize caps the offers touched per sweep.
	SweepInterval  time.Duration
	SweepBatchSize int
}

// DefaultConfig returns the standard marketplace configuration.
func DefaultConfig() Config {
	return Config{
		Policy:         terms.DefaultPolicy(),
		OfferValidity:  48 * time.Hour,
		SweepInterval:  time.Minute,
		SweepBatchSize: 100,
	}
}
