package types

import "fmt"

// BasisPoints represents an interest rate in hundredths of a percent.
// Like Money, rates are integer-only: 1250 basis points = 12.50%.
// Integer rates keep every derived financial figure exactly reproducible
// across store backends.
type BasisPoints int64

// BpsFromPercent converts a whole-number percentage to basis points.
func BpsFromPercent(pct int64) BasisPoints { return BasisPoints(pct * 100) }

// Percent returns the whole-percent part of the rate (1250 bps -> 12).
func (b BasisPoints) Percent() int64 { return int64(b) / 100 }

// IsNegative returns true if the rate is below zero.
func (b BasisPoints) IsNegative() bool { return b < 0 }

// Annualize scales a rate quoted over tenureDays to a simple annualized
// rate: bps * 365 / tenureDays, floored. Panics if tenureDays is not
// positive (callers validate tenure before quoting a rate over it).
func (b BasisPoints) Annualize(tenureDays int) BasisPoints {
	if tenureDays <= 0 {
		panic("rate: annualize over non-positive tenure")
	}
	return BasisPoints(int64(b) * 365 / int64(tenureDays))
}

// String formats the rate as a percentage, e.g. "12.50%".
func (b BasisPoints) String() string {
	neg := ""
	v := int64(b)
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d%%", neg, v/100, v%100)
}
