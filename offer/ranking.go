package offer

import "sort"

// Ranking orders competing offers for the seller's comparison views.
// Both orderings are deterministic: every tie-break chain ends on the
// offer ID, which is unique.

// SortNewestFirst orders offers by creation time, newest first. This is
// the default listing order.
func SortNewestFirst(offers []*Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
}

// SortBestFirst orders offers by effective annual cost to the seller,
// cheapest first. Ties break toward the larger funding percentage, then
// the earlier offer, then the ID.
func SortBestFirst(offers []*Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]

		if c := compareAnnualCost(a, b); c != 0 {
			return c < 0
		}
		if a.FundingPct != b.FundingPct {
			return a.FundingPct > b.FundingPct
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// compareAnnualCost compares rate/tenure ratios exactly by cross
// multiplication, avoiding the precision loss of the floored
// EffectiveAnnualRate display value. Returns -1, 0 or 1.
func compareAnnualCost(a, b *Offer) int {
	lhs := int64(a.Rate) * int64(b.TenureDays)
	rhs := int64(b.Rate) * int64(a.TenureDays)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}
