package factor

import "github.com/xraph/factor/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// BasisPoints is re-exported from types package.
type BasisPoints = types.BasisPoints

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	USD  = types.USD
	EUR  = types.EUR
	GBP  = types.GBP
	INR  = types.INR
	Zero = types.Zero
	Sum  = types.Sum
)

// Re-export rate constructor
var BpsFromPercent = types.BpsFromPercent

// Re-export Entity constructor
var NewEntity = types.NewEntity
