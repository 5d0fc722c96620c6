package domain

import "github.com/shopspring/decimal"

// CostState tags the outcome of resolving a SKU's unit cost. The four
// non-override outcomes are exhaustive: a cost is either fully resolved,
// partially rolled up, entirely unknown, or poisoned by a rollup cycle.
type CostState string

const (
	CostOverride CostState = "override"
	CostResolved CostState = "resolved"
	CostPartial  CostState = "partial"
	CostUnknown  CostState = "unknown"
	CostCycle    CostState = "cycle"
)

// Cost is the resolved unit cost of a SKU. Amount is meaningful for
// Override, Resolved and Partial states; for Partial it is the sum of
// the known terms only.
type Cost struct {
	State    CostState       `json:"state"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Known reports whether the amount covers the full cost of the SKU.
func (c Cost) Known() bool {
	return c.State == CostOverride || c.State == CostResolved
}

// UnknownCost returns the zero-value unknown cost.
func UnknownCost() Cost {
	return Cost{State: CostUnknown}
}
