package domain

// BuildStatus bands an effective inventory result for presentation.
type BuildStatus string

const (
	StatusOK            BuildStatus = "OK"
	StatusLow           BuildStatus = "LOW"
	StatusCritical      BuildStatus = "CRITICAL"
	StatusIndeterminate BuildStatus = "INDETERMINATE"
)

// RequirementBreakdown is the per-requirement detail behind a kit's
// buildable quantity.
type RequirementBreakdown struct {
	ComponentSKU         string  `json:"component_sku"`
	ComponentName        string  `json:"component_name,omitempty"`
	Critical             bool    `json:"critical"`
	QuantityPerKit       float64 `json:"quantity_per_kit"`
	Available            int     `json:"available"`
	Buffer               int     `json:"buffer"`
	AvailableAfterBuffer int     `json:"available_after_buffer"`
	Ratio                int     `json:"ratio"`
	Missing              bool    `json:"missing"`
}

// EffectiveInventory is the derived result for one kit. It is computed,
// never persisted.
type EffectiveInventory struct {
	KitSKU  string `json:"kit_sku"`
	KitName string `json:"kit_name"`

	// Buildable is the raw unconstrained quantity; Recommended applies the
	// maximum-assembly business rule on top of it.
	Buildable     int  `json:"buildable"`
	Recommended   int  `json:"recommended"`
	Indeterminate bool `json:"indeterminate"`

	Bottlenecks []string `json:"bottlenecks,omitempty"`

	// DaysOfStock is only meaningful when DaysOfStockKnown is true; a kit
	// with no demand history has no depletion estimate.
	DaysOfStock      float64 `json:"days_of_stock"`
	DaysOfStockKnown bool    `json:"days_of_stock_known"`

	Cost     Cost         `json:"cost"`
	Velocity *SalesWindow `json:"velocity,omitempty"`

	Requirements []RequirementBreakdown `json:"requirements"`
	Issues       []Issue                `json:"issues,omitempty"`
	Status       BuildStatus            `json:"status"`
}
