package domain

// Severity ranks an issue for presentation purposes.
type Severity string

const (
	SeverityHigh    Severity = "high"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueCategory identifies the kind of data or inventory anomaly found.
type IssueCategory string

const (
	// IssueValidation is a dropped or unusable input row.
	IssueValidation IssueCategory = "validation"
	// IssueDanglingReference is a kit requirement pointing at a component
	// SKU absent from the catalog.
	IssueDanglingReference IssueCategory = "dangling_reference"
	// IssueKitNoComponents is a kit with no component requirements at all.
	IssueKitNoComponents IssueCategory = "kit_no_components"
	// IssueKitNoCritical is a kit whose requirements are all non-critical,
	// making buildability indeterminate.
	IssueKitNoCritical IssueCategory = "kit_no_critical"
	// IssueUnknownComponent is a SKU referenced by rules or mappings but
	// absent from the catalog.
	IssueUnknownComponent IssueCategory = "unknown_component"
	// IssueMissingCost is a referenced SKU whose cost could not be fully
	// resolved.
	IssueMissingCost IssueCategory = "missing_cost"
	// IssueCostCycle is a kit whose cost rollup depends on itself.
	IssueCostCycle IssueCategory = "cost_cycle"
	// IssueStaleVelocity is a sales window older than the freshness
	// threshold, served because recomputation was not possible.
	IssueStaleVelocity IssueCategory = "stale_velocity"
	// IssuePartialVelocity is a sales window truncated by the order feed
	// safety cap.
	IssuePartialVelocity IssueCategory = "partial_velocity"
	// IssueZeroBuildable is an active kit that cannot be assembled at all.
	IssueZeroBuildable IssueCategory = "zero_buildable"
	// IssueOversoldStock is a component whose reserved stock exceeds its
	// current stock.
	IssueOversoldStock IssueCategory = "oversold_stock"
	// IssueUpstreamUnavailable is a collaborator call that failed, forcing
	// the engine onto last-known data.
	IssueUpstreamUnavailable IssueCategory = "upstream_unavailable"
)

// Issue records one recoverable anomaly. The engine never aborts a
// computation over an Issue; it annotates results with them instead.
type Issue struct {
	Category IssueCategory `json:"category"`
	Severity Severity      `json:"severity"`
	Store    string        `json:"store,omitempty"`
	KitSKU   string        `json:"kit_sku,omitempty"`
	SKU      string        `json:"sku,omitempty"`
	Sheet    string        `json:"sheet,omitempty"`
	Field    string        `json:"field,omitempty"`
	Message  string        `json:"message"`
}
