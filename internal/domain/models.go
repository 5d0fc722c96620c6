package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Component represents an individually stocked SKU.
type Component struct {
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	CurrentStock  int       `json:"current_stock"`
	ReservedStock int       `json:"reserved_stock"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Available returns current minus reserved stock, clamped at zero.
// Reserved can exceed current due to upstream lag; the clamp is reported
// separately as an anomaly by the detector.
func (c Component) Available() int {
	avail := c.CurrentStock - c.ReservedStock
	if avail < 0 {
		return 0
	}
	return avail
}

// Oversold reports whether reserved stock exceeds current stock.
func (c Component) Oversold() bool {
	return c.ReservedStock > c.CurrentStock
}

// ComponentRequirement links a kit to one of its component SKUs.
type ComponentRequirement struct {
	KitSKU         string  `json:"kit_sku"`
	ComponentSKU   string  `json:"component_sku"`
	ComponentName  string  `json:"component_name"`
	QuantityPerKit float64 `json:"quantity_per_kit"`
	IsCritical     bool    `json:"is_critical"`
}

// Kit represents a sellable bundle assembled from components.
type Kit struct {
	SKU          string                 `json:"sku"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	ListPrice    float64                `json:"list_price"`
	Active       bool                   `json:"active"`
	CreatedAt    time.Time              `json:"created_at"`
	ModifiedAt   time.Time              `json:"modified_at"`
	Requirements []ComponentRequirement `json:"requirements"`
}

// CriticalRequirements returns only the requirements that constrain buildability.
func (k Kit) CriticalRequirements() []ComponentRequirement {
	var crit []ComponentRequirement
	for _, r := range k.Requirements {
		if r.IsCritical {
			crit = append(crit, r)
		}
	}
	return crit
}

// Priority is the restocking priority of a component.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps a raw sheet value to a Priority, defaulting to Medium.
func ParsePriority(raw string) Priority {
	switch raw {
	case "High", "high", "HIGH":
		return PriorityHigh
	case "Low", "low", "LOW":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// BusinessRule holds the per-component assembly rules maintained in the
// Business Rules sheet. A component without a rule uses DefaultRule.
type BusinessRule struct {
	ComponentSKU       string   `json:"component_sku"`
	MinimumBufferStock int      `json:"minimum_buffer_stock"`
	MaximumAssemblyQty int      `json:"maximum_assembly_qty"` // 0 means no cap
	LeadTimeDays       int      `json:"lead_time_days"`
	LaborTimeMinutes   int      `json:"labor_time_minutes"`
	Priority           Priority `json:"priority"`
}

// DefaultRule returns the system defaults applied to components without an
// explicit rule: no buffer, no assembly cap, Medium priority.
func DefaultRule(componentSKU string) BusinessRule {
	return BusinessRule{
		ComponentSKU:       componentSKU,
		MinimumBufferStock: 0,
		MaximumAssemblyQty: 0,
		LeadTimeDays:       7,
		LaborTimeMinutes:   15,
		Priority:           PriorityMedium,
	}
}

// CostEntry is a row from the Product Costs sheet, keyed by any SKU.
type CostEntry struct {
	SKU            string          `json:"sku"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Currency       string          `json:"currency"`
	ManualOverride bool            `json:"manual_override"`
}

// SalesWindow is the per-SKU view of a store's trailing sales window.
type SalesWindow struct {
	Store       string    `json:"store"`
	SKU         string    `json:"sku"`
	UnitsSold   int       `json:"units_sold"`
	DailyRate   float64   `json:"daily_rate"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	ComputedAt  time.Time `json:"computed_at"`
	Partial     bool      `json:"partial"`
	Stale       bool      `json:"stale"`
}
