package engine

import (
	"context"
	"math"

	"github.com/quent-dev/inventory-system/internal/domain"
)

// VelocityReader is the calculator's view of the velocity cache.
type VelocityReader interface {
	Get(ctx context.Context, store, sku string) (domain.SalesWindow, error)
}

// Calculator derives per-kit buildable quantities from one snapshot. It
// reads only immutable snapshot data and pre-resolved costs, so a single
// calculator is safe to use from concurrent kit computations.
type Calculator struct {
	snap              *Snapshot
	costs             map[string]domain.Cost
	velocity          VelocityReader
	lowStockThreshold int
}

func NewCalculator(snap *Snapshot, costs map[string]domain.Cost, velocity VelocityReader, lowStockThreshold int) *Calculator {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &Calculator{
		snap:              snap,
		costs:             costs,
		velocity:          velocity,
		lowStockThreshold: lowStockThreshold,
	}
}

// Compute derives the effective inventory result for a single kit.
//
// Buildable quantity is the floor of the minimum available-after-buffer
// ratio across critical requirements. A critical component missing from
// the catalog forces buildable to zero regardless of ratios; a kit with no
// critical requirements is indeterminate, never unlimited.
func (c *Calculator) Compute(ctx context.Context, kit domain.Kit) domain.EffectiveInventory {
	result := domain.EffectiveInventory{
		KitSKU:  kit.SKU,
		KitName: kit.Name,
	}

	minRatio := math.MaxInt
	var bottlenecks []string
	var missingCritical []string
	criticalCount := 0
	assemblyCap := 0

	for _, req := range kit.Requirements {
		rule := c.snap.Rule(req.ComponentSKU)
		if rule.MaximumAssemblyQty > 0 && (assemblyCap == 0 || rule.MaximumAssemblyQty < assemblyCap) {
			assemblyCap = rule.MaximumAssemblyQty
		}

		breakdown := domain.RequirementBreakdown{
			ComponentSKU:   req.ComponentSKU,
			ComponentName:  req.ComponentName,
			Critical:       req.IsCritical,
			QuantityPerKit: req.QuantityPerKit,
			Buffer:         rule.MinimumBufferStock,
		}

		comp, ok := c.snap.Components[req.ComponentSKU]
		if !ok {
			breakdown.Missing = true
			result.Requirements = append(result.Requirements, breakdown)
			result.Issues = append(result.Issues, domain.Issue{
				Category: domain.IssueDanglingReference,
				Severity: domain.SeverityHigh,
				Store:    c.snap.Store,
				KitSKU:   kit.SKU,
				SKU:      req.ComponentSKU,
				Message:  "requirement references a component absent from the catalog",
			})
			if req.IsCritical {
				criticalCount++
				missingCritical = append(missingCritical, req.ComponentSKU)
			}
			continue
		}

		if comp.Oversold() {
			result.Issues = append(result.Issues, domain.Issue{
				Category: domain.IssueOversoldStock,
				Severity: domain.SeverityWarning,
				Store:    c.snap.Store,
				KitSKU:   kit.SKU,
				SKU:      comp.SKU,
				Message:  "reserved stock exceeds current stock, available clamped to zero",
			})
		}

		breakdown.Available = comp.Available()
		afterBuffer := breakdown.Available - rule.MinimumBufferStock
		if afterBuffer < 0 {
			afterBuffer = 0
		}
		breakdown.AvailableAfterBuffer = afterBuffer
		breakdown.Ratio = int(math.Floor(float64(afterBuffer) / req.QuantityPerKit))
		result.Requirements = append(result.Requirements, breakdown)

		if !req.IsCritical {
			continue
		}
		criticalCount++
		switch {
		case breakdown.Ratio < minRatio:
			minRatio = breakdown.Ratio
			bottlenecks = []string{req.ComponentSKU}
		case breakdown.Ratio == minRatio:
			bottlenecks = append(bottlenecks, req.ComponentSKU)
		}
	}

	switch {
	case criticalCount == 0:
		// Could mean "no constraint" or a data omission; reporting
		// unlimited would be operationally dangerous, so flag instead.
		result.Indeterminate = true
		category := domain.IssueKitNoCritical
		message := "kit has no critical requirements, buildable quantity is indeterminate"
		if len(kit.Requirements) == 0 {
			category = domain.IssueKitNoComponents
			message = "kit has no component requirements"
		}
		result.Issues = append(result.Issues, domain.Issue{
			Category: category,
			Severity: domain.SeverityHigh,
			Store:    c.snap.Store,
			KitSKU:   kit.SKU,
			Message:  message,
		})
	case len(missingCritical) > 0:
		// Missing critical components take precedence over any ratio.
		result.Buildable = 0
		result.Bottlenecks = missingCritical
	default:
		result.Buildable = minRatio
		result.Bottlenecks = bottlenecks
	}

	result.Recommended = result.Buildable
	if assemblyCap > 0 && result.Recommended > assemblyCap {
		result.Recommended = assemblyCap
	}

	result.Cost = c.kitCost(kit.SKU, &result)
	c.attachVelocity(ctx, kit, &result)
	result.Status = c.status(kit, result)

	return result
}

func (c *Calculator) kitCost(sku string, result *domain.EffectiveInventory) domain.Cost {
	kitCost, ok := c.costs[sku]
	if !ok {
		kitCost = domain.UnknownCost()
	}

	switch kitCost.State {
	case domain.CostCycle:
		result.Issues = append(result.Issues, domain.Issue{
			Category: domain.IssueCostCycle,
			Severity: domain.SeverityWarning,
			Store:    c.snap.Store,
			KitSKU:   sku,
			Message:  "cost rollup depends on itself, cost reported unknown",
		})
	case domain.CostPartial, domain.CostUnknown:
		result.Issues = append(result.Issues, domain.Issue{
			Category: domain.IssueMissingCost,
			Severity: domain.SeverityInfo,
			Store:    c.snap.Store,
			KitSKU:   sku,
			Message:  "kit cost could not be fully resolved",
		})
	}
	return kitCost
}

func (c *Calculator) attachVelocity(ctx context.Context, kit domain.Kit, result *domain.EffectiveInventory) {
	window, err := c.velocity.Get(ctx, c.snap.Store, kit.SKU)
	if err != nil {
		result.Issues = append(result.Issues, domain.Issue{
			Category: domain.IssueUpstreamUnavailable,
			Severity: domain.SeverityWarning,
			Store:    c.snap.Store,
			KitSKU:   kit.SKU,
			Message:  "sales velocity unavailable, days-of-stock not computed",
		})
		return
	}

	result.Velocity = &window
	if window.Stale {
		result.Issues = append(result.Issues, domain.Issue{
			Category: domain.IssueStaleVelocity,
			Severity: domain.SeverityInfo,
			Store:    c.snap.Store,
			KitSKU:   kit.SKU,
			Message:  "sales window is older than the freshness threshold",
		})
	}
	if window.Partial {
		result.Issues = append(result.Issues, domain.Issue{
			Category: domain.IssuePartialVelocity,
			Severity: domain.SeverityInfo,
			Store:    c.snap.Store,
			KitSKU:   kit.SKU,
			Message:  "sales window truncated by the order feed safety cap",
		})
	}

	// Zero or absent demand means no depletion estimate, never a division.
	if window.DailyRate > 0 && !result.Indeterminate {
		result.DaysOfStock = float64(result.Buildable) / window.DailyRate
		result.DaysOfStockKnown = true
	}
}

func (c *Calculator) status(kit domain.Kit, result domain.EffectiveInventory) domain.BuildStatus {
	switch {
	case result.Indeterminate:
		return domain.StatusIndeterminate
	case result.Buildable == 0:
		return domain.StatusCritical
	case result.Buildable <= c.lowStockThreshold:
		return domain.StatusLow
	default:
		return domain.StatusOK
	}
}
