package engine

import (
	"fmt"
	"sort"

	"github.com/quent-dev/inventory-system/internal/domain"
)

// Detector scans a fused snapshot plus its computed results for data and
// inventory anomalies. Scan is a pure function: it has no side effects and
// the same inputs always produce the same issues.
type Detector struct{}

// Scan gathers every issue affecting the snapshot: the issues recorded
// while loading, dataset inconsistencies, and the stock alerts derived
// from the computed results.
func (Detector) Scan(snap *Snapshot, costs map[string]domain.Cost, results []domain.EffectiveInventory) []domain.Issue {
	issues := make([]domain.Issue, 0, len(snap.Issues))
	issues = append(issues, snap.Issues...)

	issues = append(issues, scanKits(snap)...)
	issues = append(issues, scanComponents(snap)...)
	issues = append(issues, scanCosts(snap, costs)...)
	issues = append(issues, scanResults(snap, results)...)

	return issues
}

func scanKits(snap *Snapshot) []domain.Issue {
	var issues []domain.Issue
	for _, sku := range sortedKeys(snap.Kits) {
		kit := snap.Kits[sku]

		if len(kit.Requirements) == 0 {
			issues = append(issues, domain.Issue{
				Category: domain.IssueKitNoComponents,
				Severity: domain.SeverityHigh,
				Store:    snap.Store,
				KitSKU:   kit.SKU,
				Message:  "kit has no component requirements",
			})
			continue
		}
		if len(kit.CriticalRequirements()) == 0 {
			issues = append(issues, domain.Issue{
				Category: domain.IssueKitNoCritical,
				Severity: domain.SeverityWarning,
				Store:    snap.Store,
				KitSKU:   kit.SKU,
				Message:  "kit has no critical requirements",
			})
		}

		for _, req := range kit.Requirements {
			if _, ok := snap.Components[req.ComponentSKU]; !ok {
				issues = append(issues, domain.Issue{
					Category: domain.IssueDanglingReference,
					Severity: domain.SeverityHigh,
					Store:    snap.Store,
					KitSKU:   kit.SKU,
					SKU:      req.ComponentSKU,
					Message:  fmt.Sprintf("kit %s references component %s absent from the catalog", kit.SKU, req.ComponentSKU),
				})
			}
		}
	}
	return issues
}

func scanComponents(snap *Snapshot) []domain.Issue {
	var issues []domain.Issue

	for _, sku := range sortedKeys(snap.Rules) {
		if _, ok := snap.Components[sku]; !ok {
			issues = append(issues, domain.Issue{
				Category: domain.IssueUnknownComponent,
				Severity: domain.SeverityWarning,
				Store:    snap.Store,
				SKU:      sku,
				Message:  "business rule exists for a component absent from the catalog",
			})
		}
	}

	for _, sku := range sortedKeys(snap.Components) {
		comp := snap.Components[sku]
		if comp.Oversold() {
			issues = append(issues, domain.Issue{
				Category: domain.IssueOversoldStock,
				Severity: domain.SeverityWarning,
				Store:    snap.Store,
				SKU:      sku,
				Message: fmt.Sprintf("reserved stock %d exceeds current stock %d",
					comp.ReservedStock, comp.CurrentStock),
			})
		}
	}

	return issues
}

func scanCosts(snap *Snapshot, costs map[string]domain.Cost) []domain.Issue {
	var issues []domain.Issue
	for _, sku := range sortedKeys(costs) {
		c := costs[sku]
		switch c.State {
		case domain.CostCycle:
			issues = append(issues, domain.Issue{
				Category: domain.IssueCostCycle,
				Severity: domain.SeverityWarning,
				Store:    snap.Store,
				SKU:      sku,
				Message:  "cost rollup depends on itself",
			})
		case domain.CostPartial, domain.CostUnknown:
			issues = append(issues, domain.Issue{
				Category: domain.IssueMissingCost,
				Severity: domain.SeverityInfo,
				Store:    snap.Store,
				SKU:      sku,
				Message:  "cost data missing or incomplete",
			})
		}
	}
	return issues
}

func scanResults(snap *Snapshot, results []domain.EffectiveInventory) []domain.Issue {
	var issues []domain.Issue
	for _, result := range results {
		if !result.Indeterminate && result.Buildable <= 0 {
			issues = append(issues, domain.Issue{
				Category: domain.IssueZeroBuildable,
				Severity: domain.SeverityHigh,
				Store:    snap.Store,
				KitSKU:   result.KitSKU,
				Message:  "active kit cannot be assembled from current stock",
			})
		}
		if result.Velocity == nil {
			continue
		}
		if result.Velocity.Stale {
			issues = append(issues, domain.Issue{
				Category: domain.IssueStaleVelocity,
				Severity: domain.SeverityInfo,
				Store:    snap.Store,
				KitSKU:   result.KitSKU,
				Message:  "sales window is older than the freshness threshold",
			})
		}
		if result.Velocity.Partial {
			issues = append(issues, domain.Issue{
				Category: domain.IssuePartialVelocity,
				Severity: domain.SeverityInfo,
				Store:    snap.Store,
				KitSKU:   result.KitSKU,
				Message:  "sales window truncated by the order feed safety cap",
			})
		}
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
