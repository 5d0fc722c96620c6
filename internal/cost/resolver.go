package cost

import (
	"github.com/shopspring/decimal"

	"github.com/quent-dev/inventory-system/internal/domain"
)

// Resolver resolves unit costs against one snapshot. Results are memoized,
// so resolving the same SKU twice is free and always yields the same
// answer. A Resolver is not safe for concurrent use; the engine builds one
// per computation pass.
type Resolver struct {
	entries map[string]domain.CostEntry
	kits    map[string]domain.Kit

	memo       map[string]domain.Cost
	inProgress map[string]bool
}

func NewResolver(entries map[string]domain.CostEntry, kits map[string]domain.Kit) *Resolver {
	return &Resolver{
		entries:    entries,
		kits:       kits,
		memo:       make(map[string]domain.Cost),
		inProgress: make(map[string]bool),
	}
}

// Resolve returns the unit cost of a SKU.
//
// A manual override, or any non-kit SKU, takes its cost verbatim from the
// cost entries; an absent entry is reported unknown, never defaulted to
// zero. A kit without an override is rolled up from its components, where
// missing component costs degrade the result to partial and a rollup that
// transitively depends on the kit itself is reported as a cycle.
func (r *Resolver) Resolve(sku string) domain.Cost {
	if c, ok := r.memo[sku]; ok {
		return c
	}
	if r.inProgress[sku] {
		// Cycle sentinel; deliberately not memoized so the SKU that
		// entered the cycle records the final state.
		return domain.Cost{State: domain.CostCycle}
	}

	c := r.resolve(sku)
	r.memo[sku] = c
	return c
}

func (r *Resolver) resolve(sku string) domain.Cost {
	entry, hasEntry := r.entries[sku]
	kit, isKit := r.kits[sku]

	if hasEntry && entry.ManualOverride {
		return domain.Cost{State: domain.CostOverride, Amount: entry.UnitCost, Currency: entry.Currency}
	}
	if !isKit {
		if !hasEntry {
			return domain.UnknownCost()
		}
		return domain.Cost{State: domain.CostResolved, Amount: entry.UnitCost, Currency: entry.Currency}
	}

	return r.rollup(kit)
}

func (r *Resolver) rollup(kit domain.Kit) domain.Cost {
	if len(kit.Requirements) == 0 {
		return domain.UnknownCost()
	}

	r.inProgress[kit.SKU] = true
	defer delete(r.inProgress, kit.SKU)

	total := decimal.Zero
	currency := ""
	known, unknown := 0, 0

	for _, req := range kit.Requirements {
		c := r.Resolve(req.ComponentSKU)
		switch c.State {
		case domain.CostCycle:
			// The whole chain is poisoned; report the cycle rather than a
			// misleading partial sum.
			return domain.Cost{State: domain.CostCycle}
		case domain.CostOverride, domain.CostResolved:
			qty := decimal.NewFromFloat(req.QuantityPerKit)
			total = total.Add(c.Amount.Mul(qty))
			if currency == "" {
				currency = c.Currency
			}
			known++
		case domain.CostPartial:
			// A partially known component makes the kit partial too; its
			// known share still contributes.
			qty := decimal.NewFromFloat(req.QuantityPerKit)
			total = total.Add(c.Amount.Mul(qty))
			if currency == "" {
				currency = c.Currency
			}
			unknown++
		default:
			unknown++
		}
	}

	switch {
	case unknown == 0:
		return domain.Cost{State: domain.CostResolved, Amount: total, Currency: currency}
	case known == 0 && total.IsZero():
		return domain.UnknownCost()
	default:
		return domain.Cost{State: domain.CostPartial, Amount: total, Currency: currency}
	}
}
