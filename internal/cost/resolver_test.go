package cost_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quent-dev/inventory-system/internal/cost"
	"github.com/quent-dev/inventory-system/internal/domain"
)

func entry(sku, unitCost string, override bool) domain.CostEntry {
	return domain.CostEntry{
		SKU:            sku,
		UnitCost:       decimal.RequireFromString(unitCost),
		Currency:       "USD",
		ManualOverride: override,
	}
}

func kit(sku string, reqs ...domain.ComponentRequirement) domain.Kit {
	return domain.Kit{SKU: sku, Requirements: reqs}
}

func req(component string, qty float64) domain.ComponentRequirement {
	return domain.ComponentRequirement{ComponentSKU: component, QuantityPerKit: qty}
}

func TestResolve_ComponentStates(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "10.00", false),
	}
	r := cost.NewResolver(entries, nil)

	a := r.Resolve("COMP-A")
	if a.State != domain.CostResolved || !a.Amount.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("COMP-A = %+v, want resolved 10.00", a)
	}

	missing := r.Resolve("COMP-MISSING")
	if missing.State != domain.CostUnknown {
		t.Errorf("missing entry = %+v, want unknown, never zero", missing)
	}
}

func TestResolve_OverrideBeatsRollup(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"KIT-1":  entry("KIT-1", "99.00", true),
		"COMP-A": entry("COMP-A", "10.00", false),
	}
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("COMP-A", 5)),
	}

	got := cost.NewResolver(entries, kits).Resolve("KIT-1")
	if got.State != domain.CostOverride {
		t.Fatalf("state = %q, want override", got.State)
	}
	if !got.Amount.Equal(decimal.RequireFromString("99.00")) {
		t.Errorf("override amount = %s, want 99.00 (rollup would be 50.00)", got.Amount)
	}
}

func TestResolve_Rollup(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "2.50", false),
		"COMP-B": entry("COMP-B", "1.00", false),
	}
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("COMP-A", 2), req("COMP-B", 3)),
	}

	got := cost.NewResolver(entries, kits).Resolve("KIT-1")
	if got.State != domain.CostResolved {
		t.Fatalf("state = %q, want resolved", got.State)
	}
	if !got.Amount.Equal(decimal.RequireFromString("8.00")) {
		t.Errorf("rollup = %s, want 8.00", got.Amount)
	}
	if got.Currency != "USD" {
		t.Errorf("currency = %q", got.Currency)
	}
}

func TestResolve_NestedRollup(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "4.00", false),
	}
	kits := map[string]domain.Kit{
		"OUTER": kit("OUTER", req("INNER", 2)),
		"INNER": kit("INNER", req("COMP-A", 3)),
	}

	got := cost.NewResolver(entries, kits).Resolve("OUTER")
	if got.State != domain.CostResolved || !got.Amount.Equal(decimal.RequireFromString("24.00")) {
		t.Errorf("nested rollup = %+v, want resolved 24.00", got)
	}
}

func TestResolve_PartialRollup(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "5.00", false),
	}
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("COMP-A", 2), req("COMP-MISSING", 1)),
	}

	got := cost.NewResolver(entries, kits).Resolve("KIT-1")
	if got.State != domain.CostPartial {
		t.Fatalf("state = %q, want partial", got.State)
	}
	if !got.Amount.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("partial sum = %s, want the known share 10.00", got.Amount)
	}
}

func TestResolve_AllUnknown(t *testing.T) {
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("COMP-X", 1), req("COMP-Y", 2)),
	}

	got := cost.NewResolver(nil, kits).Resolve("KIT-1")
	if got.State != domain.CostUnknown {
		t.Errorf("state = %q, want unknown when no term is known", got.State)
	}
}

func TestResolve_KitWithoutRequirements(t *testing.T) {
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1"),
	}

	got := cost.NewResolver(nil, kits).Resolve("KIT-1")
	if got.State != domain.CostUnknown {
		t.Errorf("state = %q, want unknown", got.State)
	}
}

func TestResolve_Cycle(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "1.00", false),
	}
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("KIT-2", 1), req("COMP-A", 1)),
		"KIT-2": kit("KIT-2", req("KIT-1", 1)),
	}

	r := cost.NewResolver(entries, kits)
	if got := r.Resolve("KIT-1"); got.State != domain.CostCycle {
		t.Errorf("KIT-1 = %+v, want cycle", got)
	}
	if got := r.Resolve("KIT-2"); got.State != domain.CostCycle {
		t.Errorf("KIT-2 = %+v, want cycle", got)
	}
}

func TestResolve_SelfCycle(t *testing.T) {
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("KIT-1", 1)),
	}

	got := cost.NewResolver(nil, kits).Resolve("KIT-1")
	if got.State != domain.CostCycle {
		t.Errorf("self-referential kit = %+v, want cycle", got)
	}
}

func TestResolve_Memoized(t *testing.T) {
	entries := map[string]domain.CostEntry{
		"COMP-A": entry("COMP-A", "3.00", false),
	}
	kits := map[string]domain.Kit{
		"KIT-1": kit("KIT-1", req("COMP-A", 2)),
	}

	r := cost.NewResolver(entries, kits)
	first := r.Resolve("KIT-1")
	second := r.Resolve("KIT-1")

	if first.State != second.State || !first.Amount.Equal(second.Amount) {
		t.Errorf("resolution not idempotent: %+v then %+v", first, second)
	}
}
