package engine_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/engine"
)

type fakeVelocity struct {
	windows map[string]domain.SalesWindow
	err     error
}

func (f *fakeVelocity) Get(ctx context.Context, store, sku string) (domain.SalesWindow, error) {
	if f.err != nil {
		return domain.SalesWindow{}, f.err
	}
	return f.windows[sku], nil
}

func (f *fakeVelocity) Peek(store, sku string) (domain.SalesWindow, bool) {
	if f.err != nil {
		return domain.SalesWindow{}, false
	}
	w, ok := f.windows[sku]
	return w, ok
}

func component(sku string, current, reserved int) domain.Component {
	return domain.Component{SKU: sku, CurrentStock: current, ReservedStock: reserved}
}

func requirement(kit, component string, qty float64, critical bool) domain.ComponentRequirement {
	return domain.ComponentRequirement{
		KitSKU:         kit,
		ComponentSKU:   component,
		QuantityPerKit: qty,
		IsCritical:     critical,
	}
}

func testSnapshot(components map[string]domain.Component, kits map[string]domain.Kit, rules map[string]domain.BusinessRule) *engine.Snapshot {
	if rules == nil {
		rules = map[string]domain.BusinessRule{}
	}
	return &engine.Snapshot{
		Store:       "mexico",
		Components:  components,
		Kits:        kits,
		Rules:       rules,
		CostEntries: map[string]domain.CostEntry{},
	}
}

func compute(t *testing.T, snap *engine.Snapshot, kit domain.Kit, vel *fakeVelocity) domain.EffectiveInventory {
	t.Helper()
	if vel == nil {
		vel = &fakeVelocity{}
	}
	calc := engine.NewCalculator(snap, map[string]domain.Cost{}, vel, 5)
	return calc.Compute(context.Background(), kit)
}

func TestCompute_MinRatioAcrossCriticals(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 2, true),
		requirement("KIT-1", "COMP-B", 1, true),
		requirement("KIT-1", "COMP-C", 1, false),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 10, 0), // ratio 5
		"COMP-B": component("COMP-B", 3, 0),  // ratio 3, bottleneck
		"COMP-C": component("COMP-C", 0, 0),  // non-critical, ignored
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if result.Buildable != 3 {
		t.Errorf("Buildable = %d, want 3", result.Buildable)
	}
	if !slices.Equal(result.Bottlenecks, []string{"COMP-B"}) {
		t.Errorf("Bottlenecks = %v, want [COMP-B]", result.Bottlenecks)
	}
	if result.Indeterminate {
		t.Errorf("kit with critical requirements must not be indeterminate")
	}
	if result.Status != domain.StatusLow {
		t.Errorf("Status = %q, want LOW at threshold 5", result.Status)
	}
}

func TestCompute_FractionalQuantityFloors(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1.5, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 10, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	// 10 / 1.5 = 6.66, floored.
	if result.Buildable != 6 {
		t.Errorf("Buildable = %d, want 6", result.Buildable)
	}
}

func TestCompute_BufferAndReservations(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 20, 5),
	}, map[string]domain.Kit{"KIT-1": kit}, map[string]domain.BusinessRule{
		"COMP-A": {ComponentSKU: "COMP-A", MinimumBufferStock: 10},
	})

	result := compute(t, snap, kit, nil)

	// available 15, minus buffer 10.
	if result.Buildable != 5 {
		t.Errorf("Buildable = %d, want 5", result.Buildable)
	}

	breakdown := result.Requirements[0]
	if breakdown.Available != 15 || breakdown.AvailableAfterBuffer != 5 {
		t.Errorf("breakdown = %+v", breakdown)
	}
}

func TestCompute_BufferExceedsAvailable(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 4, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, map[string]domain.BusinessRule{
		"COMP-A": {ComponentSKU: "COMP-A", MinimumBufferStock: 10},
	})

	result := compute(t, snap, kit, nil)

	if result.Buildable != 0 {
		t.Errorf("Buildable = %d, want 0 when buffer exceeds available", result.Buildable)
	}
	if result.Status != domain.StatusCritical {
		t.Errorf("Status = %q, want CRITICAL", result.Status)
	}
}

func TestCompute_OversoldClampsToZero(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 2, 7),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if result.Buildable != 0 {
		t.Errorf("Buildable = %d, want 0 for oversold component", result.Buildable)
	}
	if !hasIssue(result.Issues, domain.IssueOversoldStock) {
		t.Errorf("missing oversold issue: %+v", result.Issues)
	}
}

func TestCompute_MissingCriticalForcesZero(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
		requirement("KIT-1", "COMP-GHOST", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 100, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if result.Buildable != 0 {
		t.Errorf("Buildable = %d, want 0 regardless of other ratios", result.Buildable)
	}
	if !slices.Equal(result.Bottlenecks, []string{"COMP-GHOST"}) {
		t.Errorf("Bottlenecks = %v, want the missing component", result.Bottlenecks)
	}
	if !hasIssue(result.Issues, domain.IssueDanglingReference) {
		t.Errorf("missing dangling-reference issue: %+v", result.Issues)
	}
}

func TestCompute_TiedBottlenecks(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
		requirement("KIT-1", "COMP-B", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 4, 0),
		"COMP-B": component("COMP-B", 4, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if len(result.Bottlenecks) != 2 {
		t.Errorf("Bottlenecks = %v, want both tied components", result.Bottlenecks)
	}
}

func TestCompute_NoCriticalsIsIndeterminate(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, false),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 50, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if !result.Indeterminate {
		t.Fatalf("kit with no critical requirements must be indeterminate, not unlimited")
	}
	if result.Status != domain.StatusIndeterminate {
		t.Errorf("Status = %q, want INDETERMINATE", result.Status)
	}
	if !hasIssue(result.Issues, domain.IssueKitNoCritical) {
		t.Errorf("missing no-critical issue: %+v", result.Issues)
	}
}

func TestCompute_NoComponentsIsIndeterminate(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true}
	snap := testSnapshot(map[string]domain.Component{}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if !result.Indeterminate {
		t.Fatalf("empty kit must be indeterminate")
	}
	if !hasIssue(result.Issues, domain.IssueKitNoComponents) {
		t.Errorf("missing no-components issue: %+v", result.Issues)
	}
}

func TestCompute_AssemblyCapLimitsRecommendedOnly(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 500, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, map[string]domain.BusinessRule{
		"COMP-A": {ComponentSKU: "COMP-A", MaximumAssemblyQty: 100},
	})

	result := compute(t, snap, kit, nil)

	if result.Buildable != 500 {
		t.Errorf("Buildable = %d, the raw quantity must survive the cap", result.Buildable)
	}
	if result.Recommended != 100 {
		t.Errorf("Recommended = %d, want 100", result.Recommended)
	}
}

func TestCompute_NoCapWhenRuleAbsent(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 5000, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, nil)

	if result.Recommended != 5000 {
		t.Errorf("Recommended = %d, want uncapped 5000", result.Recommended)
	}
}

func TestCompute_DaysOfStock(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 60, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	vel := &fakeVelocity{windows: map[string]domain.SalesWindow{
		"KIT-1": {SKU: "KIT-1", UnitsSold: 60, DailyRate: 2},
	}}
	result := compute(t, snap, kit, vel)

	if !result.DaysOfStockKnown {
		t.Fatalf("days of stock should be known with a positive rate")
	}
	if result.DaysOfStock != 30 {
		t.Errorf("DaysOfStock = %v, want 30", result.DaysOfStock)
	}
}

func TestCompute_ZeroRateHasNoDaysOfStock(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 60, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, &fakeVelocity{windows: map[string]domain.SalesWindow{
		"KIT-1": {SKU: "KIT-1", DailyRate: 0},
	}})

	if result.DaysOfStockKnown {
		t.Errorf("zero demand must not produce a depletion estimate")
	}
}

func TestCompute_VelocityUnavailable(t *testing.T) {
	kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
		requirement("KIT-1", "COMP-A", 1, true),
	}}
	snap := testSnapshot(map[string]domain.Component{
		"COMP-A": component("COMP-A", 10, 0),
	}, map[string]domain.Kit{"KIT-1": kit}, nil)

	result := compute(t, snap, kit, &fakeVelocity{err: errors.New("feed down")})

	if result.Buildable != 10 {
		t.Errorf("buildable computation must survive a velocity outage, got %d", result.Buildable)
	}
	if result.DaysOfStockKnown {
		t.Errorf("no velocity, no depletion estimate")
	}
	if !hasIssue(result.Issues, domain.IssueUpstreamUnavailable) {
		t.Errorf("missing upstream-unavailable issue: %+v", result.Issues)
	}
}

func TestCompute_StatusBands(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		want  domain.BuildStatus
	}{
		{"zero is critical", 0, domain.StatusCritical},
		{"at threshold is low", 5, domain.StatusLow},
		{"above threshold is ok", 6, domain.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kit := domain.Kit{SKU: "KIT-1", Active: true, Requirements: []domain.ComponentRequirement{
				requirement("KIT-1", "COMP-A", 1, true),
			}}
			snap := testSnapshot(map[string]domain.Component{
				"COMP-A": component("COMP-A", tt.stock, 0),
			}, map[string]domain.Kit{"KIT-1": kit}, nil)

			result := compute(t, snap, kit, nil)
			if result.Status != tt.want {
				t.Errorf("Status = %q, want %q", result.Status, tt.want)
			}
		})
	}
}

func hasIssue(issues []domain.Issue, category domain.IssueCategory) bool {
	for _, issue := range issues {
		if issue.Category == category {
			return true
		}
	}
	return false
}
