package engine

import (
	"context"
	"errors"
	"math"

	"github.com/quent-dev/inventory-system/internal/domain"
)

var errNoWindow = errors.New("no cached sales window")

// VelocityPeeker reads already-cached sales windows without triggering a
// refresh. The simulator depends on this narrower contract because
// simulation must perform no I/O.
type VelocityPeeker interface {
	Peek(store, sku string) (domain.SalesWindow, bool)
}

// peekReader adapts a VelocityPeeker to the calculator's reader interface.
type peekReader struct {
	peeker VelocityPeeker
}

func (r peekReader) Get(_ context.Context, store, sku string) (domain.SalesWindow, error) {
	window, ok := r.peeker.Peek(store, sku)
	if !ok {
		return domain.SalesWindow{}, errNoWindow
	}
	return window, nil
}

// Simulate applies hypothetical stock deltas against a snapshot and
// recomputes every active kit. The snapshot and the velocity cache are
// left untouched: the same snapshot and deltas always yield the same
// results.
func Simulate(ctx context.Context, snap *Snapshot, costs map[string]domain.Cost, peeker VelocityPeeker, lowStockThreshold int, deltas map[string]int) []domain.EffectiveInventory {
	components := make(map[string]domain.Component, len(snap.Components))
	for sku, comp := range snap.Components {
		components[sku] = comp
	}

	for sku, delta := range deltas {
		comp, ok := components[sku]
		if !ok {
			// Restocking a SKU the catalog has never seen introduces it;
			// removing stock from one is a no-op.
			if delta <= 0 {
				continue
			}
			components[sku] = domain.Component{SKU: sku, CurrentStock: delta}
			continue
		}
		comp.CurrentStock += delta
		components[sku] = comp
	}

	shadow := snap.withComponents(components)
	calc := NewCalculator(shadow, costs, peekReader{peeker}, lowStockThreshold)

	kits := shadow.ActiveKits()
	results := make([]domain.EffectiveInventory, 0, len(kits))
	for _, kit := range kits {
		results = append(results, calc.Compute(ctx, kit))
	}
	return results
}

// DisassemblyDeltas converts tearing down n units of a kit into the
// positive per-component stock deltas that disassembly would yield.
// Fractional gains are floored; you cannot shelve half a component.
func DisassemblyDeltas(kit domain.Kit, n int) map[string]int {
	deltas := make(map[string]int, len(kit.Requirements))
	if n <= 0 {
		return deltas
	}
	for _, req := range kit.Requirements {
		gained := int(math.Floor(req.QuantityPerKit * float64(n)))
		if gained <= 0 {
			continue
		}
		deltas[req.ComponentSKU] += gained
	}
	return deltas
}
