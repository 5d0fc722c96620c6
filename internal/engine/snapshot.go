package engine

import (
	"sort"
	"time"

	"github.com/quent-dev/inventory-system/internal/domain"
)

// Snapshot is the fused, point-in-time dataset of one store: catalog
// components plus the typed sheet records, along with every issue recorded
// while loading them. Snapshots are immutable once built; the simulator
// works on shallow clones with replaced component maps.
type Snapshot struct {
	Store   string
	BuiltAt time.Time

	Components  map[string]domain.Component
	Kits        map[string]domain.Kit
	Rules       map[string]domain.BusinessRule
	CostEntries map[string]domain.CostEntry

	Issues []domain.Issue

	// Stale marks a snapshot served from the last-known data because an
	// upstream source was unavailable.
	Stale bool
}

// Rule returns the business rule for a component, falling back to the
// system defaults when none is configured.
func (s *Snapshot) Rule(componentSKU string) domain.BusinessRule {
	if rule, ok := s.Rules[componentSKU]; ok {
		return rule
	}
	return domain.DefaultRule(componentSKU)
}

// ActiveKits returns the store's active kits in stable SKU order.
func (s *Snapshot) ActiveKits() []domain.Kit {
	kits := make([]domain.Kit, 0, len(s.Kits))
	for _, kit := range s.Kits {
		if kit.Active {
			kits = append(kits, kit)
		}
	}
	sort.Slice(kits, func(i, j int) bool { return kits[i].SKU < kits[j].SKU })
	return kits
}

// withComponents returns a shallow clone of the snapshot with its
// component map swapped out. Used by the simulator so the original
// snapshot is never mutated.
func (s *Snapshot) withComponents(components map[string]domain.Component) *Snapshot {
	clone := *s
	clone.Components = components
	return &clone
}
