package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/cost"
	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/loader"
	"github.com/quent-dev/inventory-system/internal/source"
	"github.com/quent-dev/inventory-system/internal/velocity"
)

// Velocity is the subset of the velocity cache the engine depends on.
type Velocity interface {
	VelocityReader
	VelocityPeeker
}

// Engine is the store-keyed facade over the inventory computation. All
// operations take an explicit store identifier; an identifier outside the
// configured registry is a hard error, everything else degrades into
// issues attached to best-effort results.
type Engine struct {
	catalog       source.Catalog
	configuration source.Configuration
	velocity      Velocity

	lowStockThreshold int
	workers           int
	knownStore        func(string) bool

	mu        sync.Mutex
	lastSnaps map[string]*Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithLowStockThreshold sets the buildable quantity at or below which an
// OK kit is banded LOW.
func WithLowStockThreshold(n int) Option {
	return func(e *Engine) { e.lowStockThreshold = n }
}

// WithWorkers bounds the per-kit computation fan-out.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithStores restricts the engine to an explicit set of store ids instead
// of the configured registry.
func WithStores(ids ...string) Option {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return func(e *Engine) { e.knownStore = func(id string) bool { return known[id] } }
}

func New(catalog source.Catalog, configuration source.Configuration, vel Velocity, opts ...Option) *Engine {
	e := &Engine{
		catalog:           catalog,
		configuration:     configuration,
		velocity:          vel,
		lowStockThreshold: 5,
		workers:           4,
		knownStore:        config.KnownStore,
		lastSnaps:         make(map[string]*Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	return e
}

// Snapshot builds the fused dataset for one store. When an upstream
// source is unavailable it falls back to the last-known snapshot marked
// stale; with no previous snapshot the failure surfaces as an error.
func (e *Engine) Snapshot(ctx context.Context, store string) (*Snapshot, error) {
	if !e.knownStore(store) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStore, store)
	}

	snap, err := e.buildSnapshot(ctx, store)
	if err != nil {
		e.mu.Lock()
		last := e.lastSnaps[store]
		e.mu.Unlock()
		if last == nil {
			return nil, fmt.Errorf("snapshot for %s: %w", store, err)
		}

		log.Warn().Err(err).Str("store", store).Msg("upstream unavailable, serving last-known snapshot")
		stale := *last
		stale.Stale = true
		stale.Issues = append(append([]domain.Issue(nil), last.Issues...), domain.Issue{
			Category: domain.IssueUpstreamUnavailable,
			Severity: domain.SeverityWarning,
			Store:    store,
			Message:  fmt.Sprintf("upstream source unavailable, using snapshot from %s", last.BuiltAt.Format(time.RFC3339)),
		})
		return &stale, nil
	}

	e.mu.Lock()
	e.lastSnaps[store] = snap
	e.mu.Unlock()
	return snap, nil
}

func (e *Engine) buildSnapshot(ctx context.Context, store string) (*Snapshot, error) {
	componentList, err := e.catalog.ListComponents(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}

	rows := make(map[source.SheetKind][]source.Row, len(source.SheetKinds))
	for _, kind := range source.SheetKinds {
		sheetRows, err := e.configuration.LoadSheet(ctx, store, kind)
		if err != nil {
			return nil, fmt.Errorf("load sheet %s: %w", kind, err)
		}
		rows[kind] = sheetRows
	}

	loaded := loader.Load(store, rows)

	components := make(map[string]domain.Component, len(componentList))
	for _, comp := range componentList {
		components[comp.SKU] = comp
	}

	return &Snapshot{
		Store:       store,
		BuiltAt:     time.Now(),
		Components:  components,
		Kits:        loaded.Kits,
		Rules:       loaded.Rules,
		CostEntries: loaded.Costs,
		Issues:      loaded.Issues,
	}, nil
}

// resolveCosts resolves every kit cost sequentially up front; the resolver
// memoizes within one pass and is not safe for concurrent use.
func (e *Engine) resolveCosts(snap *Snapshot) map[string]domain.Cost {
	resolver := cost.NewResolver(snap.CostEntries, snap.Kits)
	costs := make(map[string]domain.Cost, len(snap.Kits))
	for _, kit := range snap.ActiveKits() {
		costs[kit.SKU] = resolver.Resolve(kit.SKU)
	}
	return costs
}

// ComputeAll computes the effective inventory for every active kit of a
// store. Kit computations share the immutable snapshot and fan out over a
// bounded worker group; results come back in stable SKU order.
func (e *Engine) ComputeAll(ctx context.Context, store string) ([]domain.EffectiveInventory, error) {
	snap, err := e.Snapshot(ctx, store)
	if err != nil {
		return nil, err
	}
	results, _ := e.computeAll(ctx, snap)
	return results, nil
}

func (e *Engine) computeAll(ctx context.Context, snap *Snapshot) ([]domain.EffectiveInventory, map[string]domain.Cost) {
	costs := e.resolveCosts(snap)
	calc := NewCalculator(snap, costs, e.velocity, e.lowStockThreshold)

	kits := snap.ActiveKits()
	results := make([]domain.EffectiveInventory, len(kits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, kit := range kits {
		i, kit := i, kit
		g.Go(func() error {
			results[i] = calc.Compute(gctx, kit)
			return nil
		})
	}
	// Workers never return errors; degraded inputs become issues on the
	// individual results instead.
	_ = g.Wait()

	return results, costs
}

// ScanAnomalies returns every issue found in the store's fused dataset.
func (e *Engine) ScanAnomalies(ctx context.Context, store string) ([]domain.Issue, error) {
	snap, err := e.Snapshot(ctx, store)
	if err != nil {
		return nil, err
	}

	results, costs := e.computeAll(ctx, snap)
	return Detector{}.Scan(snap, costs, results), nil
}

// Simulate recomputes the store's kits against hypothetical stock deltas
// without touching the underlying snapshot or any cache.
func (e *Engine) Simulate(ctx context.Context, store string, deltas map[string]int) ([]domain.EffectiveInventory, error) {
	snap, err := e.Snapshot(ctx, store)
	if err != nil {
		return nil, err
	}

	costs := e.resolveCosts(snap)
	return Simulate(ctx, snap, costs, e.velocity, e.lowStockThreshold, deltas), nil
}

// SimulateDisassembly converts tearing down n units of a kit into
// component stock gains and simulates the result.
func (e *Engine) SimulateDisassembly(ctx context.Context, store, kitSKU string, n int) ([]domain.EffectiveInventory, error) {
	snap, err := e.Snapshot(ctx, store)
	if err != nil {
		return nil, err
	}

	kit, ok := snap.Kits[kitSKU]
	if !ok {
		return nil, fmt.Errorf("unknown kit %q in store %s", kitSKU, store)
	}

	costs := e.resolveCosts(snap)
	return Simulate(ctx, snap, costs, e.velocity, e.lowStockThreshold, DisassemblyDeltas(kit, n)), nil
}

// Velocity returns the sales window entry for one SKU.
func (e *Engine) Velocity(ctx context.Context, store, sku string) (domain.SalesWindow, error) {
	if !e.knownStore(store) {
		return domain.SalesWindow{}, fmt.Errorf("%w: %q", config.ErrUnknownStore, store)
	}
	return e.velocity.Get(ctx, store, sku)
}

// Status summarizes the health of one store's dataset. The connectivity
// fields are nil when the underlying source does not support a probe.
type Status struct {
	Store            string    `json:"store"`
	BuiltAt          time.Time `json:"built_at"`
	Stale            bool      `json:"stale"`
	CatalogReachable *bool     `json:"catalog_reachable,omitempty"`
	SheetsReachable  *bool     `json:"sheets_reachable,omitempty"`
	Components       int       `json:"components"`
	Kits             int       `json:"kits"`
	Rules            int       `json:"rules"`
	CostRows         int       `json:"cost_rows"`
	Issues           int       `json:"issues"`
}

type catalogProber interface {
	TestConnection(ctx context.Context, store string) bool
}

type configurationProber interface {
	TestConnection(ctx context.Context) bool
}

// Status reports source connectivity, record counts and the overall issue
// count for a store.
func (e *Engine) Status(ctx context.Context, store string) (Status, error) {
	snap, err := e.Snapshot(ctx, store)
	if err != nil {
		return Status{}, err
	}

	results, costs := e.computeAll(ctx, snap)
	issues := Detector{}.Scan(snap, costs, results)

	status := Status{
		Store:      store,
		BuiltAt:    snap.BuiltAt,
		Stale:      snap.Stale,
		Components: len(snap.Components),
		Kits:       len(snap.Kits),
		Rules:      len(snap.Rules),
		CostRows:   len(snap.CostEntries),
		Issues:     len(issues),
	}
	if prober, ok := e.catalog.(catalogProber); ok {
		reachable := prober.TestConnection(ctx, store)
		status.CatalogReachable = &reachable
	}
	if prober, ok := e.configuration.(configurationProber); ok {
		reachable := prober.TestConnection(ctx)
		status.SheetsReachable = &reachable
	}
	return status, nil
}

var _ Velocity = (*velocity.Cache)(nil)
