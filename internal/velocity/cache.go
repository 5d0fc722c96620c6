package velocity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/source"
)

const (
	// WindowDays is the trailing sales window length.
	WindowDays = 30
	// Freshness is how long a computed window stays valid.
	Freshness = 6 * time.Hour
)

// ErrUnavailable is returned when the order feed cannot be reached and no
// previously computed window exists to fall back on.
var ErrUnavailable = errors.New("velocity unavailable: order feed unreachable and no cached window")

// Window is one store's aggregated sales window covering all SKUs. The
// whole window is always replaced atomically; it is never patched per SKU.
type Window struct {
	Store       string         `json:"store"`
	UnitsBySKU  map[string]int `json:"units_by_sku"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	ComputedAt  time.Time      `json:"computed_at"`
	Partial     bool           `json:"partial"`
}

func (w *Window) fresh(now time.Time) bool {
	return now.Sub(w.ComputedAt) <= Freshness
}

// view projects the per-store window onto a single SKU. A SKU with no
// orders in the window has a true zero rate; that is demand history, not
// missing data.
func (w *Window) view(sku string, stale bool) domain.SalesWindow {
	units := w.UnitsBySKU[sku]
	return domain.SalesWindow{
		Store:       w.Store,
		SKU:         sku,
		UnitsSold:   units,
		DailyRate:   float64(units) / WindowDays,
		WindowStart: w.WindowStart,
		WindowEnd:   w.WindowEnd,
		ComputedAt:  w.ComputedAt,
		Partial:     w.Partial,
		Stale:       stale,
	}
}

// Cache maintains one sales window per store, recomputed from the raw
// order feed once the freshness period lapses. Concurrent refresh triggers
// for the same store collapse into a single feed scan.
type Cache struct {
	catalog source.Catalog
	persist Store
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*Window

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithStore attaches an optional persistence layer so windows survive
// process restarts. The persisted blob is never a source of truth.
func WithStore(s Store) Option {
	return func(c *Cache) { c.persist = s }
}

func New(catalog source.Catalog, opts ...Option) *Cache {
	c := &Cache{
		catalog: catalog,
		persist: NewNoopStore(),
		now:     time.Now,
		entries: make(map[string]*Window),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the sales window entry for one SKU, refreshing the store's
// window first when it is missing or stale. A failed refresh falls back to
// the previous window marked stale rather than reporting zero velocity.
func (c *Cache) Get(ctx context.Context, store, sku string) (domain.SalesWindow, error) {
	c.mu.RLock()
	entry := c.entries[store]
	c.mu.RUnlock()

	if entry == nil {
		entry = c.loadPersisted(ctx, store)
	}
	if entry != nil && entry.fresh(c.now()) {
		return entry.view(sku, false), nil
	}

	refreshed, err, _ := c.group.Do(store, func() (any, error) {
		return c.refresh(ctx, store)
	})
	if err != nil {
		if entry != nil {
			log.Warn().Err(err).Str("store", store).Msg("velocity refresh failed, serving stale window")
			return entry.view(sku, true), nil
		}
		return domain.SalesWindow{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return refreshed.(*Window).view(sku, false), nil
}

// Peek returns the currently cached entry for a SKU without triggering any
// refresh or I/O. The second return reports whether a window exists at all.
func (c *Cache) Peek(store, sku string) (domain.SalesWindow, bool) {
	c.mu.RLock()
	entry := c.entries[store]
	c.mu.RUnlock()

	if entry == nil {
		return domain.SalesWindow{}, false
	}
	return entry.view(sku, !entry.fresh(c.now())), true
}

// refresh scans the full order feed for the trailing window and replaces
// the store's entry atomically. Runs deduplicated via singleflight.
func (c *Cache) refresh(ctx context.Context, store string) (*Window, error) {
	// A concurrent caller may have completed the refresh while this one
	// queued behind the singleflight gate.
	c.mu.RLock()
	if entry := c.entries[store]; entry != nil && entry.fresh(c.now()) {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	until := c.now()
	since := until.AddDate(0, 0, -WindowDays)

	feed, err := c.catalog.ListOrders(ctx, store, since, until)
	if err != nil {
		return nil, err
	}

	units := make(map[string]int)
	for _, line := range feed.Lines {
		// Blank SKUs are skipped, not counted against any SKU.
		if line.SKU == "" || line.Quantity <= 0 {
			continue
		}
		units[line.SKU] += line.Quantity
	}

	window := &Window{
		Store:       store,
		UnitsBySKU:  units,
		WindowStart: since,
		WindowEnd:   until,
		ComputedAt:  until,
		Partial:     feed.Truncated,
	}

	c.mu.Lock()
	c.entries[store] = window
	c.mu.Unlock()

	if err := c.persist.Save(ctx, store, window); err != nil {
		log.Warn().Err(err).Str("store", store).Msg("velocity: persist window failed")
	}

	log.Info().
		Str("store", store).
		Int("orders", feed.Orders).
		Int("skus", len(units)).
		Bool("partial", feed.Truncated).
		Msg("velocity window recomputed")

	return window, nil
}

// loadPersisted seeds the in-memory entry from the persistence layer, if
// one was configured and holds a window for this store.
func (c *Cache) loadPersisted(ctx context.Context, store string) *Window {
	window, ok, err := c.persist.Load(ctx, store)
	if err != nil {
		log.Warn().Err(err).Str("store", store).Msg("velocity: load persisted window failed")
		return nil
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.entries[store]; existing != nil {
		return existing
	}
	c.entries[store] = window
	return window
}
