package velocity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/source"
	"github.com/quent-dev/inventory-system/internal/velocity"
)

type fakeCatalog struct {
	feed  source.OrderFeed
	err   error
	calls int
}

func (f *fakeCatalog) ListComponents(ctx context.Context, store string) ([]domain.Component, error) {
	return nil, nil
}

func (f *fakeCatalog) ListOrders(ctx context.Context, store string, since, until time.Time) (source.OrderFeed, error) {
	f.calls++
	if f.err != nil {
		return source.OrderFeed{}, f.err
	}
	return f.feed, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGet_AggregatesWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines: []source.OrderLine{
			{SKU: "KIT-1", Quantity: 3},
			{SKU: "KIT-1", Quantity: 2},
			{SKU: "KIT-2", Quantity: 1},
			{SKU: "", Quantity: 4},
			{SKU: "KIT-3", Quantity: 0},
		},
		Orders: 4,
	}}
	cache := velocity.New(catalog, velocity.WithClock(fixedClock(now)))

	window, err := cache.Get(context.Background(), "mexico", "KIT-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if window.UnitsSold != 5 {
		t.Errorf("UnitsSold = %d, want 5", window.UnitsSold)
	}
	want := 5.0 / velocity.WindowDays
	if window.DailyRate != want {
		t.Errorf("DailyRate = %v, want %v", window.DailyRate, want)
	}
	if window.Stale || window.Partial {
		t.Errorf("fresh full window flagged: %+v", window)
	}
	if got := now.AddDate(0, 0, -velocity.WindowDays); !window.WindowStart.Equal(got) {
		t.Errorf("WindowStart = %v, want %v", window.WindowStart, got)
	}

	// Blank SKU lines are skipped, not merged into another SKU.
	other, err := cache.Get(context.Background(), "mexico", "KIT-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if other.UnitsSold != 0 {
		t.Errorf("KIT-3 UnitsSold = %d, want 0", other.UnitsSold)
	}
}

func TestGet_ZeroSalesIsValidHistory(t *testing.T) {
	catalog := &fakeCatalog{feed: source.OrderFeed{}}
	cache := velocity.New(catalog)

	window, err := cache.Get(context.Background(), "usa", "KIT-SLOW")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if window.UnitsSold != 0 || window.DailyRate != 0 {
		t.Errorf("expected true zero rate, got %+v", window)
	}
	if window.Stale {
		t.Errorf("a zero-sales window is not stale")
	}
}

func TestGet_FreshWindowNotRecomputed(t *testing.T) {
	catalog := &fakeCatalog{feed: source.OrderFeed{}}
	cache := velocity.New(catalog)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx, "mexico", "KIT-1"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if catalog.calls != 1 {
		t.Errorf("feed scanned %d times inside freshness window, want 1", catalog.calls)
	}
}

func TestGet_RecomputesAfterFreshness(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{feed: source.OrderFeed{}}
	cache := velocity.New(catalog, velocity.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	if _, err := cache.Get(ctx, "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	now = now.Add(velocity.Freshness + time.Minute)
	if _, err := cache.Get(ctx, "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if catalog.calls != 2 {
		t.Errorf("feed scanned %d times across freshness expiry, want 2", catalog.calls)
	}
}

func TestGet_TruncatedFeedMarksPartial(t *testing.T) {
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines:     []source.OrderLine{{SKU: "KIT-1", Quantity: 9}},
		Truncated: true,
	}}
	cache := velocity.New(catalog)

	window, err := cache.Get(context.Background(), "mexico", "KIT-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !window.Partial {
		t.Errorf("truncated feed must surface as partial")
	}
	if window.UnitsSold != 9 {
		t.Errorf("partial window still reports its units, got %d", window.UnitsSold)
	}
}

func TestGet_StaleFallbackOnFeedFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines: []source.OrderLine{{SKU: "KIT-1", Quantity: 6}},
	}}
	cache := velocity.New(catalog, velocity.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	if _, err := cache.Get(ctx, "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	catalog.err = errors.New("feed down")
	now = now.Add(velocity.Freshness + time.Minute)

	window, err := cache.Get(ctx, "mexico", "KIT-1")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !window.Stale {
		t.Errorf("fallback window must be marked stale")
	}
	if window.UnitsSold != 6 {
		t.Errorf("stale fallback lost data: %+v", window)
	}
}

func TestGet_UnavailableWithoutHistory(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("feed down")}
	cache := velocity.New(catalog)

	_, err := cache.Get(context.Background(), "mexico", "KIT-1")
	if !errors.Is(err, velocity.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestGet_StoresAreIsolated(t *testing.T) {
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines: []source.OrderLine{{SKU: "KIT-1", Quantity: 3}},
	}}
	cache := velocity.New(catalog)

	ctx := context.Background()
	if _, err := cache.Get(ctx, "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(ctx, "usa", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if catalog.calls != 2 {
		t.Errorf("each store needs its own window, feed scanned %d times", catalog.calls)
	}
}

func TestPeek_NeverRefreshes(t *testing.T) {
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines: []source.OrderLine{{SKU: "KIT-1", Quantity: 2}},
	}}
	cache := velocity.New(catalog)

	if _, ok := cache.Peek("mexico", "KIT-1"); ok {
		t.Fatal("Peek on an empty cache must report no window")
	}
	if catalog.calls != 0 {
		t.Fatalf("Peek triggered %d feed scans, want 0", catalog.calls)
	}

	if _, err := cache.Get(context.Background(), "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	window, ok := cache.Peek("mexico", "KIT-1")
	if !ok || window.UnitsSold != 2 {
		t.Errorf("Peek after Get = (%+v, %v)", window, ok)
	}
	if catalog.calls != 1 {
		t.Errorf("Peek must not rescan the feed, got %d calls", catalog.calls)
	}
}

type memStore struct {
	windows map[string]*velocity.Window
	saves   int
}

func (m *memStore) Load(ctx context.Context, store string) (*velocity.Window, bool, error) {
	w, ok := m.windows[store]
	return w, ok, nil
}

func (m *memStore) Save(ctx context.Context, store string, w *velocity.Window) error {
	if m.windows == nil {
		m.windows = make(map[string]*velocity.Window)
	}
	m.windows[store] = w
	m.saves++
	return nil
}

func TestGet_SeedsFromPersistedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	persisted := &memStore{windows: map[string]*velocity.Window{
		"mexico": {
			Store:       "mexico",
			UnitsBySKU:  map[string]int{"KIT-1": 7},
			WindowStart: now.AddDate(0, 0, -velocity.WindowDays),
			WindowEnd:   now,
			ComputedAt:  now.Add(-time.Hour),
		},
	}}
	catalog := &fakeCatalog{feed: source.OrderFeed{}}
	cache := velocity.New(catalog,
		velocity.WithClock(fixedClock(now)),
		velocity.WithStore(persisted),
	)

	window, err := cache.Get(context.Background(), "mexico", "KIT-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if window.UnitsSold != 7 {
		t.Errorf("persisted window not used, got %+v", window)
	}
	if catalog.calls != 0 {
		t.Errorf("a fresh persisted window must avoid a feed scan, got %d", catalog.calls)
	}
}

func TestGet_PersistsRefreshedWindow(t *testing.T) {
	persisted := &memStore{}
	catalog := &fakeCatalog{feed: source.OrderFeed{
		Lines: []source.OrderLine{{SKU: "KIT-1", Quantity: 1}},
	}}
	cache := velocity.New(catalog, velocity.WithStore(persisted))

	if _, err := cache.Get(context.Background(), "mexico", "KIT-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if persisted.saves != 1 {
		t.Errorf("refreshed window should be persisted once, got %d saves", persisted.saves)
	}
}
