package source

import (
	"context"
	"time"

	"github.com/quent-dev/inventory-system/internal/domain"
)

// Row is one raw spreadsheet row, keyed by column header. Schema
// enforcement is the loader's job, not the source's.
type Row map[string]string

// SheetKind names the four configuration worksheets.
type SheetKind string

const (
	SheetKitMaster        SheetKind = "Kit Master"
	SheetComponentMapping SheetKind = "Component Mapping"
	SheetBusinessRules    SheetKind = "Business Rules"
	SheetProductCosts     SheetKind = "Product Costs"
)

// SheetKinds lists all configuration sheets in load order.
var SheetKinds = []SheetKind{
	SheetKitMaster,
	SheetComponentMapping,
	SheetBusinessRules,
	SheetProductCosts,
}

// OrderLine is a single line item from the order feed. SKU may be blank;
// blank lines are skipped by the velocity aggregation.
type OrderLine struct {
	SKU       string
	Quantity  int
	CreatedAt time.Time
}

// OrderFeed is a bounded scan of a store's order history. Truncated is set
// when the feed stopped at its safety cap before exhausting the window.
type OrderFeed struct {
	Lines     []OrderLine
	Orders    int
	Truncated bool
}

// Catalog provides components and order history for a store. Pagination
// and rate limiting are owned by the implementation.
type Catalog interface {
	ListComponents(ctx context.Context, store string) ([]domain.Component, error)
	ListOrders(ctx context.Context, store string, since, until time.Time) (OrderFeed, error)
}

// Configuration provides the raw rows of a store's configuration sheets.
type Configuration interface {
	LoadSheet(ctx context.Context, store string, kind SheetKind) ([]Row, error)
}
