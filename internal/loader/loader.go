package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/source"
)

// Load validates the raw configuration rows of one store and produces the
// typed record collections. A row missing a required field, or carrying a
// non-numeric value in a numeric column, is dropped with a recorded issue;
// it is never silently coerced. Unparsable dates are treated as absent.
func Load(store string, rows map[source.SheetKind][]source.Row) Result {
	r := Result{
		Kits:  make(map[string]domain.Kit),
		Rules: make(map[string]domain.BusinessRule),
		Costs: make(map[string]domain.CostEntry),
	}

	r.loadKits(store, rows[source.SheetKitMaster])
	r.loadRequirements(store, rows[source.SheetComponentMapping])
	r.loadRules(store, rows[source.SheetBusinessRules])
	r.loadCosts(store, rows[source.SheetProductCosts])

	return r
}

// Result holds the typed records of one store plus every validation issue
// recorded while producing them.
type Result struct {
	Kits   map[string]domain.Kit
	Rules  map[string]domain.BusinessRule
	Costs  map[string]domain.CostEntry
	Issues []domain.Issue
}

func (r *Result) loadKits(store string, rows []source.Row) {
	sheet := string(source.SheetKitMaster)
	for _, row := range rows {
		sku := field(row, "Kit SKU")
		if sku == "" {
			r.dropped(store, sheet, "", "Kit SKU", "required field missing")
			continue
		}

		price, ok, err := parseFloat(field(row, "Kit Price"))
		if err != nil {
			r.dropped(store, sheet, sku, "Kit Price", err.Error())
			continue
		}
		if !ok {
			price = 0
		}

		if _, exists := r.Kits[sku]; exists {
			r.issue(domain.Issue{
				Category: domain.IssueValidation,
				Severity: domain.SeverityWarning,
				Store:    store,
				SKU:      sku,
				Sheet:    sheet,
				Message:  "duplicate kit SKU, later row wins",
			})
		}

		r.Kits[sku] = domain.Kit{
			SKU:         sku,
			Name:        field(row, "Kit Name"),
			Description: field(row, "Kit Description"),
			ListPrice:   price,
			Active:      parseActive(field(row, "Active/Inactive Status", "Status")),
			CreatedAt:   parseDate(field(row, "Created Date")),
			ModifiedAt:  parseDate(field(row, "Last Modified Date")),
		}
	}
}

func (r *Result) loadRequirements(store string, rows []source.Row) {
	sheet := string(source.SheetComponentMapping)
	for _, row := range rows {
		kitSKU := field(row, "Kit SKU")
		componentSKU := field(row, "Component SKU")
		if kitSKU == "" || componentSKU == "" {
			r.dropped(store, sheet, componentSKU, "Kit SKU/Component SKU", "required field missing")
			continue
		}

		qty, ok, err := parseFloat(field(row, "Quantity per Kit"))
		if err != nil {
			r.dropped(store, sheet, componentSKU, "Quantity per Kit", err.Error())
			continue
		}
		if !ok {
			qty = 1
		}
		if qty <= 0 {
			r.dropped(store, sheet, componentSKU, "Quantity per Kit", fmt.Sprintf("must be positive, got %v", qty))
			continue
		}

		kit, exists := r.Kits[kitSKU]
		if !exists {
			r.issue(domain.Issue{
				Category: domain.IssueValidation,
				Severity: domain.SeverityWarning,
				Store:    store,
				KitSKU:   kitSKU,
				SKU:      componentSKU,
				Sheet:    sheet,
				Message:  "mapping references a kit absent from Kit Master",
			})
			continue
		}

		kit.Requirements = append(kit.Requirements, domain.ComponentRequirement{
			KitSKU:         kitSKU,
			ComponentSKU:   componentSKU,
			ComponentName:  field(row, "Component Name"),
			QuantityPerKit: qty,
			IsCritical:     parseFlag(field(row, "Is Critical Component (Y/N)", "Is Critical Component"), true),
		})
		r.Kits[kitSKU] = kit
	}
}

func (r *Result) loadRules(store string, rows []source.Row) {
	sheet := string(source.SheetBusinessRules)
	for _, row := range rows {
		sku := field(row, "Component SKU")
		if sku == "" {
			r.dropped(store, sheet, "", "Component SKU", "required field missing")
			continue
		}

		rule := domain.DefaultRule(sku)
		valid := true

		intFields := []struct {
			column string
			dest   *int
		}{
			{"Minimum Buffer Stock", &rule.MinimumBufferStock},
			{"Maximum Kit Assembly Quantity", &rule.MaximumAssemblyQty},
			{"Lead Time for Component Restocking (days)", &rule.LeadTimeDays},
			{"Assembly/Disassembly Labor Time (minutes)", &rule.LaborTimeMinutes},
		}
		for _, f := range intFields {
			v, ok, err := parseInt(field(row, f.column))
			if err != nil {
				r.dropped(store, sheet, sku, f.column, err.Error())
				valid = false
				break
			}
			if ok {
				*f.dest = v
			}
		}
		if !valid {
			continue
		}

		if rule.MinimumBufferStock < 0 || rule.LeadTimeDays < 0 {
			r.dropped(store, sheet, sku, "Minimum Buffer Stock", "negative value")
			continue
		}

		rule.Priority = domain.ParsePriority(field(row, "Priority Level (High/Medium/Low)", "Priority Level"))
		r.Rules[sku] = rule
	}
}

func (r *Result) loadCosts(store string, rows []source.Row) {
	sheet := string(source.SheetProductCosts)
	for _, row := range rows {
		sku := field(row, "SKU")
		if sku == "" {
			r.dropped(store, sheet, "", "SKU", "required field missing")
			continue
		}

		raw := field(row, "Unit Cost")
		if raw == "" {
			r.dropped(store, sheet, sku, "Unit Cost", "required field missing")
			continue
		}
		cost, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			r.dropped(store, sheet, sku, "Unit Cost", fmt.Sprintf("invalid number %q", raw))
			continue
		}
		if cost.IsNegative() {
			r.dropped(store, sheet, sku, "Unit Cost", "negative cost")
			continue
		}

		currency := field(row, "Cost Currency", "Currency")
		if currency == "" {
			currency = "USD"
		}

		r.Costs[sku] = domain.CostEntry{
			SKU:            sku,
			UnitCost:       cost,
			Currency:       currency,
			ManualOverride: parseFlag(field(row, "Manual Override (Y/N)", "Manual Override"), false),
		}
	}
}

func (r *Result) dropped(store, sheet, sku, column, reason string) {
	r.issue(domain.Issue{
		Category: domain.IssueValidation,
		Severity: domain.SeverityWarning,
		Store:    store,
		SKU:      sku,
		Sheet:    sheet,
		Field:    column,
		Message:  "row dropped: " + reason,
	})
}

func (r *Result) issue(i domain.Issue) {
	r.Issues = append(r.Issues, i)
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "(", "", ")", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// field looks a value up by any of the given column names, tolerating the
// header spelling drift the sheets accumulate over time.
func field(row source.Row, names ...string) string {
	for _, name := range names {
		if v, ok := row[name]; ok {
			return strings.TrimSpace(v)
		}
	}
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for k, v := range row {
		if _, ok := targets[normalizeColumnName(k)]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseFloat parses a numeric cell. An empty cell is reported as absent;
// a non-numeric cell is an error, never zero.
func parseFloat(v string) (float64, bool, error) {
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q", v)
	}
	return f, true, nil
}

func parseInt(v string) (int, bool, error) {
	f, ok, err := parseFloat(v)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(f), true, nil
}

// parseDate accepts the two formats the sheets use. Anything else is
// treated as an absent date, not a fatal error.
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseFlag(v string, def bool) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "Y", "YES", "TRUE":
		return true
	case "N", "NO", "FALSE":
		return false
	default:
		return def
	}
}

func parseActive(v string) bool {
	if v == "" {
		return true
	}
	return strings.EqualFold(v, "Active")
}
