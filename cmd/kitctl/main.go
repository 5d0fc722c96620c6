package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/engine"
	"github.com/quent-dev/inventory-system/internal/source/sheets"
	"github.com/quent-dev/inventory-system/internal/source/shopify"
	"github.com/quent-dev/inventory-system/internal/velocity"
	"github.com/quent-dev/inventory-system/pkg/logger"
)

func newStoreFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "store",
		Usage:   "Store identifier (mexico, usa)",
		EnvVars: []string{"ENGINE_DEFAULT_STORE"},
	}
}

func newFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: table or csv",
		Value: "table",
	}
}

func newEngine(ctx context.Context) (*engine.Engine, *config.Config, error) {
	cfg := config.Load()
	logger.SetLevel("warn")

	catalog := shopify.NewClient(cfg)
	configuration, err := sheets.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	velocityStore, err := velocity.NewStore(cfg.Cache)
	if err != nil {
		velocityStore = velocity.NewNoopStore()
	}
	cache := velocity.New(catalog, velocity.WithStore(velocityStore))

	eng := engine.New(catalog, configuration, cache,
		engine.WithLowStockThreshold(cfg.Engine.LowStockThreshold),
		engine.WithWorkers(cfg.Engine.Workers),
	)
	return eng, cfg, nil
}

func storeID(c *cli.Context, cfg *config.Config) string {
	if store := strings.TrimSpace(c.String("store")); store != "" {
		return store
	}
	return cfg.Engine.DefaultStore
}

// parseDeltas turns repeated SKU=QTY flags into a delta map.
func parseDeltas(pairs []string) (map[string]int, error) {
	deltas := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		sku, raw, ok := strings.Cut(pair, "=")
		sku = strings.TrimSpace(sku)
		if !ok || sku == "" {
			return nil, fmt.Errorf("invalid delta %q, expected SKU=QTY", pair)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid delta quantity in %q: %w", pair, err)
		}
		deltas[sku] += qty
	}
	return deltas, nil
}

func writeResults(format string, results []domain.EffectiveInventory) error {
	if format == "csv" {
		w := csv.NewWriter(os.Stdout)
		if err := w.Write([]string{"kit_sku", "kit_name", "status", "buildable", "recommended", "bottlenecks", "days_of_stock", "unit_cost"}); err != nil {
			return err
		}
		for _, r := range results {
			days := ""
			if r.DaysOfStockKnown {
				days = strconv.FormatFloat(r.DaysOfStock, 'f', 1, 64)
			}
			unitCost := ""
			if r.Cost.Known() {
				unitCost = r.Cost.Amount.StringFixed(2)
			}
			buildable := strconv.Itoa(r.Buildable)
			recommended := strconv.Itoa(r.Recommended)
			if r.Indeterminate {
				buildable, recommended = "?", "?"
			}
			record := []string{
				r.KitSKU,
				r.KitName,
				string(r.Status),
				buildable,
				recommended,
				strings.Join(r.Bottlenecks, ";"),
				days,
				unitCost,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIT\tSTATUS\tBUILDABLE\tRECOMMENDED\tBOTTLENECKS\tDAYS\tCOST")
	for _, r := range results {
		days := "n/a"
		if r.DaysOfStockKnown {
			days = strconv.FormatFloat(r.DaysOfStock, 'f', 1, 64)
		}
		unitCost := "?"
		if r.Cost.Known() {
			unitCost = r.Cost.Amount.StringFixed(2)
		}
		buildable := strconv.Itoa(r.Buildable)
		recommended := strconv.Itoa(r.Recommended)
		if r.Indeterminate {
			buildable, recommended = "?", "?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.KitSKU, r.Status, buildable, recommended, strings.Join(r.Bottlenecks, ";"), days, unitCost)
	}
	return tw.Flush()
}

func runReport(c *cli.Context) error {
	eng, cfg, err := newEngine(c.Context)
	if err != nil {
		return err
	}

	results, err := eng.ComputeAll(c.Context, storeID(c, cfg))
	if err != nil {
		return err
	}
	return writeResults(c.String("format"), results)
}

func runAnomalies(c *cli.Context) error {
	eng, cfg, err := newEngine(c.Context)
	if err != nil {
		return err
	}

	issues, err := eng.ScanAnomalies(c.Context, storeID(c, cfg))
	if err != nil {
		return err
	}

	if severity := strings.ToLower(strings.TrimSpace(c.String("severity"))); severity != "" {
		filtered := issues[:0]
		for _, issue := range issues {
			if string(issue.Severity) == severity {
				filtered = append(filtered, issue)
			}
		}
		issues = filtered
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tCATEGORY\tKIT\tSKU\tMESSAGE")
	for _, issue := range issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			issue.Severity, issue.Category, issue.KitSKU, issue.SKU, issue.Message)
	}
	return tw.Flush()
}

func runSimulate(c *cli.Context) error {
	eng, cfg, err := newEngine(c.Context)
	if err != nil {
		return err
	}
	store := storeID(c, cfg)

	var results []domain.EffectiveInventory
	if kit := strings.TrimSpace(c.String("disassemble")); kit != "" {
		qty := c.Int("quantity")
		if qty <= 0 {
			return fmt.Errorf("disassembly needs a positive --quantity")
		}
		results, err = eng.SimulateDisassembly(c.Context, store, kit, qty)
	} else {
		deltas, derr := parseDeltas(c.StringSlice("delta"))
		if derr != nil {
			return derr
		}
		if len(deltas) == 0 {
			return fmt.Errorf("nothing to simulate: pass --delta SKU=QTY or --disassemble KIT")
		}
		results, err = eng.Simulate(c.Context, store, deltas)
	}
	if err != nil {
		return err
	}
	return writeResults(c.String("format"), results)
}

func runStatus(c *cli.Context) error {
	eng, cfg, err := newEngine(c.Context)
	if err != nil {
		return err
	}

	status, err := eng.Status(c.Context, storeID(c, cfg))
	if err != nil {
		return err
	}

	fmt.Printf("store:      %s\n", status.Store)
	fmt.Printf("built at:   %s\n", status.BuiltAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("stale:      %v\n", status.Stale)
	if status.CatalogReachable != nil {
		fmt.Printf("shopify:    reachable=%v\n", *status.CatalogReachable)
	}
	if status.SheetsReachable != nil {
		fmt.Printf("sheets:     reachable=%v\n", *status.SheetsReachable)
	}
	fmt.Printf("components: %d\n", status.Components)
	fmt.Printf("kits:       %d\n", status.Kits)
	fmt.Printf("rules:      %d\n", status.Rules)
	fmt.Printf("cost rows:  %d\n", status.CostRows)
	fmt.Printf("issues:     %d\n", status.Issues)
	return nil
}

func runStores(c *cli.Context) error {
	cfg := config.Load()
	available := cfg.AvailableStores()

	ids := make([]string, 0, len(available))
	for id := range available {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fmt.Printf("%s\t%s\n", id, available[id])
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "kitctl",
		Usage: "Inspect buildable kit inventory across stores",
		Commands: []*cli.Command{
			{
				Name:   "report",
				Usage:  "Compute effective inventory for every active kit",
				Flags:  []cli.Flag{newStoreFlag(), newFormatFlag()},
				Action: runReport,
			},
			{
				Name:  "anomalies",
				Usage: "Scan the fused dataset for data and stock anomalies",
				Flags: []cli.Flag{
					newStoreFlag(),
					&cli.StringFlag{
						Name:  "severity",
						Usage: "Only show issues of this severity (high, warning, info)",
					},
				},
				Action: runAnomalies,
			},
			{
				Name:  "simulate",
				Usage: "Recompute kits against hypothetical stock deltas",
				Flags: []cli.Flag{
					newStoreFlag(),
					newFormatFlag(),
					&cli.StringSliceFlag{
						Name:  "delta",
						Usage: "Stock delta as SKU=QTY, repeatable",
					},
					&cli.StringFlag{
						Name:  "disassemble",
						Usage: "Kit SKU to tear down into component stock",
					},
					&cli.IntFlag{
						Name:  "quantity",
						Usage: "Number of kits to disassemble",
					},
				},
				Action: runSimulate,
			},
			{
				Name:   "status",
				Usage:  "Show dataset health for one store",
				Flags:  []cli.Flag{newStoreFlag()},
				Action: runStatus,
			},
			{
				Name:   "stores",
				Usage:  "List stores with configured credentials",
				Action: runStores,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
