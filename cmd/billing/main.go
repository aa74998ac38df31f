package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"rental-billing/internal/app"
	"rental-billing/internal/core"
	"rental-billing/internal/db"
	"rental-billing/internal/store"
)

// eventFile is the JSON document the CLI consumes: a fully resolved event plus
// the reference lists used for grouping. In a deployment this data comes from
// the surrounding API layer; the CLI stands in for it.
type eventFile struct {
	Event      core.EventSnapshotInput `json:"event"`
	References core.ReferenceData      `json:"references"`
}

func main() {
	_ = godotenv.Load()

	var (
		eventPath  = flag.String("event", "", "path to the event JSON file (required)")
		kind       = flag.String("kind", "bill", "document kind: bill or estimate")
		discount   = flag.String("discount", "0", "discount rate in percent, applied to discountable lines")
		scope      = flag.String("scope", "per_year", "number sequence scope: per_year or global")
		date       = flag.String("date", "", "document date (YYYY-MM-DD, default today)")
		dimension  = flag.String("dimension", "subcategory", "grouping dimension for export: category, subcategory, park or flat")
		exportPath = flag.String("export", "", "write the document workbook (.xlsx) to this path")
		withHidden = flag.Bool("with-hidden", false, "include hidden free materials in the export")
	)
	flag.Parse()

	if *eventPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	input, err := readEventFile(*eventPath)
	if err != nil {
		log.Fatalf("event file: %v", err)
	}

	discountRate, err := decimal.NewFromString(*discount)
	if err != nil {
		log.Fatalf("invalid discount rate %q: %v", *discount, err)
	}

	docDate := time.Now()
	if *date != "" {
		docDate, err = time.Parse("2006-01-02", *date)
		if err != nil {
			log.Fatalf("invalid document date %q: %v", *date, err)
		}
	}

	rates, err := ratesFromEnv()
	if err != nil {
		log.Fatalf("billing rates: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	ctx := context.Background()
	if err := runMigrations(dsn); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	svc := app.NewBillingService(pool, store.New(pool))

	req := app.GenerateRequest{
		Event:        input.Event,
		Rates:        rates,
		DiscountRate: discountRate,
		NumberScope:  store.NumberScope(*scope),
		Date:         docDate,
	}

	var snap *core.FinancialSnapshot
	switch core.SnapshotKind(*kind) {
	case core.SnapshotBill:
		snap, err = svc.GenerateBill(ctx, req)
	case core.SnapshotEstimate:
		snap, err = svc.GenerateEstimate(ctx, req)
	default:
		log.Fatalf("unknown document kind %q", *kind)
	}
	if err != nil {
		log.Fatalf("generate %s: %v", *kind, err)
	}

	fmt.Printf("%s %s, event %d: %s %s due, %s %s replacement value\n",
		snap.Kind, snap.Number, snap.EventID,
		snap.DueAmount, snap.Currency, snap.ReplacementAmount, snap.Currency)

	if *exportPath != "" {
		err := svc.ExportMaterialList(snap, input.References, core.GroupingDimension(*dimension), *withHidden, *exportPath)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		fmt.Printf("workbook written to %s\n", *exportPath)
	}
}

func readEventFile(path string) (*eventFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f eventFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// ratesFromEnv reads the billing settings once, before any computation starts.
// They are passed through as an immutable value from here on.
func ratesFromEnv() (core.BillingRates, error) {
	vat := os.Getenv("VAT_RATE")
	if vat == "" {
		vat = "20"
	}
	vatRate, err := decimal.NewFromString(vat)
	if err != nil {
		return core.BillingRates{}, fmt.Errorf("invalid VAT_RATE %q: %w", vat, err)
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "EUR"
	}

	return core.BillingRates{
		VatRate:               vatRate,
		DegressiveRateFormula: os.Getenv("DEGRESSIVE_RATE_FORMULA"),
		Currency:              currency,
	}, nil
}

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}
