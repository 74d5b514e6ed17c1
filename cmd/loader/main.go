// Package main provides the SalesCube batch loader.
//
// The loader populates the date dimension, loads the shop and product
// dimensions from CSV exports, and bulk-inserts sales facts with
// dimension key resolution.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/salescube-io/salescube/internal/etl"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "loader"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	loaderConfig, err := etl.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting SalesCube loader",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("sales_csv", loaderConfig.SalesCSV),
		slog.String("shops_csv", loaderConfig.ShopsCSV),
		slog.String("products_csv", loaderConfig.ProductsCSV),
		slog.Int("start_year", loaderConfig.StartYear),
		slog.Int("end_year", loaderConfig.EndYear),
		slog.Int("batch_size", loaderConfig.BatchSize),
	)

	warehouseConfig := warehouse.LoadConfig()

	conn, err := warehouse.NewConnection(warehouseConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = conn.Close()
	}()

	store, err := warehouse.NewSalesStore(conn)
	if err != nil {
		logger.Error("Failed to create sales store", slog.String("error", err.Error()))

		_ = conn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	loader := etl.NewLoader(conn, store, loaderConfig)

	stats, err := loader.Run(context.Background())
	if err != nil {
		logger.Error("Load failed", slog.String("error", err.Error()))

		_ = conn.Close()
		os.Exit(1)
	}

	logger.Info("Load complete",
		slog.Int("dates_inserted", stats.DatesInserted),
		slog.Int("shops_loaded", stats.ShopsLoaded),
		slog.Int("products_loaded", stats.ProductsLoaded),
		slog.Int("facts_loaded", stats.FactsLoaded),
		slog.Int("rows_skipped", stats.RowsSkipped),
	)
}
