// Package main provides the SalesCube streaming ingester.
//
// The ingester consumes sales transaction events from Kafka, resolves
// dimension keys, and inserts facts into the warehouse. It runs until
// interrupted and commits offsets only after a fact is persisted.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/salescube-io/salescube/internal/stream"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "ingester"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	streamConfig := stream.LoadConfig()
	if err := streamConfig.Validate(); err != nil {
		logger.Error("Invalid Kafka configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting SalesCube ingester",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("kafka", streamConfig.String()),
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

	consumer, err := stream.NewConsumer(streamConfig, store)
	if err != nil {
		logger.Error("Failed to create consumer", slog.String("error", err.Error()))

		_ = conn.Close()
		os.Exit(1)
	}

	defer func() {
		_ = consumer.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, stream.ErrConsumerClosed) {
		logger.Error("Consumer failed", slog.String("error", err.Error()))

		_ = consumer.Close()
		_ = conn.Close()
		os.Exit(1)
	}

	logger.Info("Ingester stopped")
}
