// Package main provides the SalesCube analysis service.
//
// The service exposes drill-down/roll-up navigation sessions, full-cube
// and cross-tab aggregation analyses over the sales star schema.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/salescube-io/salescube/internal/api"
	"github.com/salescube-io/salescube/internal/api/middleware"
	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "salescube"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting SalesCube service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Rate limiter (graceful shutdown handled by server.shutdown())
	middlewareConfig := middleware.LoadConfig()

	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("global_burst", middlewareConfig.GlobalBurst),
		slog.Int("client_rps", middlewareConfig.ClientRPS),
		slog.Int("client_burst", middlewareConfig.ClientBurst),
		slog.Int("unauth_rps", middlewareConfig.UnAuthRPS),
		slog.Int("unauth_burst", middlewareConfig.UnAuthBurst),
	)

	warehouseConfig := warehouse.LoadConfig()

	dbConn, err := warehouse.NewConnection(warehouseConfig)
	if err != nil {
		logger.Error("Failed to connect to warehouse", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	var apiKeyStore warehouse.APIKeyStore

	authEnabled := config.GetEnvBool("SALESCUBE_AUTH_ENABLED", false)
	if authEnabled {
		apiKeyStore, err = warehouse.NewPersistentKeyStore(dbConn)
		if err != nil {
			logger.Error("Failed to connect to persistent key store", slog.String("error", err.Error()))

			_ = dbConn.Close()
			//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
			os.Exit(1)
		}

		logger.Info("Client authentication enabled",
			slog.String("database_url", warehouseConfig.MaskDatabaseURL()),
		)
	} else {
		logger.Warn("Client authentication disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set SALESCUBE_AUTH_ENABLED=true to enable API key authentication"),
		)
	}

	salesStore, err := warehouse.NewSalesStore(dbConn)
	if err != nil {
		logger.Error("Failed to create sales store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	logger.Info("Sales store initialized",
		slog.String("database_url", warehouseConfig.MaskDatabaseURL()),
	)

	server := api.NewServer(serverConfig, salesStore, salesStore, apiKeyStore, rateLimiter)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}
