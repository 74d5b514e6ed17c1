// Package middleware provides HTTP middleware components for the SalesCube API.
package middleware

import (
	"time"

	"github.com/salescube-io/salescube/internal/config"
)

// Config holds rate limiter configuration.
//
// Rate limits specify requests per second (RPS) for three tiers:
//   - Global: Applied to all requests
//   - Per-client: Applied to authenticated requests
//   - Unauthenticated: Applied to requests without client ID
//
// Burst capacity allows temporary bursts above sustained rate.
// If burst fields are 0, they are computed automatically as 2 × rate.
type Config struct {
	// Rate limits (requests per second)
	GlobalRPS int // Default: 100
	ClientRPS int // Default: 50
	UnAuthRPS int // Default: 10

	// Optional burst capacity overrides (0 = compute automatically as 2 × rate)
	GlobalBurst int
	ClientBurst int
	UnAuthBurst int

	// Memory cleanup configuration
	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxClients      int           // Default: 100
}

// LoadConfig loads middleware config from environment variables with fallback to defaults.
//
// Default burst capacity: 2 × rate (allows 2-second burst)
// Default cleanup: every 5 minutes, removes clients idle >1 hour.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("SALESCUBE_GLOBAL_RPS", defaultGlobalRPS),
		ClientRPS: config.GetEnvInt("SALESCUBE_CLIENT_RPS", defaultClientRPS),
		UnAuthRPS: config.GetEnvInt("SALESCUBE_UNAUTH_RPS", defaultUnAuthRPS),

		// Burst overrides (0 = auto-compute)
		GlobalBurst: config.GetEnvInt("SALESCUBE_GLOBAL_BURST", 0),
		ClientBurst: config.GetEnvInt("SALESCUBE_CLIENT_BURST", 0),
		UnAuthBurst: config.GetEnvInt("SALESCUBE_UNAUTH_BURST", 0),

		CleanupInterval: config.GetEnvDuration(
			"SALESCUBE_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("SALESCUBE_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxClients:  config.GetEnvInt("SALESCUBE_RATE_LIMIT_MAX_CLIENTS", maxClients),
	}
}
