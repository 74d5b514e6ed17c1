// Package api provides the HTTP API server for the SalesCube analysis service.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/salescube-io/salescube/internal/api/middleware"
)

const (
	serviceName      = "salescube"
	serviceVersion   = "v1.0.0" // TODO: inject version at build time
	expectedURLParts = 2
)

// Route represents an HTTP route configuration with a path and handler.
// Used for declarative route registration with middleware bypass support.
type Route struct {
	Path    string           // The URL path for this route (e.g., "/ping", "/api/v1/health")
	Handler http.HandlerFunc // The HTTP handler function for this route
}

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Public health endpoints
	s.registerPublicRoutes(
		mux,
		Route{"GET /ping", s.handlePing}, // K8s liveness probe
		Route{"GET /api/v1/health", s.handleHealth},   // Basic health check - status, uptime, version
		Route{"GET /api/v1/version", s.handleVersion}, // Service version
		Route{"/", s.handleNotFound},                  // Catch-all handler for 404 responses
	)

	// Session lifecycle and navigation
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/position", s.handleSessionPosition)
	mux.HandleFunc("POST /api/v1/sessions/{id}/drill", s.handleDrill)
	mux.HandleFunc("POST /api/v1/sessions/{id}/roll", s.handleRoll)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)

	// One-shot analysis endpoints
	mux.HandleFunc("GET /api/v1/analysis/cube", s.handleCube)
	mux.HandleFunc("GET /api/v1/analysis/crosstab", s.handleCrossTab)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
}

// registerPublicRoutes registers HTTP routes that bypass authentication and rate limiting.
// This is a convenience method that:
//  1. Registers the route handler with the HTTP mux
//  2. Automatically registers the path as a public endpoint (bypasses auth middleware)
//
// Public routes should only be used for health check endpoints that need to be accessible
// without authentication (e.g., K8s liveness/readiness probes, monitoring tools).
//
// Security Warning: Never register business logic endpoints as public routes.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// Strip method prefix for public endpoint bypass registration
		// Go 1.22+ method-based routing uses "GET /path" format
		// But r.URL.Path is just "/path" (no method prefix)
		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("Malformed route path detected, ignoring route", slog.String("path", path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handlePing responds to ping requests for basic server validation.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Salescube-Version", serviceVersion)
	w.WriteHeader(http.StatusOK)

	_, err := w.Write([]byte("pong"))
	if err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleHealth returns detailed health status information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Calculate uptime if server has started
	var uptime string

	if !s.startTime.IsZero() {
		duration := time.Since(s.startTime)
		uptime = duration.Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "healthy",
		ServiceName: serviceName,
		Version:     serviceVersion,
		Uptime:      uptime,
	}

	w.Header().Set("X-Salescube-Version", serviceVersion)
	s.writeJSON(w, r, http.StatusOK, health)
}

// handleVersion returns the service name and version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, Version{
		Version:     serviceVersion,
		ServiceName: serviceName,
	})
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}
