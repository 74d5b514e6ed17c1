// Package api provides the HTTP API server for the SalesCube analysis service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/salescube-io/salescube/internal/api/middleware"
	"github.com/salescube-io/salescube/internal/olap"
)

// Default initial levels for a new session: mid-hierarchy on every
// dimension, the position analysts start a regional quarterly review at.
const (
	defaultGeoLevel     = "region"
	defaultTimeLevel    = "quarter"
	defaultProductLevel = "productGroup"
)

type (
	// sessionEntry pairs a session with its own mutex. A session is
	// owned by one caller at a time, but nothing stops that caller from
	// firing concurrent requests at the same ID, so each entry
	// serializes its own navigation.
	sessionEntry struct {
		mu      sync.Mutex
		session *olap.Session
	}

	// SessionRegistry is the concurrent-safe in-memory registry of
	// active analysis sessions, keyed by UUID.
	SessionRegistry struct {
		mu      sync.RWMutex
		entries map[string]*sessionEntry
	}

	// CreateSessionRequest is the POST /api/v1/sessions payload. Omitted
	// levels fall back to the defaults.
	CreateSessionRequest struct {
		Geography string `json:"geography,omitempty"`
		Time      string `json:"time,omitempty"`
		Product   string `json:"product,omitempty"`
	}

	// SessionResponse describes a session and its current position.
	SessionResponse struct {
		SessionID string               `json:"sessionId"`
		Position  []olap.LevelPosition `json:"position"`
	}

	// NavigationRequest is the drill/roll payload.
	NavigationRequest struct {
		Dimension string `json:"dimension"`
		Year      int    `json:"year,omitempty"`
	}

	// NavigationResponse carries the new position and the detail-level
	// rows at the new granularity.
	NavigationResponse struct {
		SessionID string               `json:"sessionId"`
		Position  []olap.LevelPosition `json:"position"`
		Detail    []ClassifiedCell     `json:"detail"`
	}
)

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{entries: make(map[string]*sessionEntry)}
}

// Add stores a session under a fresh UUID and returns the ID.
func (r *SessionRegistry) Add(session *olap.Session) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = &sessionEntry{session: session}
	r.mu.Unlock()

	return id
}

// Get returns the entry for the given ID.
func (r *SessionRegistry) Get(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()

	return entry, ok
}

// Remove deletes the session with the given ID, reporting whether it existed.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}

	delete(r.entries, id)

	return true
}

// Len returns the number of active sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// handleCreateSession creates a new analysis session at the requested
// initial levels and returns its ID and position.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req := CreateSessionRequest{}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Failed to read request body"))

		return
	}

	// An empty body creates a session at the default levels.
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			WriteErrorResponse(w, r, s.logger, BadRequest("Request body is not valid JSON"))

			return
		}
	}

	if req.Geography == "" {
		req.Geography = defaultGeoLevel
	}

	if req.Time == "" {
		req.Time = defaultTimeLevel
	}

	if req.Product == "" {
		req.Product = defaultProductLevel
	}

	session, err := olap.NewSession(s.catalog, s.executor, req.Geography, req.Time, req.Product)
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	id := s.sessions.Add(session)

	s.logger.Info("analysis session created",
		slog.String("session_id", id),
		slog.String("geography", req.Geography),
		slog.String("time", req.Time),
		slog.String("product", req.Product),
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)

	s.writeJSON(w, r, http.StatusCreated, SessionResponse{
		SessionID: id,
		Position:  session.Position(),
	})
}

// handleSessionPosition reports the current per-dimension position.
func (s *Server) handleSessionPosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	entry, ok := s.sessions.Get(id)
	if !ok {
		WriteErrorResponse(w, r, s.logger, NotFound(fmt.Sprintf("No session with ID %q", id)))

		return
	}

	entry.mu.Lock()
	position := entry.session.Position()
	entry.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, SessionResponse{SessionID: id, Position: position})
}

// handleDrill moves one dimension toward more detail.
func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, drillMove)
}

// handleRoll moves one dimension toward more aggregation.
func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, rollMove)
}

type moveKind int

const (
	drillMove moveKind = iota
	rollMove
)

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request, kind moveKind) {
	id := r.PathValue("id")

	entry, ok := s.sessions.Get(id)
	if !ok {
		WriteErrorResponse(w, r, s.logger, NotFound(fmt.Sprintf("No session with ID %q", id)))

		return
	}

	var req NavigationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.config.MaxRequestSize)).Decode(&req); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Request body is not valid JSON"))

		return
	}

	dim, err := olap.ParseDimension(req.Dimension)
	if err != nil {
		WriteErrorResponse(w, r, s.logger,
			BadRequest(fmt.Sprintf("Unknown dimension %q (expected geography, time or product)", req.Dimension)))

		return
	}

	filter := olap.Filter{Year: req.Year}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var result *olap.NavigationResult
	if kind == drillMove {
		result, err = entry.session.DrillDown(r.Context(), dim, filter)
	} else {
		result, err = entry.session.RollUp(r.Context(), dim, filter)
	}

	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, NavigationResponse{
		SessionID: id,
		Position:  result.Position,
		Detail:    newClassifiedCells(result.Detail),
	})
}

// handleDeleteSession removes a session from the registry.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if !s.sessions.Remove(id) {
		WriteErrorResponse(w, r, s.logger, NotFound(fmt.Sprintf("No session with ID %q", id)))

		return
	}

	s.logger.Info("analysis session removed",
		slog.String("session_id", id),
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)

	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps aggregation-engine errors to problem responses:
// boundary violations are conflicts with the current position, unknown
// names are caller errors, execution failures blame the warehouse.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var boundary *olap.BoundaryError

	switch {
	case errors.As(err, &boundary):
		WriteErrorResponse(w, r, s.logger, Conflict(boundary.Error()))
	case errors.Is(err, olap.ErrUnknownLevel), errors.Is(err, olap.ErrUnknownDimension):
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))
	case errors.Is(err, olap.ErrAggregationExecution):
		s.logger.Error("aggregation execution failed",
			slog.String("error", err.Error()),
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
		WriteErrorResponse(w, r, s.logger, BadGateway("The warehouse rejected the aggregation query"))
	default:
		s.logger.Error("analysis failed",
			slog.String("error", err.Error()),
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Analysis failed"))
	}
}
