// Package api provides the HTTP API server for the SalesCube analysis service.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/salescube-io/salescube/internal/olap"
)

type (
	// CubeResponse is the GET /api/v1/analysis/cube payload: every
	// aggregate row classified by its aggregation level, plus the rows
	// grouped per level.
	CubeResponse struct {
		Position []olap.LevelPosition        `json:"position"`
		Rows     []ClassifiedCell            `json:"rows"`
		Groups   map[string][]ClassifiedCell `json:"groups"`
	}

	// CrossTabResponse is the GET /api/v1/analysis/crosstab payload:
	// the formatted pivot table, a plain matrix of the requested metric
	// for chart rendering, and a reconciliation warning when the margins
	// do not add up.
	CrossTabResponse struct {
		Position []olap.LevelPosition `json:"position"`
		Metric   string               `json:"metric"`
		Sets     map[string][]SetCell `json:"sets"`
		CrossTab *CrossTabPayload     `json:"crossTab"`
		Matrix   [][]float64          `json:"matrix"`
		Warning  string               `json:"warning,omitempty"`
	}
)

// analysisSession builds a transient session for a one-shot analysis
// request. Levels default to the session defaults and can be overridden
// with geography/time/product query parameters.
func (s *Server) analysisSession(r *http.Request) (*olap.Session, error) {
	q := r.URL.Query()

	geo := q.Get("geography")
	if geo == "" {
		geo = defaultGeoLevel
	}

	tm := q.Get("time")
	if tm == "" {
		tm = defaultTimeLevel
	}

	product := q.Get("product")
	if product == "" {
		product = defaultProductLevel
	}

	return olap.NewSession(s.catalog, s.executor, geo, tm, product)
}

// parseFilter reads the optional year query parameter.
func parseFilter(r *http.Request) (olap.Filter, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return olap.Filter{}, nil
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		return olap.Filter{}, fmt.Errorf("invalid year %q", raw)
	}

	return olap.Filter{Year: year}, nil
}

// handleCube runs a full-cube analysis at the requested levels and
// returns the rows classified into the eight aggregation levels.
func (s *Server) handleCube(w http.ResponseWriter, r *http.Request) {
	session, err := s.analysisSession(r)
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	result, err := session.RunCube(r.Context(), filter)
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	groups := make(map[string][]ClassifiedCell, len(result.Groups))
	for level, rows := range result.Groups {
		groups[level.String()] = newClassifiedCells(rows)
	}

	s.writeJSON(w, r, http.StatusOK, CubeResponse{
		Position: session.Position(),
		Rows:     newClassifiedCells(result.Rows),
		Groups:   groups,
	})
}

// handleCrossTab runs a grouping-sets analysis at the requested levels
// and returns the formatted cross-tab. The metric query parameter
// selects which measure fills the plain matrix (default quantity).
func (s *Server) handleCrossTab(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "quantity"
	}

	if metric != "quantity" && metric != "revenue" && metric != "count" {
		WriteErrorResponse(w, r, s.logger,
			BadRequest(fmt.Sprintf("Unknown metric %q (expected quantity, revenue or count)", metric)))

		return
	}

	session, err := s.analysisSession(r)
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	result, err := session.RunGroupingSets(r.Context(), filter)
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	sets := make(map[string][]SetCell, len(result.Groups))
	for id, rows := range result.Groups {
		sets[id.String()] = newSetCells(rows)
	}

	resp := CrossTabResponse{
		Position: session.Position(),
		Metric:   metric,
		Sets:     sets,
		CrossTab: newCrossTabPayload(result.CrossTab),
		Matrix:   metricMatrix(result.CrossTab, metric),
	}

	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

// metricMatrix projects one measure out of the cross-tab cells into a
// plain [row][column] matrix.
func metricMatrix(ct *olap.CrossTab, metric string) [][]float64 {
	if ct == nil {
		return nil
	}

	matrix := make([][]float64, len(ct.Cells))

	for i, row := range ct.Cells {
		matrix[i] = make([]float64, len(row))

		for j, cell := range row {
			switch metric {
			case "revenue":
				matrix[i][j] = cell.Revenue
			case "count":
				matrix[i][j] = float64(cell.Count)
			default:
				matrix[i][j] = float64(cell.Quantity)
			}
		}
	}

	return matrix
}

// handleSummary reports warehouse-wide statistics from the fact table.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		WriteErrorResponse(w, r, s.logger, NotFound("Warehouse summary is not available"))

		return
	}

	stats, err := s.summarizer.Summary(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, stats)
}
