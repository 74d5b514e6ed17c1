package olap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/salescube-io/salescube/internal/config"
)

type (
	// LevelPosition describes the current level of one dimension.
	LevelPosition struct {
		Dimension string `json:"dimension"`
		Level     string `json:"level"`
		Rank      int    `json:"rank"`
		MaxRank   int    `json:"maxRank"`
	}

	// NavigationResult is returned by a successful drill or roll: the
	// new position and the detail-level rows at the new granularity.
	NavigationResult struct {
		Position []LevelPosition
		Detail   []ClassifiedRow
	}

	// CubeResult is a classified full-cube analysis: all rows plus the
	// eight groups keyed by aggregation level.
	CubeResult struct {
		Rows   []ClassifiedRow
		Groups map[AggregationLevel][]ClassifiedRow
	}

	// GroupingSetsResult is a classified cross-tab analysis: all rows,
	// the five groups keyed by grouping set, and the formatted
	// cross-tab. Warning carries a reconciliation failure: the table is
	// still returned, but the caller must treat it as suspect.
	GroupingSetsResult struct {
		Rows     []SetRow
		Groups   map[GroupingSetID][]SetRow
		CrossTab *CrossTab
		Warning  *ReconciliationError
	}

	// Session orchestrates one drill-down/roll-up analysis session: it
	// owns a navigation state exclusively, validates moves against it,
	// triggers aggregation requests through the Executor and reports
	// the current position. Each navigation step issues exactly one
	// aggregation request and blocks until it returns; a session is
	// single-threaded by contract and holds no locks.
	Session struct {
		catalog *Catalog
		state   *State
		builder *RequestBuilder
		exec    Executor
		logger  *slog.Logger
	}
)

// NewSession creates a session at the given initial level names, one
// per dimension in (geography, time, product) order, validated against
// the catalog.
func NewSession(catalog *Catalog, exec Executor, geo, time, product string) (*Session, error) {
	state, err := NewStateAt(catalog, geo, time, product)
	if err != nil {
		return nil, err
	}

	return &Session{
		catalog: catalog,
		state:   state,
		builder: NewRequestBuilder(catalog),
		exec:    exec,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// Position reports the current position as (level name, rank, max rank)
// per dimension.
func (s *Session) Position() []LevelPosition {
	out := make([]LevelPosition, NumDimensions)

	for d := Geography; d < NumDimensions; d++ {
		lvl := s.state.Level(d)
		out[d] = LevelPosition{
			Dimension: d.String(),
			Level:     lvl.Name,
			Rank:      lvl.Rank,
			MaxRank:   s.catalog.Hierarchy(d).MaxRank(),
		}
	}

	return out
}

// DrillDown moves the dimension one level toward more detail and
// returns the detail-level view at the new granularity.
//
// A boundary violation returns the BoundaryError without issuing any
// aggregation request. An execution failure reverts the move, so the
// session can retry from the position it had before the command.
func (s *Session) DrillDown(ctx context.Context, d Dimension, filter Filter) (*NavigationResult, error) {
	if err := s.state.DrillDown(d); err != nil {
		return nil, err
	}

	result, err := s.currentView(ctx, filter)
	if err != nil {
		_ = s.state.RollUp(d) // inverse of a move that just succeeded

		return nil, err
	}

	s.logger.Info("drilled down",
		slog.String("dimension", d.String()),
		slog.String("level", s.state.Level(d).Name),
	)

	return result, nil
}

// RollUp moves the dimension one level toward more aggregation and
// returns the detail-level view at the new granularity. Boundary and
// failure semantics mirror DrillDown.
func (s *Session) RollUp(ctx context.Context, d Dimension, filter Filter) (*NavigationResult, error) {
	if err := s.state.RollUp(d); err != nil {
		return nil, err
	}

	result, err := s.currentView(ctx, filter)
	if err != nil {
		_ = s.state.DrillDown(d) // inverse of a move that just succeeded

		return nil, err
	}

	s.logger.Info("rolled up",
		slog.String("dimension", d.String()),
		slog.String("level", s.state.Level(d).Name),
	)

	return result, nil
}

// currentView runs a cube request at the current position and extracts
// the detail-level subset (the current-granularity view).
func (s *Session) currentView(ctx context.Context, filter Filter) (*NavigationResult, error) {
	cube, err := s.RunCube(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &NavigationResult{
		Position: s.Position(),
		Detail:   cube.Groups[LevelDetail],
	}, nil
}

// RunCube executes a full-cube analysis at the current position and
// classifies every row into one of the eight aggregation levels.
func (s *Session) RunCube(ctx context.Context, filter Filter) (*CubeResult, error) {
	req, err := s.builder.Cube(s.state.Ranks(), filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	classified := ClassifyCube(rows)
	groups := make(map[AggregationLevel][]ClassifiedRow)

	for _, row := range classified {
		groups[row.Level] = append(groups[row.Level], row)
	}

	return &CubeResult{Rows: classified, Groups: groups}, nil
}

// RunGroupingSets executes a cross-tab analysis at the current
// position: the five curated grouping sets, classified per set, plus
// the formatted cross-tab with reconciliation checking. A
// reconciliation failure is surfaced in the Warning field rather than
// failing the whole analysis, and is never silently corrected.
func (s *Session) RunGroupingSets(ctx context.Context, filter Filter) (*GroupingSetsResult, error) {
	req, err := s.builder.GroupingSets(s.state.Ranks(), filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	classified, err := ClassifyGroupingSets(rows)
	if err != nil {
		return nil, err
	}

	groups := make(map[GroupingSetID][]SetRow)
	for _, row := range classified {
		groups[row.Set] = append(groups[row.Set], row)
	}

	result := &GroupingSetsResult{Rows: classified, Groups: groups}

	ct, err := BuildCrossTab(classified)
	result.CrossTab = ct

	var recErr *ReconciliationError
	if errors.As(err, &recErr) {
		result.Warning = recErr
		s.logger.Warn("cross-tab reconciliation failed",
			slog.String("measure", recErr.Measure),
			slog.Float64("cell_sum", recErr.CellSum),
			slog.Float64("grand_total", recErr.Declared),
		)
	} else if err != nil {
		return nil, err
	}

	return result, nil
}

// query runs one request through the executor, wrapping any failure as
// ErrAggregationExecution. No retries: the failure is fatal to this
// request only.
func (s *Session) query(ctx context.Context, req AggregationRequest) ([]AggregateRow, error) {
	rows, err := s.exec.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregationExecution, err)
	}

	return rows, nil
}
