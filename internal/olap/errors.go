package olap

import (
	"errors"
	"fmt"
)

// Sentinel errors for the aggregation engine.
var (
	// ErrUnknownLevel is returned when a caller requests a level name
	// that is not part of the hierarchy.
	ErrUnknownLevel = errors.New("unknown hierarchy level")

	// ErrUnknownDimension is returned when a caller names a dimension
	// that is not geography, time or product.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrAggregationExecution wraps any failure from the execution
	// layer (connectivity, malformed request). The engine does not
	// retry; the failure is fatal to the current request only.
	ErrAggregationExecution = errors.New("aggregation execution failed")

	// ErrUnexpectedGrouping is returned when a result row carries a
	// collapse-flag combination outside the declared grouping sets.
	// It signals a misbehaving execution layer, not caller error.
	ErrUnexpectedGrouping = errors.New("unexpected grouping flag combination")
)

// BoundaryKind distinguishes the two navigation boundaries.
type BoundaryKind int

const (
	// MostDetailed means the dimension is already at rank 0 and cannot
	// be drilled down further.
	MostDetailed BoundaryKind = iota

	// MostAggregated means the dimension is already at its top rank
	// and cannot be rolled up further.
	MostAggregated
)

// String returns a short boundary name for messages and logs.
func (k BoundaryKind) String() string {
	if k == MostDetailed {
		return "most detailed"
	}

	return "most aggregated"
}

// BoundaryError reports a drill-down or roll-up attempt past the end of
// a hierarchy. It is recoverable: the navigation state is unchanged and
// the caller may issue a different move.
type BoundaryError struct {
	Dimension Dimension
	Kind      BoundaryKind
	Level     string // level name at which the move was refused
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("%s dimension is already at the %s level (%s)",
		e.Dimension, e.Kind, e.Level)
}

// ReconciliationError reports that cross-tab margins do not sum to the
// detail cells within tolerance. It is surfaced as a data-integrity
// warning rather than silently corrected: it signals either a
// classification bug or a source-data anomaly such as an unmapped
// dimension value.
type ReconciliationError struct {
	Measure  string
	CellSum  float64
	Declared float64
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("cross-tab reconciliation failed for %s: detail cells sum to %v, grand total is %v",
		e.Measure, e.CellSum, e.Declared)
}
