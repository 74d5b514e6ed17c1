// Package olap implements the multidimensional aggregation and
// hierarchy-navigation engine for the salescube analysis service.
//
// The package knows the shape of the three dimension hierarchies
// (geography, time, product), builds multi-level aggregation requests
// (full cube or a curated list of grouping sets), classifies returned
// aggregate rows by which dimensions were collapsed, and maintains a
// navigable position in the hierarchies with drill-down/roll-up
// transitions and boundary detection.
//
// Query execution itself is delegated to an Executor implementation
// (see internal/warehouse for the PostgreSQL-backed one).
package olap

import "context"

// Dimension identifies one of the three analysis dimensions.
type Dimension int

// The three dimensions, in canonical order. The order matters: every
// 3-element array in this package (column refs, dimension values,
// collapse flags) is indexed by Dimension.
const (
	Geography Dimension = iota
	Time
	Product

	// NumDimensions is the number of analysis dimensions. The cube
	// classification table in classify.go is hardcoded for exactly
	// this many dimensions; extending it requires generating the
	// bitmask table instead of enumerating it.
	NumDimensions = 3
)

// String returns the lowercase dimension name used in API payloads and logs.
func (d Dimension) String() string {
	switch d {
	case Geography:
		return "geography"
	case Time:
		return "time"
	case Product:
		return "product"
	default:
		return "unknown"
	}
}

// ParseDimension maps a dimension name (as used in API payloads) to a Dimension.
// Returns ErrUnknownDimension for anything outside the three known names.
func ParseDimension(name string) (Dimension, error) {
	switch name {
	case "geography", "geo":
		return Geography, nil
	case "time":
		return Time, nil
	case "product":
		return Product, nil
	default:
		return 0, ErrUnknownDimension
	}
}

// AggregationMode selects how the engine asks the warehouse to aggregate.
type AggregationMode int

const (
	// ModeCube requests all 2^3 = 8 subsets of the three grouping
	// columns. Subset enumeration is delegated to the execution layer
	// (GROUP BY CUBE); the engine only declares full-cube semantics.
	ModeCube AggregationMode = iota

	// ModeGroupingSets requests the explicit, curated list of five
	// grouping sets declared in CrossTabSets. The list is a design
	// choice optimized for a geo × product cross-tab with a time-based
	// row layer, not a derived subset of the cube.
	ModeGroupingSets
)

// String returns a short mode name for logging.
func (m AggregationMode) String() string {
	if m == ModeCube {
		return "cube"
	}

	return "grouping_sets"
}

// Filter restricts the fact rows considered before aggregation.
// The zero value means no filter. Only an equality filter on the year
// is supported; it is applied in the WHERE clause, never after
// aggregation.
type Filter struct {
	Year int
}

// IsZero reports whether the filter is empty.
func (f Filter) IsZero() bool {
	return f.Year == 0
}

// GroupingSet is one explicit subset of the three grouping columns,
// tagged with the label it produces in a grouping-sets result.
type GroupingSet struct {
	ID GroupingSetID

	// Include[d] reports whether dimension d is grouped (present) in
	// this set. A dimension that is not included is collapsed in every
	// row the set produces.
	Include [NumDimensions]bool
}

// AggregationRequest is the abstract aggregation request handed to an
// Executor. For ModeCube the Sets slice is nil (the engine delegates
// subset generation); for ModeGroupingSets it is exactly CrossTabSets.
type AggregationRequest struct {
	Mode AggregationMode

	// Columns holds the dimension column references at the requested
	// granularity, indexed by Dimension.
	Columns [NumDimensions]string

	// Sets is the explicit grouping-set list for ModeGroupingSets, nil
	// for ModeCube.
	Sets []GroupingSet

	Filter Filter
}

// Measures holds the numeric measures of one aggregate row.
type Measures struct {
	// Quantity is the summed QuantitySold.
	Quantity int64

	// Revenue is the summed Revenue.
	Revenue float64

	// Count is the number of fact rows aggregated into this row.
	Count int64
}

// Add returns the element-wise sum of two measure sets.
func (m Measures) Add(o Measures) Measures {
	return Measures{
		Quantity: m.Quantity + o.Quantity,
		Revenue:  m.Revenue + o.Revenue,
		Count:    m.Count + o.Count,
	}
}

// AggregateRow is one raw row returned by the execution layer.
//
// Collapsed[d] == true means dimension d was aggregated away in this
// row and Values[d] is unset. Classification keys off Collapsed, never
// off the display value: real dimension data may legitimately contain
// an empty or null-like value that is not a collapse marker.
type AggregateRow struct {
	Values    [NumDimensions]string
	Collapsed [NumDimensions]bool
	Measures  Measures
}

// ClassifiedRow is an AggregateRow labeled with the cube aggregation
// level derived from its collapse flags.
type ClassifiedRow struct {
	AggregateRow

	Level AggregationLevel
}

// SetRow is an AggregateRow attributed to the grouping set that
// produced it in a ModeGroupingSets result.
type SetRow struct {
	AggregateRow

	Set GroupingSetID
}

// Executor executes an aggregation request against the warehouse and
// returns the raw aggregate rows. Implementations must annotate each
// row with per-dimension collapse flags (GROUPING() in SQL terms).
//
// The engine treats every execution failure as fatal to the current
// request only: it performs no retries, and navigation state is left
// untouched so the caller can retry the same position.
type Executor interface {
	Query(ctx context.Context, req AggregationRequest) ([]AggregateRow, error)
}
