package olap

import "fmt"

// AggregationLevel labels a cube-mode aggregate row by which dimensions
// were collapsed in it. The eight levels are exhaustive and mutually
// exclusive for a 3-dimension cube.
type AggregationLevel int

const (
	// LevelDetail has no dimension collapsed.
	LevelDetail AggregationLevel = iota

	// LevelByGeoTime has product collapsed.
	LevelByGeoTime

	// LevelByGeoProduct has time collapsed.
	LevelByGeoProduct

	// LevelByTimeProduct has geography collapsed.
	LevelByTimeProduct

	// LevelByGeographyOnly has time and product collapsed.
	LevelByGeographyOnly

	// LevelByTimeOnly has geography and product collapsed.
	LevelByTimeOnly

	// LevelByProductOnly has geography and time collapsed.
	LevelByProductOnly

	// LevelGrandTotal has every dimension collapsed.
	LevelGrandTotal

	numAggregationLevels = 8
)

// String returns the display label of the aggregation level.
func (l AggregationLevel) String() string {
	switch l {
	case LevelDetail:
		return "Detail Level"
	case LevelByGeoTime:
		return "By Geo+Time"
	case LevelByGeoProduct:
		return "By Geo+Product"
	case LevelByTimeProduct:
		return "By Time+Product"
	case LevelByGeographyOnly:
		return "By Geography Only"
	case LevelByTimeOnly:
		return "By Time Only"
	case LevelByProductOnly:
		return "By Product Only"
	case LevelGrandTotal:
		return "Grand Total"
	default:
		return "Unknown Level"
	}
}

// collapseMask packs the three collapse flags into a bitmask:
// geography bit 2, time bit 1, product bit 0 (collapsed = 1).
func collapseMask(flags [NumDimensions]bool) uint8 {
	var mask uint8

	if flags[Geography] {
		mask |= 1 << 2
	}

	if flags[Time] {
		mask |= 1 << 1
	}

	if flags[Product] {
		mask |= 1
	}

	return mask
}

// cubeLevels is the fixed bitmask → level table for a 3-dimension
// cube. It is hardcoded deliberately: the grouping-sets list is a
// curated subset and deriving these tables generically from dimension
// cardinality would make that curation ambiguous. Valid for exactly
// three dimensions.
var cubeLevels = [numAggregationLevels]AggregationLevel{
	0b000: LevelDetail,
	0b001: LevelByGeoTime,
	0b010: LevelByGeoProduct,
	0b100: LevelByTimeProduct,
	0b011: LevelByGeographyOnly,
	0b101: LevelByTimeOnly,
	0b110: LevelByProductOnly,
	0b111: LevelGrandTotal,
}

// ClassifyLevel maps one row's collapse flags to its cube aggregation
// level. Classification uses the explicit flags only: a null-like
// display value in real dimension data must never be mistaken for a
// collapse marker.
func ClassifyLevel(flags [NumDimensions]bool) AggregationLevel {
	return cubeLevels[collapseMask(flags)]
}

// ClassifyCube labels every row of a cube result. Each row maps to
// exactly one of the eight levels; the mapping is total, so this never
// fails.
func ClassifyCube(rows []AggregateRow) []ClassifiedRow {
	out := make([]ClassifiedRow, len(rows))

	for i, row := range rows {
		out[i] = ClassifiedRow{AggregateRow: row, Level: ClassifyLevel(row.Collapsed)}
	}

	return out
}

// groupingSetByMask maps collapse masks to the five declared grouping
// sets. Only the five masks the curated list can produce are present.
var groupingSetByMask = map[uint8]GroupingSetID{
	0b000: SetDetail,
	0b001: SetRowSubtotal,
	0b010: SetColumnSubtotal,
	0b011: SetGeoTotal,
	0b111: SetGrandTotal,
}

// ClassifyGroupingSets attributes every row of a grouping-sets result
// to the declared set that produced it. A flag combination outside the
// five declared sets (for example {time} or {time,product}, which the
// curated list intentionally excludes) is reported as
// ErrUnexpectedGrouping: it means the execution layer did not honor the
// request.
func ClassifyGroupingSets(rows []AggregateRow) ([]SetRow, error) {
	out := make([]SetRow, len(rows))

	for i, row := range rows {
		id, ok := groupingSetByMask[collapseMask(row.Collapsed)]
		if !ok {
			return nil, fmt.Errorf("%w: row %d collapsed %v", ErrUnexpectedGrouping, i, row.Collapsed)
		}

		out[i] = SetRow{AggregateRow: row, Set: id}
	}

	return out, nil
}
