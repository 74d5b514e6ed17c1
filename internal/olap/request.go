package olap

// GroupingSetID labels one of the five curated grouping sets used for
// cross-tab analysis.
type GroupingSetID int

const (
	// SetDetail groups by all three dimensions.
	SetDetail GroupingSetID = iota

	// SetRowSubtotal groups by geography and time (product collapsed).
	SetRowSubtotal

	// SetColumnSubtotal groups by geography and product (time collapsed).
	SetColumnSubtotal

	// SetGeoTotal groups by geography only.
	SetGeoTotal

	// SetGrandTotal groups by nothing (every dimension collapsed).
	SetGrandTotal

	numGroupingSets = 5
)

// String returns the human-readable label of the grouping set.
func (id GroupingSetID) String() string {
	switch id {
	case SetDetail:
		return "Detail"
	case SetRowSubtotal:
		return "Row Subtotal"
	case SetColumnSubtotal:
		return "Column Subtotal"
	case SetGeoTotal:
		return "Geographic Total"
	case SetGrandTotal:
		return "Grand Total"
	default:
		return "Unknown"
	}
}

// CrossTabSets returns the fixed five-set grouping list used for
// cross-tab analysis, in declaration order.
//
// The list is a deliberate design choice, not a default subset of the
// cube: it is optimized for a geo × product cross-tab with a time-based
// row layer, and intentionally omits the {time}, {product} and
// {time,product} subsets the cube would include. It must be reproduced
// exactly, no more and no fewer.
func CrossTabSets() []GroupingSet {
	return []GroupingSet{
		{ID: SetDetail, Include: [NumDimensions]bool{true, true, true}},
		{ID: SetRowSubtotal, Include: [NumDimensions]bool{true, true, false}},
		{ID: SetColumnSubtotal, Include: [NumDimensions]bool{true, false, true}},
		{ID: SetGeoTotal, Include: [NumDimensions]bool{true, false, false}},
		{ID: SetGrandTotal, Include: [NumDimensions]bool{false, false, false}},
	}
}

// RequestBuilder turns the current level selection and an aggregation
// mode into an abstract AggregationRequest. It is stateless apart from
// the catalog used to resolve ranks into column references.
type RequestBuilder struct {
	catalog *Catalog
}

// NewRequestBuilder creates a builder over the given catalog.
func NewRequestBuilder(catalog *Catalog) *RequestBuilder {
	return &RequestBuilder{catalog: catalog}
}

// Cube builds a full-cube request at the given ranks. Subset
// enumeration is left to the execution layer; the request only declares
// full-cube semantics over the three resolved columns.
func (b *RequestBuilder) Cube(ranks [NumDimensions]int, filter Filter) (AggregationRequest, error) {
	cols, err := b.catalog.ColumnsAt(ranks)
	if err != nil {
		return AggregationRequest{}, err
	}

	return AggregationRequest{
		Mode:    ModeCube,
		Columns: cols,
		Filter:  filter,
	}, nil
}

// GroupingSets builds a cross-tab request at the given ranks, carrying
// exactly the five curated grouping sets.
func (b *RequestBuilder) GroupingSets(ranks [NumDimensions]int, filter Filter) (AggregationRequest, error) {
	cols, err := b.catalog.ColumnsAt(ranks)
	if err != nil {
		return AggregationRequest{}, err
	}

	return AggregationRequest{
		Mode:    ModeGroupingSets,
		Columns: cols,
		Sets:    CrossTabSets(),
		Filter:  filter,
	}, nil
}
