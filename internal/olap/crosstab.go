package olap

import (
	"math"
	"sort"
)

// Revenue cells are compared within a small relative tolerance because
// they are floating-point sums; quantity and count are integers and
// must reconcile exactly.
const (
	revenueRelTolerance = 1e-6
	revenueAbsTolerance = 1e-9
)

// CrossTab is the 2D pivot of a grouping-sets result: geography on
// rows, product on columns, measures summed over time in each cell,
// plus row/column margins and a grand total.
//
// The matrix is fully rectangular: a (geo, product) combination with no
// detail rows holds zero measures rather than being omitted.
type CrossTab struct {
	// Rows holds the distinct geography values of the detail rows, sorted.
	Rows []string

	// Columns holds the distinct product values of the detail rows, sorted.
	Columns []string

	// Cells is indexed [row][column] and built from Detail rows only,
	// summed over time. Column-subtotal rows are not reused here: they
	// are already aggregated over time, and summing them again would
	// double the time aggregation.
	Cells [][]Measures

	// RowTotals is the per-geography margin, indexed like Rows, built
	// from Row Subtotal rows collapsed over time.
	RowTotals []Measures

	// ColumnTotals is the per-product margin, indexed like Columns,
	// built from Column Subtotal rows collapsed over geography.
	ColumnTotals []Measures

	// GeoTotals holds the Geographic Total rows by geography value.
	GeoTotals map[string]Measures

	// GrandTotal is the single grand-total cell.
	GrandTotal Measures
}

// BuildCrossTab reshapes classified grouping-sets rows into a cross-tab
// and verifies that the detail cells reconcile with the grand total.
//
// A failed reconciliation returns both the partially built table and a
// ReconciliationError, so callers can decide whether to surface the
// table with a warning or drop it.
func BuildCrossTab(rows []SetRow) (*CrossTab, error) {
	ct := &CrossTab{GeoTotals: make(map[string]Measures)}

	// Row and column axes come from the detail rows only.
	geoSeen := make(map[string]bool)
	productSeen := make(map[string]bool)

	for _, row := range rows {
		if row.Set != SetDetail {
			continue
		}

		geoSeen[row.Values[Geography]] = true
		productSeen[row.Values[Product]] = true
	}

	ct.Rows = sortedKeys(geoSeen)
	ct.Columns = sortedKeys(productSeen)

	rowIndex := indexOf(ct.Rows)
	colIndex := indexOf(ct.Columns)

	ct.Cells = make([][]Measures, len(ct.Rows))
	for i := range ct.Cells {
		ct.Cells[i] = make([]Measures, len(ct.Columns))
	}

	ct.RowTotals = make([]Measures, len(ct.Rows))
	ct.ColumnTotals = make([]Measures, len(ct.Columns))

	for _, row := range rows {
		switch row.Set {
		case SetDetail:
			r := rowIndex[row.Values[Geography]]
			c := colIndex[row.Values[Product]]
			ct.Cells[r][c] = ct.Cells[r][c].Add(row.Measures)
		case SetRowSubtotal:
			if r, ok := rowIndex[row.Values[Geography]]; ok {
				ct.RowTotals[r] = ct.RowTotals[r].Add(row.Measures)
			}
		case SetColumnSubtotal:
			if c, ok := colIndex[row.Values[Product]]; ok {
				ct.ColumnTotals[c] = ct.ColumnTotals[c].Add(row.Measures)
			}
		case SetGeoTotal:
			ct.GeoTotals[row.Values[Geography]] = row.Measures
		case SetGrandTotal:
			ct.GrandTotal = ct.GrandTotal.Add(row.Measures)
		}
	}

	if err := ct.reconcile(); err != nil {
		return ct, err
	}

	return ct, nil
}

// reconcile verifies that the sum of all detail cells equals the
// grand-total row: exact for the integer measures, tolerance-bounded
// for revenue.
func (ct *CrossTab) reconcile() error {
	var sum Measures

	for _, row := range ct.Cells {
		for _, cell := range row {
			sum = sum.Add(cell)
		}
	}

	if sum.Quantity != ct.GrandTotal.Quantity {
		return &ReconciliationError{
			Measure:  "quantity",
			CellSum:  float64(sum.Quantity),
			Declared: float64(ct.GrandTotal.Quantity),
		}
	}

	if sum.Count != ct.GrandTotal.Count {
		return &ReconciliationError{
			Measure:  "count",
			CellSum:  float64(sum.Count),
			Declared: float64(ct.GrandTotal.Count),
		}
	}

	if !revenueEqual(sum.Revenue, ct.GrandTotal.Revenue) {
		return &ReconciliationError{
			Measure:  "revenue",
			CellSum:  sum.Revenue,
			Declared: ct.GrandTotal.Revenue,
		}
	}

	return nil
}

func revenueEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))

	return diff <= revenueAbsTolerance+revenueRelTolerance*scale
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}

	return idx
}
