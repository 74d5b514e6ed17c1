package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/salescube-io/salescube/internal/olap"
)

// Sentinel errors for aggregation query execution.
var (
	// ErrColumnNotAllowed is returned when a requested grouping column is not
	// part of the star schema. Column names are interpolated into SQL, so
	// anything outside the allowlist is rejected before query construction.
	ErrColumnNotAllowed = errors.New("grouping column not allowed")

	// ErrAggregationQueryFailed is returned when an aggregation query fails.
	ErrAggregationQueryFailed = errors.New("aggregation query failed")

	// SalesStore implements the aggregation executor consumed by the olap package.
	_ olap.Executor = (*SalesStore)(nil)
)

// allowedColumns is the closed set of grouping columns in the star schema,
// one entry per hierarchy level across the three dimensions.
var allowedColumns = map[string]bool{
	"s.ShopName":            true,
	"s.CityName":            true,
	"s.RegionName":          true,
	"s.CountryName":         true,
	"d.Day":                 true,
	"d.Month":               true,
	"d.Quarter":             true,
	"d.Year":                true,
	"p.ArticleName":         true,
	"p.ProductGroupName":    true,
	"p.ProductFamilyName":   true,
	"p.ProductCategoryName": true,
}

// SalesStore runs CUBE and GROUPING SETS aggregations against FactSales.
type SalesStore struct {
	conn *Connection
}

// NewSalesStore creates a PostgreSQL-backed aggregation executor.
func NewSalesStore(conn *Connection) (*SalesStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &SalesStore{conn: conn}, nil
}

// Query executes one aggregation request and returns the raw rows with
// their GROUPING() collapse flags. Classification is the caller's job.
func (s *SalesStore) Query(ctx context.Context, req olap.AggregationRequest) ([]olap.AggregateRow, error) {
	query, args, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregationQueryFailed, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []olap.AggregateRow

	for rows.Next() {
		var (
			values [olap.NumDimensions]sql.NullString
			flags  [olap.NumDimensions]int
			row    olap.AggregateRow
		)

		err := rows.Scan(
			&values[olap.Geography], &values[olap.Time], &values[olap.Product],
			&flags[olap.Geography], &flags[olap.Time], &flags[olap.Product],
			&row.Measures.Quantity, &row.Measures.Revenue, &row.Measures.Count,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrAggregationQueryFailed, err)
		}

		for d := olap.Geography; d < olap.NumDimensions; d++ {
			row.Values[d] = values[d].String
			row.Collapsed[d] = flags[d] == 1
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregationQueryFailed, err)
	}

	return out, nil
}

// buildQuery assembles the aggregation SQL for one request. Grouping
// columns are interpolated, so they are validated against the schema
// allowlist first; the year filter travels as a bind parameter.
func (s *SalesStore) buildQuery(req olap.AggregationRequest) (string, []any, error) {
	for _, col := range req.Columns {
		if !allowedColumns[col] {
			return "", nil, fmt.Errorf("%w: %q", ErrColumnNotAllowed, col)
		}
	}

	geo, tim, prod := req.Columns[olap.Geography], req.Columns[olap.Time], req.Columns[olap.Product]

	var b strings.Builder

	fmt.Fprintf(&b, `SELECT
    %s::text, %s::text, %s::text,
    GROUPING(%s), GROUPING(%s), GROUPING(%s),
    COALESCE(SUM(f.QuantitySold), 0),
    COALESCE(SUM(f.Revenue), 0),
    COUNT(*)
FROM FactSales f
JOIN DimShop s ON f.ShopKey = s.ShopKey
JOIN DimDate d ON f.DateKey = d.DateKey
JOIN DimProduct p ON f.ProductKey = p.ProductKey
`, geo, tim, prod, geo, tim, prod)

	var args []any

	if !req.Filter.IsZero() {
		b.WriteString("WHERE d.Year = $1\n")

		args = append(args, req.Filter.Year)
	}

	switch req.Mode {
	case olap.ModeCube:
		fmt.Fprintf(&b, "GROUP BY CUBE(%s, %s, %s)\n", geo, tim, prod)
	case olap.ModeGroupingSets:
		fmt.Fprintf(&b, "GROUP BY GROUPING SETS (\n%s)\n", groupingSetsClause(req))
	}

	// Collapsed values sort last within each grouping combination.
	fmt.Fprintf(&b, `ORDER BY GROUPING(%s), GROUPING(%s), GROUPING(%s),
    COALESCE(%s::text, 'ZZZZ'), COALESCE(%s::text, 'ZZZZ'), COALESCE(%s::text, 'ZZZZ')`,
		geo, tim, prod, geo, tim, prod)

	return b.String(), args, nil
}

func groupingSetsClause(req olap.AggregationRequest) string {
	sets := make([]string, 0, len(req.Sets))

	for _, set := range req.Sets {
		var cols []string

		for d := olap.Geography; d < olap.NumDimensions; d++ {
			if set.Include[d] {
				cols = append(cols, req.Columns[d])
			}
		}

		sets = append(sets, "    ("+strings.Join(cols, ", ")+")")
	}

	return strings.Join(sets, ",\n")
}
