package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSummaryQueryFailed is returned when a warehouse summary query fails.
var ErrSummaryQueryFailed = errors.New("summary query failed")

// SummaryStats describes the loaded warehouse at a glance.
type SummaryStats struct {
	TotalRevenue      float64   `json:"totalRevenue"`
	TotalTransactions int64     `json:"totalTransactions"`
	UniqueProducts    int64     `json:"uniqueProducts"`
	UniqueShops       int64     `json:"uniqueShops"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
}

// Summary collects warehouse-wide statistics from the fact table: total
// revenue, transaction count, distinct products and shops, and the date
// range covered by the loaded facts. An empty fact table yields zero
// stats, not an error.
func (s *SalesStore) Summary(ctx context.Context) (*SummaryStats, error) {
	stats := &SummaryStats{}

	var revenue sql.NullFloat64

	err := s.conn.QueryRowContext(ctx, `SELECT
    COALESCE(SUM(Revenue), 0),
    COUNT(*),
    COUNT(DISTINCT ProductKey),
    COUNT(DISTINCT ShopKey)
FROM FactSales`).Scan(&revenue, &stats.TotalTransactions, &stats.UniqueProducts, &stats.UniqueShops)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummaryQueryFailed, err)
	}

	stats.TotalRevenue = revenue.Float64

	var start, end sql.NullTime

	err = s.conn.QueryRowContext(ctx, `SELECT MIN(d.FullDate), MAX(d.FullDate)
FROM FactSales f
JOIN DimDate d ON f.DateKey = d.DateKey`).Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummaryQueryFailed, err)
	}

	stats.StartDate = start.Time
	stats.EndDate = end.Time

	return stats, nil
}
