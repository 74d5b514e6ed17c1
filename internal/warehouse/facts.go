package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrDimensionNotFound is returned when a fact references a shop or
	// article missing from the dimension tables.
	ErrDimensionNotFound = errors.New("dimension member not found")

	// ErrFactInsertFailed is returned when fact rows cannot be written.
	ErrFactInsertFailed = errors.New("fact insert failed")
)

// Fact is one sales transaction resolved to surrogate dimension keys.
type Fact struct {
	DateKey      int
	ShopKey      int
	ProductKey   int
	QuantitySold int
	Revenue      float64
}

// DateKeyFor converts a date to its YYYYMMDD surrogate key.
func DateKeyFor(t time.Time) int {
	key, _ := strconv.Atoi(t.Format("20060102"))

	return key
}

// ShopKeyByName resolves a shop name to its surrogate key.
func (s *SalesStore) ShopKeyByName(ctx context.Context, name string) (int, error) {
	var key int

	err := s.conn.QueryRowContext(ctx,
		"SELECT ShopKey FROM DimShop WHERE ShopName = $1", name).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: shop %q", ErrDimensionNotFound, name)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	return key, nil
}

// ProductKeyByArticle resolves an article name to its surrogate key.
func (s *SalesStore) ProductKeyByArticle(ctx context.Context, article string) (int, error) {
	var key int

	err := s.conn.QueryRowContext(ctx,
		"SELECT ProductKey FROM DimProduct WHERE ArticleName = $1", article).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: article %q", ErrDimensionNotFound, article)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	return key, nil
}

// InsertFact writes a single resolved fact row. Used by the streaming
// ingester where facts arrive one event at a time.
func (s *SalesStore) InsertFact(ctx context.Context, fact Fact) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO FactSales (DateKey, ShopKey, ProductKey, QuantitySold, Revenue)
VALUES ($1, $2, $3, $4, $5)`,
		fact.DateKey, fact.ShopKey, fact.ProductKey, fact.QuantitySold, fact.Revenue)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	return nil
}

// CopyFacts bulk-loads fact rows through the PostgreSQL COPY protocol
// inside one transaction. Used by the batch loader where round-tripping
// per row would dominate load time.
func (s *SalesStore) CopyFacts(ctx context.Context, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		pq.CopyIn("factsales", "datekey", "shopkey", "productkey", "quantitysold", "revenue"))
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	for _, fact := range facts {
		_, err = stmt.ExecContext(ctx,
			fact.DateKey, fact.ShopKey, fact.ProductKey, fact.QuantitySold, fact.Revenue)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()

			return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
		}
	}

	// Flush the COPY buffer.
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()

		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	if err = stmt.Close(); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	return nil
}

// ShopNames returns the shop dimension as a name to key map, used by the
// batch loader to resolve facts without per-row lookups.
func (s *SalesStore) ShopNames(ctx context.Context) (map[string]int, error) {
	return s.dimensionLookup(ctx, "SELECT ShopName, ShopKey FROM DimShop")
}

// ArticleNames returns the product dimension as an article name to key map.
func (s *SalesStore) ArticleNames(ctx context.Context) (map[string]int, error) {
	return s.dimensionLookup(ctx, "SELECT ArticleName, ProductKey FROM DimProduct")
}

func (s *SalesStore) dimensionLookup(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	lookup := make(map[string]int)

	for rows.Next() {
		var (
			name string
			key  int
		)

		if err := rows.Scan(&name, &key); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrFactInsertFailed, err)
		}

		lookup[name] = key
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFactInsertFailed, err)
	}

	return lookup, nil
}
