package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// Sentinel errors for CSV loading.
var (
	// ErrMissingColumn is returned when a CSV file lacks a required header column.
	ErrMissingColumn = errors.New("missing CSV column")

	// ErrLoadFailed is returned when a load stage fails.
	ErrLoadFailed = errors.New("load failed")
)

// Stats summarizes one loader run.
type Stats struct {
	DatesInserted  int
	ShopsLoaded    int
	ProductsLoaded int
	FactsLoaded    int
	RowsSkipped    int
}

// Loader runs the batch load: date dimension, shop and product
// dimensions from CSV, then sales facts with key resolution.
type Loader struct {
	conn   *warehouse.Connection
	store  *warehouse.SalesStore
	cfg    *Config
	logger *slog.Logger
}

// NewLoader creates a loader over an open warehouse connection.
func NewLoader(conn *warehouse.Connection, store *warehouse.SalesStore, cfg *Config) *Loader {
	return &Loader{
		conn:  conn,
		store: store,
		cfg:   cfg,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}
}

// Run executes the full load. Malformed fact rows are skipped and
// counted, never fatal; a missing file or broken dimension CSV is.
func (l *Loader) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	dates, err := PopulateDimDate(ctx, l.conn, l.cfg.StartYear, l.cfg.EndYear)
	if err != nil {
		return nil, err
	}

	stats.DatesInserted = dates
	l.logger.Info("date dimension populated", slog.Int("days", dates))

	if stats.ShopsLoaded, err = l.loadShops(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("shop dimension loaded", slog.Int("shops", stats.ShopsLoaded))

	if stats.ProductsLoaded, err = l.loadProducts(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("product dimension loaded", slog.Int("products", stats.ProductsLoaded))

	if err := l.loadSales(ctx, stats); err != nil {
		return nil, err
	}

	l.logger.Info("sales facts loaded",
		slog.Int("loaded", stats.FactsLoaded),
		slog.Int("skipped", stats.RowsSkipped),
	)

	return stats, nil
}

func (l *Loader) loadShops(ctx context.Context) (int, error) {
	rows, idx, err := l.openCSV(l.cfg.ShopsCSV,
		"ShopID", "ShopName", "CityID", "CityName", "RegionID", "RegionName", "CountryID", "CountryName")
	if err != nil {
		return 0, err
	}
	defer rows.close()

	count := 0

	for {
		record, err := rows.read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, fmt.Errorf("%w: shops: %w", ErrLoadFailed, err)
		}

		ids, err := parseInts(record, idx, "ShopID", "CityID", "RegionID", "CountryID")
		if err != nil {
			return 0, fmt.Errorf("%w: shops: %w", ErrLoadFailed, err)
		}

		_, err = l.conn.ExecContext(ctx, `
			INSERT INTO DimShop (ShopID, ShopName, CityID, CityName, RegionID, RegionName, CountryID, CountryName)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ids["ShopID"], record[idx["ShopName"]],
			ids["CityID"], record[idx["CityName"]],
			ids["RegionID"], record[idx["RegionName"]],
			ids["CountryID"], record[idx["CountryName"]],
		)
		if err != nil {
			return 0, fmt.Errorf("%w: shops: %w", ErrLoadFailed, err)
		}

		count++
	}

	return count, nil
}

func (l *Loader) loadProducts(ctx context.Context) (int, error) {
	rows, idx, err := l.openCSV(l.cfg.ProductsCSV,
		"ArticleID", "ArticleName", "Price", "ProductGroupID", "ProductGroupName",
		"ProductFamilyID", "ProductFamilyName", "ProductCategoryID", "ProductCategoryName")
	if err != nil {
		return 0, err
	}
	defer rows.close()

	count := 0

	for {
		record, err := rows.read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, fmt.Errorf("%w: products: %w", ErrLoadFailed, err)
		}

		ids, err := parseInts(record, idx, "ArticleID", "ProductGroupID", "ProductFamilyID", "ProductCategoryID")
		if err != nil {
			return 0, fmt.Errorf("%w: products: %w", ErrLoadFailed, err)
		}

		price, err := ParseGermanDecimal(record[idx["Price"]])
		if err != nil {
			return 0, fmt.Errorf("%w: products: %w", ErrLoadFailed, err)
		}

		_, err = l.conn.ExecContext(ctx, `
			INSERT INTO DimProduct (ArticleID, ArticleName, Price, ProductGroupID, ProductGroupName,
			                        ProductFamilyID, ProductFamilyName, ProductCategoryID, ProductCategoryName)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ids["ArticleID"], record[idx["ArticleName"]], price,
			ids["ProductGroupID"], record[idx["ProductGroupName"]],
			ids["ProductFamilyID"], record[idx["ProductFamilyName"]],
			ids["ProductCategoryID"], record[idx["ProductCategoryName"]],
		)
		if err != nil {
			return 0, fmt.Errorf("%w: products: %w", ErrLoadFailed, err)
		}

		count++
	}

	return count, nil
}

func (l *Loader) loadSales(ctx context.Context, stats *Stats) error {
	rows, idx, err := l.openCSV(l.cfg.SalesCSV, "Date", "Shop", "Article", "Sold", "Revenue")
	if err != nil {
		return err
	}
	defer rows.close()

	shopLookup, err := l.store.ShopNames(ctx)
	if err != nil {
		return err
	}

	productLookup, err := l.store.ArticleNames(ctx)
	if err != nil {
		return err
	}

	batch := make([]warehouse.Fact, 0, l.cfg.BatchSize)
	rowNum := 0

	for {
		record, err := rows.read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("%w: sales: %w", ErrLoadFailed, err)
		}

		rowNum++

		fact, ok := l.resolveFact(record, idx, shopLookup, productLookup, rowNum)
		if !ok {
			stats.RowsSkipped++

			continue
		}

		batch = append(batch, fact)

		if len(batch) >= l.cfg.BatchSize {
			if err := l.store.CopyFacts(ctx, batch); err != nil {
				return err
			}

			stats.FactsLoaded += len(batch)
			batch = batch[:0]
		}
	}

	if err := l.store.CopyFacts(ctx, batch); err != nil {
		return err
	}

	stats.FactsLoaded += len(batch)

	return nil
}

// resolveFact parses one sales row and resolves its dimension keys.
// Any failure skips the row with a warning.
func (l *Loader) resolveFact(
	record []string,
	idx map[string]int,
	shopLookup, productLookup map[string]int,
	rowNum int,
) (warehouse.Fact, bool) {
	dateKey, err := ParseSaleDate(record[idx["Date"]])
	if err != nil {
		l.logger.Warn("skipping sales row", slog.Int("row", rowNum), slog.String("error", err.Error()))

		return warehouse.Fact{}, false
	}

	shopKey, ok := shopLookup[record[idx["Shop"]]]
	if !ok {
		l.logger.Warn("skipping sales row: unknown shop",
			slog.Int("row", rowNum), slog.String("shop", record[idx["Shop"]]))

		return warehouse.Fact{}, false
	}

	productKey, ok := productLookup[record[idx["Article"]]]
	if !ok {
		l.logger.Warn("skipping sales row: unknown article",
			slog.Int("row", rowNum), slog.String("article", record[idx["Article"]]))

		return warehouse.Fact{}, false
	}

	sold, err := strconv.Atoi(record[idx["Sold"]])
	if err != nil {
		l.logger.Warn("skipping sales row", slog.Int("row", rowNum), slog.String("error", err.Error()))

		return warehouse.Fact{}, false
	}

	revenue, err := ParseGermanDecimal(record[idx["Revenue"]])
	if err != nil {
		l.logger.Warn("skipping sales row", slog.Int("row", rowNum), slog.String("error", err.Error()))

		return warehouse.Fact{}, false
	}

	return warehouse.Fact{
		DateKey:      dateKey,
		ShopKey:      shopKey,
		ProductKey:   productKey,
		QuantitySold: sold,
		Revenue:      revenue,
	}, true
}

// csvRows wraps an open CSV file and its reader.
type csvRows struct {
	file   *os.File
	reader *csv.Reader
}

func (r *csvRows) read() ([]string, error) { return r.reader.Read() }
func (r *csvRows) close()                  { _ = r.file.Close() }

// openCSV opens a delimited file, reads its header and returns a column
// name to index map, verifying every required column is present.
func (l *Loader) openCSV(path string, required ...string) (*csvRows, map[string]int, error) {
	file, err := os.Open(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = rune(l.cfg.Delimiter[0])

	header, err := reader.Read()
	if err != nil {
		_ = file.Close()

		return nil, nil, fmt.Errorf("%w: reading header of %s: %w", ErrLoadFailed, path, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	for _, name := range required {
		if _, ok := idx[name]; !ok {
			_ = file.Close()

			return nil, nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, name, path)
		}
	}

	return &csvRows{file: file, reader: reader}, idx, nil
}
