package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/warehouse"
)

func writeTestCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoader_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := &warehouse.Connection{DB: testDB.Connection}

	store, err := warehouse.NewSalesStore(conn)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := &Config{
		ShopsCSV: writeTestCSV(t, dir, "shops.csv",
			"ShopID;ShopName;CityID;CityName;RegionID;RegionName;CountryID;CountryName\n"+
				"1;Shop Hamburg;1;Hamburg;1;North;1;Germany\n"+
				"2;Shop Munich;2;Munich;2;South;1;Germany\n"),
		ProductsCSV: writeTestCSV(t, dir, "products.csv",
			"ArticleID;ArticleName;Price;ProductGroupID;ProductGroupName;"+
				"ProductFamilyID;ProductFamilyName;ProductCategoryID;ProductCategoryName\n"+
				"1;Pale Ale;2,50;1;Ale;1;Beer;1;Beverages\n"),
		SalesCSV: writeTestCSV(t, dir, "sales.csv",
			"Date;Shop;Article;Sold;Revenue\n"+
				"15.01.2019;Shop Hamburg;Pale Ale;10;25,00\n"+
				"16.01.2019;Shop Munich;Pale Ale;4;10,00\n"+
				"17.01.2019;Unknown Shop;Pale Ale;1;2,50\n"+ // skipped: no such shop
				"bad-date;Shop Hamburg;Pale Ale;1;2,50\n"), // skipped: malformed date
		Delimiter: ";",
		StartYear: 2019,
		EndYear:   2019,
		BatchSize: 2,
	}

	loader := NewLoader(conn, store, cfg)

	stats, err := loader.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 365, stats.DatesInserted)
	assert.Equal(t, 2, stats.ShopsLoaded)
	assert.Equal(t, 1, stats.ProductsLoaded)
	assert.Equal(t, 2, stats.FactsLoaded)
	assert.Equal(t, 2, stats.RowsSkipped)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalTransactions)
	assert.InDelta(t, 35.0, summary.TotalRevenue, 1e-9)
}

func TestLoader_RunIsIdempotentForDates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := &warehouse.Connection{DB: testDB.Connection}

	_, err := PopulateDimDate(ctx, conn, 2019, 2019)
	require.NoError(t, err)

	// Second run hits ON CONFLICT DO NOTHING for every key.
	_, err = PopulateDimDate(ctx, conn, 2019, 2019)
	require.NoError(t, err)

	var count int
	require.NoError(t, testDB.Connection.QueryRow("SELECT COUNT(*) FROM DimDate").Scan(&count))
	assert.Equal(t, 365, count)
}
