package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/salescube-io/salescube/internal/config"
	"github.com/salescube-io/salescube/internal/olap"
)

// setupSalesStore starts a migrated postgres container and seeds a
// small star schema: two regions, two product groups, two quarters.
func setupSalesStore(ctx context.Context, t *testing.T) *SalesStore {
	t.Helper()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := &Connection{DB: testDB.Connection}

	seed := []string{
		`INSERT INTO DimDate (DateKey, FullDate, Year, Quarter, Month, Day, DayOfWeek, MonthName, QuarterName)
		 VALUES (20190115, '2019-01-15', 2019, 1, 1, 15, 2, 'January', 'Q1'),
		        (20190501, '2019-05-01', 2019, 2, 5, 1, 3, 'May', 'Q2'),
		        (20200115, '2020-01-15', 2020, 1, 1, 15, 3, 'January', 'Q1')`,
		`INSERT INTO DimShop (ShopID, ShopName, CityID, CityName, RegionID, RegionName, CountryID, CountryName)
		 VALUES (1, 'Shop Hamburg', 1, 'Hamburg', 1, 'North', 1, 'Germany'),
		        (2, 'Shop Munich', 2, 'Munich', 2, 'South', 1, 'Germany')`,
		`INSERT INTO DimProduct (ArticleID, ArticleName, Price, ProductGroupID, ProductGroupName,
		                         ProductFamilyID, ProductFamilyName, ProductCategoryID, ProductCategoryName)
		 VALUES (1, 'Pale Ale', 2.50, 1, 'Ale', 1, 'Beer', 1, 'Beverages'),
		        (2, 'Dark Bock', 3.00, 2, 'Bock', 1, 'Beer', 1, 'Beverages')`,
	}

	for _, stmt := range seed {
		_, err := conn.ExecContext(ctx, stmt)
		require.NoError(t, err, "failed to seed dimensions")
	}

	store, err := NewSalesStore(conn)
	require.NoError(t, err)

	facts := []Fact{
		{DateKey: 20190115, ShopKey: 1, ProductKey: 1, QuantitySold: 10, Revenue: 25.0},
		{DateKey: 20190501, ShopKey: 1, ProductKey: 2, QuantitySold: 5, Revenue: 15.0},
		{DateKey: 20190115, ShopKey: 2, ProductKey: 1, QuantitySold: 3, Revenue: 7.5},
		{DateKey: 20190501, ShopKey: 2, ProductKey: 2, QuantitySold: 5, Revenue: 15.0},
		{DateKey: 20200115, ShopKey: 1, ProductKey: 1, QuantitySold: 7, Revenue: 17.5},
	}
	require.NoError(t, store.CopyFacts(ctx, facts))

	return store
}

func TestSalesStore_CubeQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	builder := olap.NewRequestBuilder(olap.DefaultCatalog())

	req, err := builder.Cube([3]int{2, 2, 1}, olap.Filter{}) // region, quarter, productGroup
	require.NoError(t, err)

	rows, err := store.Query(ctx, req)
	require.NoError(t, err)

	classified := olap.ClassifyCube(rows)

	byLevel := make(map[olap.AggregationLevel][]olap.ClassifiedRow)
	for _, row := range classified {
		byLevel[row.Level] = append(byLevel[row.Level], row)
	}

	grand := byLevel[olap.LevelGrandTotal]
	require.Len(t, grand, 1)
	assert.Equal(t, int64(30), grand[0].Measures.Quantity)
	assert.Equal(t, int64(5), grand[0].Measures.Count)
	assert.InDelta(t, 80.0, grand[0].Measures.Revenue, 1e-9)

	// Detail rows sum to the grand total.
	var detailQty int64
	for _, row := range byLevel[olap.LevelDetail] {
		detailQty += row.Measures.Quantity
	}

	assert.Equal(t, grand[0].Measures.Quantity, detailQty)

	geoOnly := byLevel[olap.LevelByGeographyOnly]
	require.Len(t, geoOnly, 2)
}

func TestSalesStore_CubeQueryWithYearFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	builder := olap.NewRequestBuilder(olap.DefaultCatalog())

	req, err := builder.Cube([3]int{2, 2, 1}, olap.Filter{Year: 2019})
	require.NoError(t, err)

	rows, err := store.Query(ctx, req)
	require.NoError(t, err)

	for _, row := range olap.ClassifyCube(rows) {
		if row.Level == olap.LevelGrandTotal {
			assert.Equal(t, int64(23), row.Measures.Quantity, "2020 facts must be filtered out")
		}
	}
}

func TestSalesStore_GroupingSetsQueryReconciles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	builder := olap.NewRequestBuilder(olap.DefaultCatalog())

	req, err := builder.GroupingSets([3]int{2, 2, 1}, olap.Filter{Year: 2019})
	require.NoError(t, err)

	rows, err := store.Query(ctx, req)
	require.NoError(t, err)

	classified, err := olap.ClassifyGroupingSets(rows)
	require.NoError(t, err, "database must only return the declared grouping sets")

	ct, err := olap.BuildCrossTab(classified)
	require.NoError(t, err, "cells must reconcile with the grand total")

	assert.Equal(t, []string{"North", "South"}, ct.Rows)
	assert.Equal(t, []string{"Ale", "Bock"}, ct.Columns)
	assert.Equal(t, int64(23), ct.GrandTotal.Quantity)
	assert.Equal(t, int64(13), ct.GeoTotals["North"].Quantity)
	assert.Equal(t, int64(10), ct.GeoTotals["South"].Quantity)
}

func TestSalesStore_Summary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	stats, err := store.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalTransactions)
	assert.Equal(t, int64(2), stats.UniqueProducts)
	assert.Equal(t, int64(2), stats.UniqueShops)
	assert.InDelta(t, 80.0, stats.TotalRevenue, 1e-9)
	assert.Equal(t, "2019-01-15", stats.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2020-01-15", stats.EndDate.Format("2006-01-02"))
}

func TestSalesStore_StreamingFactInsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	shopKey, err := store.ShopKeyByName(ctx, "Shop Hamburg")
	require.NoError(t, err)

	productKey, err := store.ProductKeyByArticle(ctx, "Dark Bock")
	require.NoError(t, err)

	err = store.InsertFact(ctx, Fact{
		DateKey:      20190115,
		ShopKey:      shopKey,
		ProductKey:   productKey,
		QuantitySold: 2,
		Revenue:      6.0,
	})
	require.NoError(t, err)

	stats, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalTransactions)

	_, err = store.ShopKeyByName(ctx, "No Such Shop")
	assert.ErrorIs(t, err, ErrDimensionNotFound)
}

func TestSalesStore_DimensionLookups(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupSalesStore(ctx, t)

	shops, err := store.ShopNames(ctx)
	require.NoError(t, err)
	assert.Len(t, shops, 2)
	assert.Contains(t, shops, "Shop Hamburg")

	articles, err := store.ArticleNames(ctx)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
	assert.Contains(t, articles, "Pale Ale")
}
