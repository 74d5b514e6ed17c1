package olap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_RanksAreContiguous(t *testing.T) {
	catalog := DefaultCatalog()

	for d := Geography; d < NumDimensions; d++ {
		h := catalog.Hierarchy(d)

		require.Len(t, h.Levels, 4, "dimension %s", d)
		assert.Equal(t, 3, h.MaxRank())

		for i, lvl := range h.Levels {
			assert.Equal(t, i, lvl.Rank, "dimension %s level %s", d, lvl.Name)
			assert.NotEmpty(t, lvl.Column)
		}
	}
}

func TestDefaultCatalog_LevelOrdering(t *testing.T) {
	catalog := DefaultCatalog()

	geo := catalog.Hierarchy(Geography)
	assert.Equal(t, "shop", geo.Levels[0].Name)
	assert.Equal(t, "city", geo.Levels[1].Name)
	assert.Equal(t, "region", geo.Levels[2].Name)
	assert.Equal(t, "country", geo.Levels[3].Name)

	tm := catalog.Hierarchy(Time)
	assert.Equal(t, "day", tm.Levels[0].Name)
	assert.Equal(t, "year", tm.Levels[3].Name)

	prod := catalog.Hierarchy(Product)
	assert.Equal(t, "article", prod.Levels[0].Name)
	assert.Equal(t, "productCategory", prod.Levels[3].Name)
}

func TestHierarchy_LevelByName(t *testing.T) {
	catalog := DefaultCatalog()

	lvl, err := catalog.Hierarchy(Geography).LevelByName("region")
	require.NoError(t, err)
	assert.Equal(t, 2, lvl.Rank)
	assert.Equal(t, "s.RegionName", lvl.Column)
}

func TestHierarchy_LevelByName_Unknown(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Hierarchy(Time).LevelByName("week")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestHierarchy_LevelByName_CaseSensitive(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Hierarchy(Geography).LevelByName("Region")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestHierarchy_Level_OutOfRange(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Hierarchy(Product).Level(4)
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, err = catalog.Hierarchy(Product).Level(-1)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestCatalog_ColumnsAt(t *testing.T) {
	catalog := DefaultCatalog()

	cols, err := catalog.ColumnsAt([NumDimensions]int{2, 2, 1})
	require.NoError(t, err)

	assert.Equal(t, "s.RegionName", cols[Geography])
	assert.Equal(t, "d.Quarter", cols[Time])
	assert.Equal(t, "p.ProductGroupName", cols[Product])
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		name    string
		want    Dimension
		wantErr bool
	}{
		{name: "geography", want: Geography},
		{name: "geo", want: Geography},
		{name: "time", want: Time},
		{name: "product", want: Product},
		{name: "products", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		d, err := ParseDimension(tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownDimension, "input %q", tt.name)

			continue
		}

		require.NoError(t, err, "input %q", tt.name)
		assert.Equal(t, tt.want, d)
	}
}
