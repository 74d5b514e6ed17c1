package olap

import "fmt"

// HierarchyLevel is one aggregation level of a dimension hierarchy.
// Rank 0 is the most detailed level; higher ranks are more aggregated.
type HierarchyLevel struct {
	Name string

	// Rank is the position in the hierarchy. Within one hierarchy,
	// ranks are contiguous integers starting at 0, and
	// Levels[i].Rank == i always holds.
	Rank int

	// Column is the qualified warehouse column that carries this
	// level's value, e.g. "s.RegionName".
	Column string
}

// Hierarchy is the ordered level sequence of one dimension, from most
// detailed (rank 0) to most aggregated.
type Hierarchy struct {
	Dimension Dimension
	Levels    []HierarchyLevel
}

// MaxRank returns the rank of the most aggregated level.
func (h *Hierarchy) MaxRank() int {
	return len(h.Levels) - 1
}

// Level returns the level at the given rank.
func (h *Hierarchy) Level(rank int) (HierarchyLevel, error) {
	if rank < 0 || rank > h.MaxRank() {
		return HierarchyLevel{}, fmt.Errorf("%w: %s rank %d out of range [0,%d]",
			ErrUnknownLevel, h.Dimension, rank, h.MaxRank())
	}

	return h.Levels[rank], nil
}

// LevelByName returns the level with the given name.
// Level names are matched exactly (case-sensitive).
func (h *Hierarchy) LevelByName(name string) (HierarchyLevel, error) {
	for _, lvl := range h.Levels {
		if lvl.Name == name {
			return lvl, nil
		}
	}

	return HierarchyLevel{}, fmt.Errorf("%w: %q is not a level of the %s hierarchy",
		ErrUnknownLevel, name, h.Dimension)
}

// Catalog is the read-only definition of the three dimension
// hierarchies and their level-to-column mapping.
type Catalog struct {
	hierarchies [NumDimensions]*Hierarchy
}

// Hierarchy returns the hierarchy of the given dimension.
func (c *Catalog) Hierarchy(d Dimension) *Hierarchy {
	return c.hierarchies[d]
}

// ColumnsAt resolves the dimension columns for one rank per dimension,
// indexed by Dimension.
func (c *Catalog) ColumnsAt(ranks [NumDimensions]int) ([NumDimensions]string, error) {
	var cols [NumDimensions]string

	for d := Geography; d < NumDimensions; d++ {
		lvl, err := c.hierarchies[d].Level(ranks[d])
		if err != nil {
			return cols, err
		}

		cols[d] = lvl.Column
	}

	return cols, nil
}

// DefaultCatalog returns the star-schema catalog of the sales
// warehouse: four levels per dimension, backed by DimShop, DimDate and
// DimProduct (aliased s, d and p in aggregation queries).
func DefaultCatalog() *Catalog {
	return &Catalog{
		hierarchies: [NumDimensions]*Hierarchy{
			{
				Dimension: Geography,
				Levels: []HierarchyLevel{
					{Name: "shop", Rank: 0, Column: "s.ShopName"},
					{Name: "city", Rank: 1, Column: "s.CityName"},
					{Name: "region", Rank: 2, Column: "s.RegionName"},
					{Name: "country", Rank: 3, Column: "s.CountryName"},
				},
			},
			{
				Dimension: Time,
				Levels: []HierarchyLevel{
					{Name: "day", Rank: 0, Column: "d.Day"},
					{Name: "month", Rank: 1, Column: "d.Month"},
					{Name: "quarter", Rank: 2, Column: "d.Quarter"},
					{Name: "year", Rank: 3, Column: "d.Year"},
				},
			},
			{
				Dimension: Product,
				Levels: []HierarchyLevel{
					{Name: "article", Rank: 0, Column: "p.ArticleName"},
					{Name: "productGroup", Rank: 1, Column: "p.ProductGroupName"},
					{Name: "productFamily", Rank: 2, Column: "p.ProductFamilyName"},
					{Name: "productCategory", Rank: 3, Column: "p.ProductCategoryName"},
				},
			},
		},
	}
}
