package olap

// State is the mutable record of the current level selected in each
// hierarchy. It is a pure state machine over (geo, time, product) ranks
// within [0, maxRank]: every transition either mutates the state and
// succeeds, or leaves it unchanged and reports a boundary condition.
// Operations on different dimensions commute.
//
// A State belongs to exactly one session and is never shared across
// concurrent sessions, so it carries no locking.
type State struct {
	catalog *Catalog
	ranks   [NumDimensions]int
}

// NewState creates a navigation state at the given initial ranks,
// validated against the catalog bounds.
func NewState(catalog *Catalog, ranks [NumDimensions]int) (*State, error) {
	for d := Geography; d < NumDimensions; d++ {
		if _, err := catalog.Hierarchy(d).Level(ranks[d]); err != nil {
			return nil, err
		}
	}

	return &State{catalog: catalog, ranks: ranks}, nil
}

// NewStateAt creates a navigation state from level names, one per
// dimension in (geography, time, product) order.
func NewStateAt(catalog *Catalog, geo, time, product string) (*State, error) {
	var ranks [NumDimensions]int

	for d, name := range [NumDimensions]string{geo, time, product} {
		lvl, err := catalog.Hierarchy(Dimension(d)).LevelByName(name)
		if err != nil {
			return nil, err
		}

		ranks[d] = lvl.Rank
	}

	return &State{catalog: catalog, ranks: ranks}, nil
}

// Rank returns the current rank of the given dimension.
func (s *State) Rank(d Dimension) int {
	return s.ranks[d]
}

// Ranks returns the current ranks of all dimensions, indexed by Dimension.
func (s *State) Ranks() [NumDimensions]int {
	return s.ranks
}

// Level returns the catalog level the dimension currently points at.
func (s *State) Level(d Dimension) HierarchyLevel {
	// The rank is always in bounds: it was validated at construction
	// and only mutated by guarded transitions.
	lvl, _ := s.catalog.Hierarchy(d).Level(s.ranks[d])

	return lvl
}

// DrillDown moves the dimension one level toward more detail
// (decrements its rank). At rank 0 it fails with
// BoundaryError{MostDetailed} and the state is unchanged.
func (s *State) DrillDown(d Dimension) error {
	if s.ranks[d] == 0 {
		return &BoundaryError{Dimension: d, Kind: MostDetailed, Level: s.Level(d).Name}
	}

	s.ranks[d]--

	return nil
}

// RollUp moves the dimension one level toward more aggregation
// (increments its rank). At the top rank it fails with
// BoundaryError{MostAggregated} and the state is unchanged.
func (s *State) RollUp(d Dimension) error {
	if s.ranks[d] == s.catalog.Hierarchy(d).MaxRank() {
		return &BoundaryError{Dimension: d, Kind: MostAggregated, Level: s.Level(d).Name}
	}

	s.ranks[d]++

	return nil
}
