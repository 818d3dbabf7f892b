package domain

import "strings"

// RegionFilter keeps only rows for State. It leaves the state-scoped request
// for State untouched, since every row it returns is already in State.
type RegionFilter struct {
	State string
}

// Applies reports whether the filter removes rows from req's report.
func (f RegionFilter) Applies(req Request) bool {
	if f.State == "" {
		return false
	}
	return req.Region.Type != RegionState || !strings.EqualFold(req.Region.Code, f.State)
}

// Apply returns the rows that survive the filter and the number removed.
// It never modifies rows.
func (f RegionFilter) Apply(req Request, rows []Row) ([]Row, int) {
	if !f.Applies(req) {
		return rows, 0
	}
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if strings.EqualFold(r.Station.State, f.State) {
			kept = append(kept, r)
		}
	}
	return kept, len(rows) - len(kept)
}
