// Package reference attaches the expert optimal time of every route to the
// trials of a condition.
//
// The join is keyed on route id. Tables whose trials arrive without a
// route column get their route ids from AssignByBlock, which checks the
// participant-major, route-minor layout explicitly instead of trusting row
// order.
package reference

import (
	"fmt"
	"math"
)

// Route is one row of the route reference table.
type Route struct {
	ID          string
	OptimalTime float64
}

// Routes is the immutable route reference table, in file order.
type Routes struct {
	order []Route
	index map[string]int
}

// NewRoutes validates and indexes the reference rows. Route ids must be
// unique and non-empty, optimal times finite and positive.
func NewRoutes(rows []Route) (*Routes, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("route reference table is empty")
	}
	r := &Routes{order: make([]Route, len(rows)), index: make(map[string]int, len(rows))}
	for i, row := range rows {
		if row.ID == "" {
			return nil, fmt.Errorf("route reference row %d has no route_id", i)
		}
		if math.IsNaN(row.OptimalTime) || math.IsInf(row.OptimalTime, 0) || row.OptimalTime <= 0 {
			return nil, fmt.Errorf("route %q has invalid optimal_time %v", row.ID, row.OptimalTime)
		}
		if _, dup := r.index[row.ID]; dup {
			return nil, fmt.Errorf("route %q appears more than once in the reference table", row.ID)
		}
		r.index[row.ID] = i
		r.order[i] = row
	}
	return r, nil
}

// BestOf returns the fastest of the expert traversal times, ignoring NaN
// entries. ok is false when no traversal is usable.
func BestOf(traversals ...float64) (best float64, ok bool) {
	best = math.Inf(1)
	for _, t := range traversals {
		if math.IsNaN(t) {
			continue
		}
		if t < best {
			best = t
			ok = true
		}
	}
	return best, ok
}

// Len returns the number of routes (R).
func (r *Routes) Len() int { return len(r.order) }

// At returns the i-th route in file order.
func (r *Routes) At(i int) Route { return r.order[i] }

// Lookup resolves a route id.
func (r *Routes) Lookup(id string) (float64, bool) {
	i, ok := r.index[id]
	if !ok {
		return 0, false
	}
	return r.order[i].OptimalTime, true
}

// IDs returns route ids in file order.
func (r *Routes) IDs() []string {
	out := make([]string, len(r.order))
	for i, row := range r.order {
		out[i] = row.ID
	}
	return out
}
