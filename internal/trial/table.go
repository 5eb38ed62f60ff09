package trial

import (
	"database/sql"
	"sort"
)

// Table is the columnar-by-accessor store of one condition's trials.
type Table struct {
	Condition Condition
	Trials    []Trial
}

// NewTable builds a table for condition and assigns row indices in input
// order.
func NewTable(condition Condition, trials []Trial) *Table {
	t := &Table{Condition: condition, Trials: make([]Trial, len(trials))}
	copy(t.Trials, trials)
	for i := range t.Trials {
		t.Trials[i].Row = i
	}
	return t
}

// Clone returns a deep copy. Trial holds only value fields so a slice copy
// is sufficient.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Condition: t.Condition, Trials: make([]Trial, len(t.Trials))}
	copy(out.Trials, t.Trials)
	return out
}

// Len returns the number of rows, excluded rows included.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Trials)
}

// Participants returns participant ids in order of first appearance.
func (t *Table) Participants() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tr := range t.Trials {
		if !seen[tr.ParticipantID] {
			seen[tr.ParticipantID] = true
			out = append(out, tr.ParticipantID)
		}
	}
	return out
}

// RowsByParticipant maps every participant to its row indices in table
// order.
func (t *Table) RowsByParticipant() map[string][]int {
	out := make(map[string][]int)
	for i, tr := range t.Trials {
		out[tr.ParticipantID] = append(out[tr.ParticipantID], i)
	}
	return out
}

// Column extracts the non-null values of field from non-excluded trials,
// in row order.
func (t *Table) Column(field func(Trial) sql.NullFloat64) []float64 {
	var out []float64
	for _, tr := range t.Trials {
		if tr.Excluded {
			continue
		}
		if v := field(tr); v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// CountExcluded returns how many trials carry reason. NotExcluded counts the
// retained trials.
func (t *Table) CountExcluded(reason Exclusion) int {
	n := 0
	for _, tr := range t.Trials {
		if tr.Exclusion == reason && tr.Excluded == (reason != NotExcluded) {
			n++
		}
	}
	return n
}

// CountExcludedAny returns the number of excluded trials regardless of
// reason.
func (t *Table) CountExcludedAny() int {
	n := 0
	for _, tr := range t.Trials {
		if tr.Excluded {
			n++
		}
	}
	return n
}

// Accessors for Column.
func PathTime(t Trial) sql.NullFloat64       { return t.PathTime }
func SimTime(t Trial) sql.NullFloat64        { return t.SimTime }
func Diff(t Trial) sql.NullFloat64           { return t.Diff }
func SimCentered(t Trial) sql.NullFloat64    { return t.SimCentered }
func Compression(t Trial) sql.NullFloat64    { return t.Compression }
func LogCompression(t Trial) sql.NullFloat64 { return t.LogCompression }

// RatingOf returns an accessor for rating r.
func RatingOf(r Rating) func(Trial) sql.NullFloat64 {
	return func(t Trial) sql.NullFloat64 { return t.Ratings[r] }
}

// SortConditions orders conditions with the defaults first (slow, medium,
// fast) and any other tag after them alphabetically.
func SortConditions(cs []Condition) {
	rank := func(c Condition) int {
		for i, d := range DefaultConditions {
			if c == d {
				return i
			}
		}
		return len(DefaultConditions)
	}
	sort.SliceStable(cs, func(i, j int) bool {
		ri, rj := rank(cs[i]), rank(cs[j])
		if ri != rj {
			return ri < rj
		}
		return cs[i] < cs[j]
	})
}
