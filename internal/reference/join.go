package reference

import (
	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// NeedsAssignment reports whether no trial carries a route id. A table
// with some ids given is joined by key, so a blank id fails the join.
func NeedsAssignment(t *trial.Table) bool {
	for _, tr := range t.Trials {
		if tr.RouteID != "" {
			return false
		}
	}
	return t.Len() > 0
}

// AssignByBlock gives every trial a route id from its position: the table
// must consist of contiguous participant blocks of exactly routes.Len()
// trials, and the k-th trial of each block ran the k-th route. Any other
// layout returns an *AlignmentError instead of silently misaligning.
func AssignByBlock(t *trial.Table, routes *Routes) (*trial.Table, error) {
	out := t.Clone()
	r := routes.Len()
	participants := out.Participants()

	if want := len(participants) * r; want != out.Len() {
		return nil, &AlignmentError{
			Condition: out.Condition,
			Expected:  want,
			Got:       out.Len(),
			Reason:    "replicated reference rows do not match trial rows",
		}
	}

	for p, id := range participants {
		start := p * r
		for k := 0; k < r; k++ {
			tr := &out.Trials[start+k]
			if tr.ParticipantID != id {
				count := 0
				for _, other := range out.Trials {
					if other.ParticipantID == id {
						count++
					}
				}
				reason := "participant block is not contiguous"
				if count != r {
					reason = "participant trial count differs from route count"
				}
				return nil, &AlignmentError{
					Condition:   out.Condition,
					Participant: id,
					Expected:    r,
					Got:         count,
					Reason:      reason,
				}
			}
			tr.RouteID = routes.At(k).ID
		}
	}
	return out, nil
}

// Join attaches optimal_time by route id and derives diff = path_time -
// optimal_time for every non-excluded trial with a path time. Every trial
// must resolve to exactly one reference row.
func Join(t *trial.Table, routes *Routes) (*trial.Table, error) {
	out := t.Clone()
	for i := range out.Trials {
		tr := &out.Trials[i]
		opt, ok := routes.Lookup(tr.RouteID)
		if !ok {
			return nil, &MissingReferenceError{Condition: out.Condition, Row: tr.Row, RouteID: tr.RouteID}
		}
		if tr.Excluded {
			continue
		}
		tr.OptimalTime = trial.Float(opt)
		if tr.PathTime.Valid {
			tr.Diff = trial.Float(tr.PathTime.Float64 - opt)
		} else {
			tr.Diff = trial.Null
		}
	}

	if out.Len() != t.Len() {
		return nil, &AlignmentError{
			Condition: out.Condition,
			Expected:  t.Len(),
			Got:       out.Len(),
			Reason:    "join changed the row count",
		}
	}

	monitoring.Stagef("join", string(out.Condition), "attached %d routes to %d trials", routes.Len(), out.Len())
	return out, nil
}

// Attach runs AssignByBlock when no trial has a route id, then Join.
func Attach(t *trial.Table, routes *Routes) (*trial.Table, error) {
	if NeedsAssignment(t) {
		assigned, err := AssignByBlock(t, routes)
		if err != nil {
			return nil, err
		}
		t = assigned
	}
	return Join(t, routes)
}
