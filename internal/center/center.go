// Package center removes between-subject scale differences from simulation
// durations by subtracting each participant's own mean.
package center

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// Result is the output of Center.
type Result struct {
	Table *trial.Table
	// Means holds mean(sim_time) for every participant with at least one
	// valid trial.
	Means map[string]float64
	// Degenerate lists participants skipped because none of their trials
	// had a usable sim_time, in order of first appearance.
	Degenerate []string
}

// Center sets sim_centered = sim_time - mean_p(sim_time) for every
// non-excluded trial of participant p with a sim_time. Excluded trials and
// trials without a sim_time keep sim_centered null.
//
// It always reads SimTime. Feeding it a table whose SimTime already holds
// centred values is a caller error.
func Center(t *trial.Table) *Result {
	out := t.Clone()
	res := &Result{Table: out, Means: make(map[string]float64)}
	rows := out.RowsByParticipant()

	for _, p := range out.Participants() {
		var sims []float64
		var idx []int
		for _, i := range rows[p] {
			tr := out.Trials[i]
			if tr.Excluded || !tr.SimTime.Valid {
				continue
			}
			sims = append(sims, tr.SimTime.Float64)
			idx = append(idx, i)
		}
		if len(sims) == 0 {
			res.Degenerate = append(res.Degenerate, p)
			continue
		}
		mean := stat.Mean(sims, nil)
		res.Means[p] = mean
		for _, i := range idx {
			out.Trials[i].SimCentered = trial.Float(out.Trials[i].SimTime.Float64 - mean)
		}
	}

	monitoring.Stagef("center", string(t.Condition), "centred %d participants", len(res.Means))
	if len(res.Degenerate) > 0 {
		monitoring.Warnf("center", string(t.Condition), "%d participants have no valid trials: %v",
			len(res.Degenerate), res.Degenerate)
	}
	return res
}
