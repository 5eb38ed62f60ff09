// Package compression derives the temporal compression ratio of every
// trial, sim_time / path_time, and its group-level summaries.
package compression

import (
	"math"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// Result is the output of Estimate.
type Result struct {
	Table *trial.Table
	// UndefinedRatios counts non-excluded trials whose ratio could not be
	// formed: path_time null or zero, or sim_time null.
	UndefinedRatios int
	// NonPositive counts ratios whose log is undefined (compression <= 0).
	NonPositive int
}

// Estimate sets compression = sim_time / path_time and log_compression =
// ln(compression) on every non-excluded trial. log_compression stays null
// when compression <= 0.
func Estimate(t *trial.Table) *Result {
	out := t.Clone()
	res := &Result{Table: out}

	for i := range out.Trials {
		tr := &out.Trials[i]
		tr.Compression = trial.Null
		tr.LogCompression = trial.Null
		if tr.Excluded {
			continue
		}
		if !tr.PathTime.Valid || tr.PathTime.Float64 == 0 || !tr.SimTime.Valid {
			res.UndefinedRatios++
			continue
		}
		c := tr.SimTime.Float64 / tr.PathTime.Float64
		tr.Compression = trial.Float(c)
		if c > 0 {
			tr.LogCompression = trial.Float(math.Log(c))
		} else {
			res.NonPositive++
		}
	}

	monitoring.Stagef("compression", string(t.Condition), "estimated %d ratios",
		out.Len()-out.CountExcludedAny()-res.UndefinedRatios)
	if res.UndefinedRatios > 0 {
		monitoring.Warnf("compression", string(t.Condition), "%d trials have an undefined ratio", res.UndefinedRatios)
	}
	return res
}
