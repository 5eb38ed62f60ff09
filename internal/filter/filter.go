// Package filter excludes "lost" trials: those whose path took much longer
// than the expert optimum.
//
// Both policies compute their cutoff from the unfiltered diff distribution
// they are given. They are alternatives, never chained: the sigma policy is
// kept for sensitivity comparison against the primary quantile policy.
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// Kind names an exclusion policy.
type Kind string

const (
	QuantileKind Kind = "quantile"
	SigmaKind    Kind = "sigma"
)

// Policy configures Apply.
type Policy struct {
	Kind Kind `json:"kind"`

	// Quantile is the cutoff quantile for QuantileKind (default 0.75).
	Quantile float64        `json:"quantile,omitempty"`
	Method   QuantileMethod `json:"method,omitempty"`

	// Multiplier scales the diff standard deviation for SigmaKind
	// (default 3).
	Multiplier float64 `json:"multiplier,omitempty"`
}

// DefaultQuantilePolicy is the primary policy used for all downstream
// analysis.
func DefaultQuantilePolicy() Policy {
	return Policy{Kind: QuantileKind, Quantile: 0.75, Method: Linear}
}

// DefaultSigmaPolicy is the sensitivity policy.
func DefaultSigmaPolicy() Policy {
	return Policy{Kind: SigmaKind, Multiplier: 3}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	switch p.Kind {
	case QuantileKind:
		if p.Quantile <= 0 || p.Quantile > 1 {
			return fmt.Errorf("quantile must be in (0, 1], got %v", p.Quantile)
		}
		if _, err := ParseQuantileMethod(string(p.Method)); err != nil {
			return err
		}
	case SigmaKind:
		if p.Multiplier <= 0 {
			return fmt.Errorf("sigma multiplier must be positive, got %v", p.Multiplier)
		}
	default:
		return fmt.Errorf("unknown filter policy %q", p.Kind)
	}
	return nil
}

func (p Policy) reason() trial.Exclusion {
	if p.Kind == SigmaKind {
		return trial.LostSigma
	}
	return trial.LostQuantile
}

// Result is the output of one Apply run.
type Result struct {
	Table  *trial.Table
	Policy Policy
	// Cutoff is the diff threshold; trials with diff > Cutoff were excluded.
	Cutoff float64
	// Considered is the number of non-null diffs the cutoff was computed on.
	Considered int
	// Lost counts trials excluded by this policy.
	Lost int
	// Faults counts trials nulled for a negative simulation time.
	Faults int
}

// InvalidateNegativeSim nulls every trial whose sim_time is negative, a
// measurement fault. It returns the new table and the number of trials
// nulled.
func InvalidateNegativeSim(t *trial.Table) (*trial.Table, int) {
	out := t.Clone()
	n := 0
	for i := range out.Trials {
		tr := &out.Trials[i]
		if tr.Excluded || !tr.SimTime.Valid || tr.SimTime.Float64 >= 0 {
			continue
		}
		tr.Exclude(trial.InvalidSimTime)
		n++
	}
	return out, n
}

// Cutoff computes the policy threshold over diffs.
func Cutoff(diffs []float64, p Policy) (float64, error) {
	if len(diffs) == 0 {
		return math.NaN(), fmt.Errorf("no diff values to compute a %s cutoff", p.Kind)
	}
	switch p.Kind {
	case QuantileKind:
		return Quantile(p.Quantile, diffs, p.Method)
	case SigmaKind:
		if len(diffs) < 2 {
			return math.NaN(), fmt.Errorf("sigma cutoff needs at least 2 diffs, got %d", len(diffs))
		}
		return p.Multiplier * stat.StdDev(diffs, nil), nil
	}
	return math.NaN(), fmt.Errorf("unknown filter policy %q", p.Kind)
}

// Apply nulls negative-sim trials, computes the policy cutoff over the
// remaining non-null diffs, and excludes every trial whose diff is strictly
// greater than the cutoff. The input table is not modified.
func Apply(t *trial.Table, p Policy) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out, faults := InvalidateNegativeSim(t)

	diffs := out.Column(trial.Diff)
	cutoff, err := Cutoff(diffs, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Condition, err)
	}

	lost := 0
	for i := range out.Trials {
		tr := &out.Trials[i]
		if tr.Excluded || !tr.Diff.Valid {
			continue
		}
		if tr.Diff.Float64 > cutoff {
			tr.Exclude(p.reason())
			lost++
		}
	}

	monitoring.Stagef("filter", string(t.Condition), "%s cutoff %.3f: excluded %d of %d trials (%d sim faults)",
		p.Kind, cutoff, lost, len(diffs), faults)

	return &Result{
		Table:      out,
		Policy:     p,
		Cutoff:     cutoff,
		Considered: len(diffs),
		Lost:       lost,
		Faults:     faults,
	}, nil
}
