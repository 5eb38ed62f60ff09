// Package pipeline runs the staged analysis over every condition: route
// join, lost-trial exclusion, centring and compression, then the group
// comparison across conditions.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/temporal-compression/internal/center"
	"github.com/banshee-data/temporal-compression/internal/compression"
	"github.com/banshee-data/temporal-compression/internal/filter"
	"github.com/banshee-data/temporal-compression/internal/groupcmp"
	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/reference"
	"github.com/banshee-data/temporal-compression/internal/timeutil"
	"github.com/banshee-data/temporal-compression/internal/trial"
	"github.com/banshee-data/temporal-compression/internal/version"
)

// ErrNoConditions is returned when Run is given no tables.
var ErrNoConditions = errors.New("no condition tables to analyse")

// ConditionSummary is the per-condition part of the result record.
type ConditionSummary struct {
	Condition trial.Condition `json:"condition"`
	Trials    int             `json:"trials"`

	Cutoff     float64 `json:"cutoff"`
	Considered int     `json:"considered"`
	Lost       int     `json:"lost"`
	Faults     int     `json:"faults"`

	Degenerate      []string `json:"degenerate_participants,omitempty"`
	UndefinedRatios int      `json:"undefined_ratios"`
	NonPositive     int      `json:"non_positive_ratios"`

	DiffUnfiltered compression.Summary `json:"diff_unfiltered"`
	Diff           compression.Summary `json:"diff"`
	SimCentered    compression.Summary `json:"sim_centered"`
	Compression    compression.Summary `json:"compression"`
}

// ConditionResult pairs a summary with the final table of the condition.
type ConditionResult struct {
	Summary ConditionSummary
	Table   *trial.Table
}

// PolicyRun is the analysis of every condition under one exclusion policy.
type PolicyRun struct {
	Policy     filter.Policy              `json:"policy"`
	Conditions []ConditionResult          `json:"-"`
	Summaries  []ConditionSummary         `json:"conditions"`
	Comparison *groupcmp.Comparison       `json:"comparison,omitempty"`
	Skipped    string                     `json:"comparison_skipped,omitempty"`
	Failed     map[trial.Condition]string `json:"failed,omitempty"`

	failedErrs map[trial.Condition]error
}

// Tables returns the final tables of the conditions that succeeded.
func (p *PolicyRun) Tables() []*trial.Table {
	out := make([]*trial.Table, len(p.Conditions))
	for i, c := range p.Conditions {
		out[i] = c.Table
	}
	return out
}

// Err returns the failure of condition c, if any.
func (p *PolicyRun) Err(c trial.Condition) error {
	return p.failedErrs[c]
}

func (p *PolicyRun) fail(c trial.Condition, err error) {
	if p.Failed == nil {
		p.Failed = make(map[trial.Condition]string)
		p.failedErrs = make(map[trial.Condition]error)
	}
	p.Failed[c] = err.Error()
	p.failedErrs[c] = err
}

// Result is the full result record of a run.
type Result struct {
	ID        string    `json:"run_id"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Duration  float64   `json:"duration_seconds"`

	Primary     *PolicyRun `json:"primary"`
	Sensitivity *PolicyRun `json:"sensitivity,omitempty"`

	// Failed lists conditions that failed the join or the primary policy.
	Failed map[trial.Condition]string `json:"failed,omitempty"`

	// Joined holds the route-joined, unfiltered table of every condition
	// that joined, the common base of both policies.
	Joined []*trial.Table `json:"-"`

	failedErrs map[trial.Condition]error
}

// OK reports whether every condition completed the primary analysis.
func (r *Result) OK() bool { return len(r.Failed) == 0 }

// Err returns the error that failed condition c, if any.
func (r *Result) Err(c trial.Condition) error {
	return r.failedErrs[c]
}

// Runner executes the pipeline.
type Runner struct {
	Options Options
	Clock   timeutil.Clock
}

// NewRunner creates a Runner with the real clock.
func NewRunner(opts Options) *Runner {
	return &Runner{Options: opts, Clock: timeutil.RealClock{}}
}

// Run analyses every table against the route reference. A condition that
// fails is recorded in Result.Failed and the others continue; the
// comparison runs when at least two conditions succeed. The returned error
// is reserved for unusable options or input.
func (r *Runner) Run(routes *reference.Routes, tables ...*trial.Table) (*Result, error) {
	if err := r.Options.Validate(); err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoConditions
	}
	if routes == nil {
		return nil, fmt.Errorf("route reference table is required")
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	res := &Result{
		ID:        uuid.NewString(),
		Version:   version.Version,
		StartedAt: clock.Now(),
	}
	seen := make(map[trial.Condition]bool, len(tables))
	for _, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("nil condition table")
		}
		if seen[t.Condition] {
			return nil, fmt.Errorf("condition %q given more than once", t.Condition)
		}
		seen[t.Condition] = true
	}

	monitoring.Logf("[pipeline] run %s: %d conditions, %d routes, primary %s", res.ID, len(tables), routes.Len(), describe(r.Options.Primary))
	for _, t := range tables {
		joined, err := reference.Attach(t, routes)
		if err != nil {
			res.fail(t.Condition, fmt.Errorf("join: %w", err))
			monitoring.Warnf("pipeline", string(t.Condition), "condition failed: %v", err)
			continue
		}
		res.Joined = append(res.Joined, joined)
	}

	res.Primary = r.runPolicy(r.Options.Primary, res.Joined)
	for c, err := range res.Primary.failedErrs {
		res.fail(c, err)
	}
	if r.Options.Sensitivity != nil {
		res.Sensitivity = r.runPolicy(*r.Options.Sensitivity, res.Joined)
	}

	res.Duration = clock.Since(res.StartedAt).Seconds()
	monitoring.Logf("[pipeline] run %s: %d of %d conditions succeeded", res.ID, len(res.Primary.Conditions), len(tables))
	return res, nil
}

func (r *Result) fail(c trial.Condition, err error) {
	if r.Failed == nil {
		r.Failed = make(map[trial.Condition]string)
		r.failedErrs = make(map[trial.Condition]error)
	}
	r.Failed[c] = err.Error()
	r.failedErrs[c] = err
}

// runPolicy runs filter, centring and compression on every joined table
// under p, then compares the conditions that made it through.
func (r *Runner) runPolicy(p filter.Policy, joined []*trial.Table) *PolicyRun {
	run := &PolicyRun{Policy: p}
	for _, t := range joined {
		cr, err := RunCondition(t, p)
		if err != nil {
			run.fail(t.Condition, err)
			monitoring.Warnf("pipeline", string(t.Condition), "%s policy failed: %v", p.Kind, err)
			continue
		}
		run.Conditions = append(run.Conditions, *cr)
		run.Summaries = append(run.Summaries, cr.Summary)
	}

	if len(run.Conditions) < 2 {
		run.Skipped = fmt.Sprintf("%d condition(s) succeeded, comparison needs 2", len(run.Conditions))
		monitoring.Logf("[compare] skipped under %s policy: %s", p.Kind, run.Skipped)
		return run
	}
	cmp, err := groupcmp.Compare(r.Options.Compare, run.Tables()...)
	if err != nil {
		run.Skipped = err.Error()
		monitoring.Logf("[compare] WARNING: %s policy: %v", p.Kind, err)
		return run
	}
	run.Comparison = cmp
	return run
}

// RunCondition runs the per-condition stages on a joined table: exclusion
// under p, centring, then compression. The input is not modified.
func RunCondition(joined *trial.Table, p filter.Policy) (*ConditionResult, error) {
	fr, err := filter.Apply(joined, p)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	cr := center.Center(fr.Table)
	est := compression.Estimate(cr.Table)

	final := est.Table
	s := ConditionSummary{
		Condition:       joined.Condition,
		Trials:          joined.Len(),
		Cutoff:          fr.Cutoff,
		Considered:      fr.Considered,
		Lost:            fr.Lost,
		Faults:          fr.Faults,
		Degenerate:      cr.Degenerate,
		UndefinedRatios: est.UndefinedRatios,
		NonPositive:     est.NonPositive,
		DiffUnfiltered:  compression.Summarize(joined.Column(trial.Diff)),
		Diff:            compression.Summarize(final.Column(trial.Diff)),
		SimCentered:     compression.Summarize(final.Column(trial.SimCentered)),
		Compression:     compression.Summarize(final.Column(trial.Compression)),
	}
	return &ConditionResult{Summary: s, Table: final}, nil
}

func describe(p filter.Policy) string {
	if p.Kind == filter.SigmaKind {
		return fmt.Sprintf("sigma x%g", p.Multiplier)
	}
	return fmt.Sprintf("quantile %g (%s)", p.Quantile, p.Method)
}
