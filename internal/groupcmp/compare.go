// Package groupcmp compares compression across encoding-speed conditions:
// a normality diagnostic per condition, an omnibus k-sample test, pairwise
// rank tests and the descriptive inverse statistics.
package groupcmp

import (
	"errors"
	"fmt"

	"github.com/banshee-data/temporal-compression/internal/compression"
	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// OmnibusMode controls the one decision point in the comparison.
type OmnibusMode string

const (
	// Kruskal always runs Kruskal-Wallis, whatever the diagnostic says.
	Kruskal OmnibusMode = "kruskal"
	// Auto runs one-way ANOVA when every condition passes the normality
	// diagnostic on raw compression at Alpha, Kruskal-Wallis otherwise.
	Auto OmnibusMode = "auto"
)

// Options configures Compare.
type Options struct {
	Omnibus OmnibusMode
	Alpha   float64
	// Associations enables Spearman correlations of compression against
	// every rating scale.
	Associations bool
}

// DefaultOptions matches the published analysis.
func DefaultOptions() Options {
	return Options{Omnibus: Kruskal, Alpha: 0.05, Associations: true}
}

// Observation is one row of the pooled comparison table.
type Observation struct {
	Condition      trial.Condition `json:"condition"`
	Compression    float64         `json:"compression"`
	LogCompression *float64        `json:"log_compression"`
}

// Normality is the diagnostic for one condition.
type Normality struct {
	Condition      trial.Condition `json:"condition"`
	Compression    *TestResult     `json:"compression,omitempty"`
	LogCompression *TestResult     `json:"log_compression,omitempty"`
	Skipped        string          `json:"skipped,omitempty"`
}

// Pairwise is the rank test for one unordered pair of conditions.
type Pairwise struct {
	A trial.Condition `json:"a"`
	B trial.Condition `json:"b"`
	MannWhitneyResult
}

// Descriptive is the closing per-condition summary of compression.
type Descriptive struct {
	Condition trial.Condition     `json:"condition"`
	Summary   compression.Summary `json:"compression"`
}

// Association correlates compression with one rating scale.
type Association struct {
	Condition trial.Condition `json:"condition"`
	Rating    string          `json:"rating"`
	Spearman
}

// Comparison is the structured result record of Compare.
type Comparison struct {
	Conditions   []trial.Condition `json:"conditions"`
	Normality    []Normality       `json:"normality"`
	Omnibus      TestResult        `json:"omnibus"`
	OmnibusWhy   string            `json:"omnibus_reason"`
	Pairwise     []Pairwise        `json:"pairwise"`
	Descriptive  []Descriptive     `json:"descriptive"`
	Associations []Association     `json:"associations,omitempty"`
}

// Pool flattens the tables into the comparison table, dropping trials with
// a null compression. Tables keep their given order.
func Pool(tables ...*trial.Table) []Observation {
	var out []Observation
	for _, t := range tables {
		for _, tr := range t.Trials {
			if tr.Excluded || !tr.Compression.Valid {
				continue
			}
			o := Observation{Condition: t.Condition, Compression: tr.Compression.Float64}
			if tr.LogCompression.Valid {
				v := tr.LogCompression.Float64
				o.LogCompression = &v
			}
			out = append(out, o)
		}
	}
	return out
}

// split groups pooled observations by condition in first-appearance order.
func split(obs []Observation) (conds []trial.Condition, raw, logs map[trial.Condition][]float64) {
	raw = make(map[trial.Condition][]float64)
	logs = make(map[trial.Condition][]float64)
	for _, o := range obs {
		if _, ok := raw[o.Condition]; !ok {
			conds = append(conds, o.Condition)
		}
		raw[o.Condition] = append(raw[o.Condition], o.Compression)
		if o.LogCompression != nil {
			logs[o.Condition] = append(logs[o.Condition], *o.LogCompression)
		}
	}
	return conds, raw, logs
}

// Diagnose runs Shapiro-Wilk per condition on compression and
// log_compression. Conditions too small for the test are marked skipped;
// the diagnostic never removes data.
func Diagnose(conds []trial.Condition, raw, logs map[trial.Condition][]float64) []Normality {
	out := make([]Normality, 0, len(conds))
	for _, c := range conds {
		n := Normality{Condition: c}
		if r, err := ShapiroWilk(raw[c]); err == nil {
			n.Compression = &r
		} else {
			n.Skipped = err.Error()
		}
		if r, err := ShapiroWilk(logs[c]); err == nil {
			n.LogCompression = &r
		} else if n.Skipped == "" {
			n.Skipped = "log_compression: " + err.Error()
		}
		out = append(out, n)
	}
	return out
}

// SelectOmnibus is the single place where the normality diagnostic may
// influence the analysis. Only the omnibus test depends on it.
func SelectOmnibus(mode OmnibusMode, alpha float64, diag []Normality) (test string, reason string) {
	if mode != Auto {
		return "kruskal_wallis", "non-parametric omnibus selected by configuration"
	}
	for _, d := range diag {
		if d.Compression == nil {
			return "kruskal_wallis", fmt.Sprintf("%s: normality not assessable", d.Condition)
		}
		if d.Compression.PValue < alpha {
			return "kruskal_wallis", fmt.Sprintf("%s: compression departs from normality (p=%.4g)", d.Condition, d.Compression.PValue)
		}
	}
	return "one_way_anova", "every condition consistent with normality"
}

// Compare runs the full comparison protocol over estimated condition
// tables.
func Compare(opts Options, tables ...*trial.Table) (*Comparison, error) {
	if opts.Omnibus == "" {
		opts.Omnibus = Kruskal
	}
	if opts.Omnibus != Kruskal && opts.Omnibus != Auto {
		return nil, fmt.Errorf("unknown omnibus mode %q", opts.Omnibus)
	}

	conds, raw, logs := split(Pool(tables...))
	if len(conds) < 2 {
		return nil, ErrTooFewGroups
	}
	cmp := &Comparison{Conditions: conds}

	// 1. normality diagnostic
	cmp.Normality = Diagnose(conds, raw, logs)

	// 2. omnibus
	groups := make([][]float64, len(conds))
	for i, c := range conds {
		groups[i] = raw[c]
	}
	test, why := SelectOmnibus(opts.Omnibus, opts.Alpha, cmp.Normality)
	var err error
	if test == "one_way_anova" {
		cmp.Omnibus, err = OneWayANOVA(groups...)
	} else {
		cmp.Omnibus, err = KruskalWallis(groups...)
	}
	if err != nil {
		return nil, fmt.Errorf("omnibus %s: %w", test, err)
	}
	cmp.OmnibusWhy = why
	monitoring.Logf("[compare] %s statistic=%.4f p=%.4g (%s)", cmp.Omnibus.Test, cmp.Omnibus.Statistic, cmp.Omnibus.PValue, why)

	// 3. pairwise
	for i := 0; i < len(conds); i++ {
		for j := i + 1; j < len(conds); j++ {
			mw, err := MannWhitneyU(raw[conds[i]], raw[conds[j]])
			if err != nil {
				return nil, fmt.Errorf("mann-whitney %s vs %s: %w", conds[i], conds[j], err)
			}
			cmp.Pairwise = append(cmp.Pairwise, Pairwise{A: conds[i], B: conds[j], MannWhitneyResult: mw})
		}
	}

	// 4. descriptive closure
	for _, c := range conds {
		cmp.Descriptive = append(cmp.Descriptive, Descriptive{Condition: c, Summary: compression.Summarize(raw[c])})
	}

	if opts.Associations {
		cmp.Associations = associate(tables)
	}
	return cmp, nil
}

// associate correlates compression with each rating scale per condition.
// Scales without enough paired, non-constant data are left out.
func associate(tables []*trial.Table) []Association {
	var out []Association
	for _, t := range tables {
		for _, r := range trial.Ratings() {
			var xs, ys []float64
			for _, tr := range t.Trials {
				if tr.Excluded || !tr.Compression.Valid || !tr.Ratings[r].Valid {
					continue
				}
				xs = append(xs, tr.Compression.Float64)
				ys = append(ys, tr.Ratings[r].Float64)
			}
			s, err := SpearmanRank(xs, ys)
			if err != nil {
				if !errors.Is(err, ErrTooFewObservations) && !errors.Is(err, ErrAllIdentical) {
					monitoring.Warnf("compare", string(t.Condition), "%s association: %v", r.Column(), err)
				}
				continue
			}
			out = append(out, Association{Condition: t.Condition, Rating: r.Column(), Spearman: s})
		}
	}
	return out
}
