package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/temporal-compression/internal/filter"
	"github.com/banshee-data/temporal-compression/internal/fsutil"
	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/pipeline"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// BoxPlotFile is the name of the compression boxplot written by WriteCharts.
const BoxPlotFile = "compression_boxplot.html"

// DiffHistogramFile names the diff histogram of condition c.
func DiffHistogramFile(c trial.Condition) string {
	return fmt.Sprintf("diff_%s.png", c)
}

// WriteCharts writes one diff histogram per condition of the primary
// analysis and the compression boxplot into dir. It returns the paths
// written.
func WriteCharts(fsys fsutil.FileSystem, dir string, res *pipeline.Result) ([]string, error) {
	if res == nil || res.Primary == nil || len(res.Primary.Conditions) == 0 {
		return nil, ErrNoData
	}
	joined := make(map[trial.Condition]*trial.Table, len(res.Joined))
	for _, t := range res.Joined {
		joined[t.Condition] = t
	}

	var written []string
	var groups []Group
	for _, c := range res.Primary.Conditions {
		cond := c.Summary.Condition
		groups = append(groups, Group{Name: string(cond), Values: c.Table.Column(trial.Compression)})

		base, ok := joined[cond]
		if !ok {
			continue
		}
		before, after := diffSeries(base, c.Table)
		path := filepath.Join(dir, DiffHistogramFile(cond))
		title := fmt.Sprintf("%s: diff distribution (%s cutoff)", cond, res.Primary.Policy.Kind)
		err := fsutil.WriteFile(fsys, path, func(w io.Writer) error {
			return DiffHistogram(w, "png", title, before, after, c.Summary.Cutoff)
		})
		if err != nil {
			return written, fmt.Errorf("%s histogram: %w", cond, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, BoxPlotFile)
	err := fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return CompressionBoxPlot(w, "Temporal compression", groups)
	})
	if err != nil {
		return written, fmt.Errorf("boxplot: %w", err)
	}
	written = append(written, path)
	monitoring.Logf("[report] wrote %d charts to %s", len(written), dir)
	return written, nil
}

// diffSeries returns the diffs the cutoff was computed over and the diffs
// retained by the filter. Negative-sim faults are left out of both.
func diffSeries(joined, filtered *trial.Table) (before, after []float64) {
	valid, _ := filter.InvalidateNegativeSim(joined)
	return valid.Column(trial.Diff), filtered.Column(trial.Diff)
}
