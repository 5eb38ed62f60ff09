package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

func init() { monitoring.SetLogger(nil) }

// diffTable builds a joined table with optimal 0 so diff == path time.
func diffTable(diffs ...float64) *trial.Table {
	trials := make([]trial.Trial, len(diffs))
	for i, d := range diffs {
		trials[i] = trial.Trial{
			ParticipantID: "p1",
			RouteID:       "r",
			PathTime:      trial.Float(d),
			SimTime:       trial.Float(1),
			OptimalTime:   trial.Float(0),
			Diff:          trial.Float(d),
		}
	}
	return trial.NewTable(trial.Slow, trials)
}

func TestQuantile_Methods(t *testing.T) {
	xs := []float64{25, 5, 15}

	got, err := Quantile(0.75, xs, Linear)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got, 1e-12)

	got, err = Quantile(0.75, xs, Empirical)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)

	got, err = Quantile(0.75, xs, LinInterp)
	require.NoError(t, err)
	assert.InDelta(t, 17.5, got, 1e-12)

	// input order preserved
	assert.Equal(t, []float64{25, 5, 15}, xs)

	got, err = Quantile(1, xs, Linear)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)

	_, err = Quantile(0.5, nil, Linear)
	assert.Error(t, err)
	_, err = Quantile(1.5, xs, Linear)
	assert.Error(t, err)
	_, err = ParseQuantileMethod("nearest")
	assert.Error(t, err)
}

func TestApply_QuantileExcludesStrictlyAbove(t *testing.T) {
	diffs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	in := diffTable(diffs...)

	res, err := Apply(in, DefaultQuantilePolicy())
	require.NoError(t, err)

	want, _ := Quantile(0.75, diffs, Linear)
	assert.Equal(t, want, res.Cutoff)
	assert.Equal(t, 7.0, res.Cutoff)
	assert.Equal(t, 9, res.Considered)
	assert.Equal(t, 2, res.Lost)

	for i, tr := range res.Table.Trials {
		if diffs[i] > res.Cutoff {
			assert.True(t, tr.Excluded, "row %d", i)
			assert.Equal(t, trial.LostQuantile, tr.Exclusion)
			assert.False(t, tr.PathTime.Valid)
		} else {
			assert.False(t, tr.Excluded, "row %d", i)
			assert.Equal(t, diffs[i], tr.Diff.Float64)
		}
	}
	assert.Equal(t, in.Len(), res.Table.Len())
	assert.False(t, in.Trials[8].Excluded, "input must not be mutated")
}

func TestApply_SigmaCutoff(t *testing.T) {
	diffs := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 40}
	res, err := Apply(diffTable(diffs...), DefaultSigmaPolicy())
	require.NoError(t, err)

	assert.InDelta(t, 3*stat.StdDev(diffs, nil), res.Cutoff, 1e-12)
	for i, tr := range res.Table.Trials {
		assert.Equal(t, diffs[i] > res.Cutoff, tr.Excluded, "row %d", i)
		if tr.Excluded {
			assert.Equal(t, trial.LostSigma, tr.Exclusion)
		}
	}
}

func TestApply_PoliciesShareUnfilteredBase(t *testing.T) {
	in := diffTable(2, 4, 6, 8, 10, 12, 14, 100)

	q, err := Apply(in, DefaultQuantilePolicy())
	require.NoError(t, err)
	s, err := Apply(in, DefaultSigmaPolicy())
	require.NoError(t, err)

	assert.Equal(t, 8, q.Considered)
	assert.Equal(t, 8, s.Considered, "sigma must see the unfiltered distribution")
	assert.InDelta(t, 3*stat.StdDev([]float64{2, 4, 6, 8, 10, 12, 14, 100}, nil), s.Cutoff, 1e-12)
}

func TestApply_NegativeSimIsFaultNotLost(t *testing.T) {
	in := diffTable(1, 2, 3, 4)
	in.Trials[3].SimTime = trial.Float(-0.5)

	res, err := Apply(in, DefaultQuantilePolicy())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Faults)
	assert.Equal(t, 3, res.Considered)
	assert.Equal(t, trial.InvalidSimTime, res.Table.Trials[3].Exclusion)
	// cutoff over {1,2,3}: 2.5, so only diff 3 is lost
	assert.Equal(t, 2.5, res.Cutoff)
	assert.Equal(t, 1, res.Lost)
	assert.Equal(t, 1, res.Table.CountExcluded(trial.LostQuantile))
}

func TestApply_NegativeDiffRetained(t *testing.T) {
	res, err := Apply(diffTable(-3, 1, 2, 3, 4), DefaultQuantilePolicy())
	require.NoError(t, err)
	assert.False(t, res.Table.Trials[0].Excluded)
}

func TestApply_Errors(t *testing.T) {
	_, err := Apply(diffTable(), DefaultQuantilePolicy())
	assert.Error(t, err)

	_, err = Apply(diffTable(1), DefaultSigmaPolicy())
	assert.Error(t, err)

	_, err = Apply(diffTable(1, 2), Policy{Kind: "median"})
	assert.Error(t, err)

	_, err = Apply(diffTable(1, 2), Policy{Kind: QuantileKind, Quantile: 0})
	assert.Error(t, err)

	c, err := Cutoff([]float64{1}, Policy{Kind: "x"})
	assert.Error(t, err)
	assert.True(t, math.IsNaN(c))
}
