package groupcmp

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

func init() { monitoring.SetLogger(nil) }

func seq(from, to float64) []float64 {
	var out []float64
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

// normalScores returns n evenly spaced normal quantiles, a sample that is
// as normal as a finite sample can be.
func normalScores(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*distuv.UnitNormal.Quantile((float64(i)+0.5)/float64(n))
	}
	return out
}

func TestMidranks(t *testing.T) {
	ranks, ties := midranks([]float64{3, 1, 2, 2})
	assert.Equal(t, []float64{4, 1, 2.5, 2.5}, ranks)
	assert.Equal(t, []int{2}, ties)
	assert.InDelta(t, 0.9, tieCorrection(ties, 4), 1e-12)
	assert.Equal(t, 0.0, tieCorrection([]int{3}, 3))
}

func TestKruskalWallis_KnownValue(t *testing.T) {
	res, err := KruskalWallis([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 3.857142857142858, res.Statistic, 1e-9)
	assert.InDelta(t, 0.04953461343562649, res.PValue, 1e-6)
	assert.Equal(t, 1.0, res.DF)
}

func TestKruskalWallis_SeparatedMediansReject(t *testing.T) {
	res, err := KruskalWallis(seq(1, 10), seq(11, 20), seq(21, 30))
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
	assert.Equal(t, 2.0, res.DF)
}

func TestKruskalWallis_IdenticalGroupsDoNotReject(t *testing.T) {
	g := []float64{0.2, 0.4, 0.5, 0.7, 0.9}
	res, err := KruskalWallis(g, g, g)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Statistic, 1e-9)
	assert.Greater(t, res.PValue, 0.05)
}

func TestKruskalWallis_Errors(t *testing.T) {
	_, err := KruskalWallis([]float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewGroups)
	_, err = KruskalWallis([]float64{1, 1}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrAllIdentical)
}

func TestMannWhitneyU_DoublesOneSided(t *testing.T) {
	res, err := MannWhitneyU([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.U)
	wantOne := distuv.UnitNormal.Survival(4 / math.Sqrt(5.25))
	assert.InDelta(t, wantOne, res.OneSidedP, 1e-12)
	assert.InDelta(t, 0.0404, res.OneSidedP, 1e-3)
	assert.InDelta(t, 2*res.OneSidedP, res.PValue, 1e-15)
}

func TestMannWhitneyU_Symmetric(t *testing.T) {
	x := []float64{0.31, 0.52, 0.44, 0.61, 0.52}
	y := []float64{0.72, 0.52, 0.80, 0.66}
	a, err := MannWhitneyU(x, y)
	require.NoError(t, err)
	b, err := MannWhitneyU(y, x)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("MannWhitneyU not symmetric (-xy +yx):\n%s", diff)
	}

	_, err = MannWhitneyU(nil, y)
	assert.ErrorIs(t, err, ErrTooFewObservations)
}

func TestShapiroWilk(t *testing.T) {
	t.Run("three evenly spaced", func(t *testing.T) {
		res, err := ShapiroWilk([]float64{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 1, res.Statistic, 1e-12)
		assert.InDelta(t, 1, res.PValue, 1e-9)
	})

	for _, n := range []int{8, 30, 200} {
		res, err := ShapiroWilk(normalScores(n, 0.5, 0.1))
		require.NoError(t, err)
		assert.Greater(t, res.Statistic, 0.9, "n=%d", n)
		assert.LessOrEqual(t, res.Statistic, 1.0)
		assert.Greater(t, res.PValue, 0.05, "normal scores n=%d", n)
	}

	skewed := normalScores(40, 0, 1)
	for i, z := range skewed {
		skewed[i] = math.Exp(2 * z)
	}
	res, err := ShapiroWilk(skewed)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)

	_, err = ShapiroWilk([]float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewObservations)
	_, err = ShapiroWilk([]float64{2, 2, 2, 2})
	assert.ErrorIs(t, err, ErrAllIdentical)
}

func TestOneWayANOVA(t *testing.T) {
	res, err := OneWayANOVA([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 13.5, res.Statistic, 1e-12)
	assert.Less(t, res.PValue, 0.05)

	_, err = OneWayANOVA([]float64{1, 1}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrAllIdentical)
}

func TestSpearmanRank(t *testing.T) {
	res, err := SpearmanRank([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 9, 16, 40})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Rho, 1e-12)
	assert.InDelta(t, 0, res.PValue, 1e-9)

	res, err = SpearmanRank([]float64{1, 2, 3, 4, 5, 6}, []float64{3, 1, 4, 1, 5, 2})
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.05)
	assert.Equal(t, 6, res.N)

	_, err = SpearmanRank([]float64{1, 2, 3}, []float64{4, 4, 4})
	assert.ErrorIs(t, err, ErrAllIdentical)
}

func estimatedTable(c trial.Condition, compressions ...float64) *trial.Table {
	trials := make([]trial.Trial, len(compressions))
	for i, v := range compressions {
		trials[i] = trial.Trial{
			ParticipantID:  "p",
			Compression:    trial.Float(v),
			LogCompression: trial.Float(math.Log(v)),
		}
		trials[i].Ratings[trial.Vividness] = trial.Float(float64(1 + i%5))
	}
	return trial.NewTable(c, trials)
}

func TestCompare_Protocol(t *testing.T) {
	slow := estimatedTable(trial.Slow, normalScores(12, 0.3, 0.05)...)
	medium := estimatedTable(trial.Medium, normalScores(12, 0.5, 0.05)...)
	fast := estimatedTable(trial.Fast, normalScores(12, 0.7, 0.05)...)
	// a null row is dropped from the pool
	fast.Trials[0].Compression = trial.Null

	res, err := Compare(DefaultOptions(), slow, medium, fast)
	require.NoError(t, err)

	assert.Equal(t, []trial.Condition{trial.Slow, trial.Medium, trial.Fast}, res.Conditions)
	assert.Equal(t, "kruskal_wallis", res.Omnibus.Test)
	assert.Less(t, res.Omnibus.PValue, 0.05)

	require.Len(t, res.Normality, 3)
	for _, n := range res.Normality {
		require.NotNil(t, n.Compression)
		require.NotNil(t, n.LogCompression)
	}

	require.Len(t, res.Pairwise, 3)
	pairs := [][2]trial.Condition{{trial.Slow, trial.Medium}, {trial.Slow, trial.Fast}, {trial.Medium, trial.Fast}}
	for i, p := range res.Pairwise {
		assert.Equal(t, pairs[i][0], p.A)
		assert.Equal(t, pairs[i][1], p.B)
		assert.InDelta(t, 2*p.OneSidedP, p.PValue, 1e-15)
	}

	require.Len(t, res.Descriptive, 3)
	assert.Equal(t, 11, res.Descriptive[2].Summary.N)
	assert.InDelta(t, 1/res.Descriptive[0].Summary.Mean, res.Descriptive[0].Summary.InverseMean, 1e-12)

	require.NotEmpty(t, res.Associations)
	assert.Equal(t, "rating_vividness", res.Associations[0].Rating)

	_, err = json.Marshal(res)
	require.NoError(t, err)
}

func TestCompare_AutoSelectsANOVAForNormalGroups(t *testing.T) {
	opts := DefaultOptions()
	opts.Omnibus = Auto
	res, err := Compare(opts,
		estimatedTable(trial.Slow, normalScores(15, 0.3, 0.05)...),
		estimatedTable(trial.Fast, normalScores(15, 0.6, 0.05)...),
	)
	require.NoError(t, err)
	assert.Equal(t, "one_way_anova", res.Omnibus.Test)
	// pairwise stays non-parametric whatever the omnibus choice
	assert.Len(t, res.Pairwise, 1)
}

func TestSelectOmnibus(t *testing.T) {
	test, _ := SelectOmnibus(Kruskal, 0.05, nil)
	assert.Equal(t, "kruskal_wallis", test)

	diag := []Normality{
		{Condition: trial.Slow, Compression: &TestResult{PValue: 0.4}},
		{Condition: trial.Fast, Compression: &TestResult{PValue: 0.01}},
	}
	test, why := SelectOmnibus(Auto, 0.05, diag)
	assert.Equal(t, "kruskal_wallis", test)
	assert.Contains(t, why, "fast")

	test, _ = SelectOmnibus(Auto, 0.05, []Normality{{Condition: trial.Slow, Skipped: "too few"}})
	assert.Equal(t, "kruskal_wallis", test)
}

func TestCompare_Errors(t *testing.T) {
	_, err := Compare(DefaultOptions(), estimatedTable(trial.Slow, 0.1, 0.2, 0.3))
	assert.True(t, errors.Is(err, ErrTooFewGroups))

	_, err = Compare(Options{Omnibus: "anova"}, estimatedTable(trial.Slow, 0.1), estimatedTable(trial.Fast, 0.2))
	assert.Error(t, err)
}

func TestPool_DropsNullCompression(t *testing.T) {
	tbl := estimatedTable(trial.Medium, 0.5, 0.25)
	tbl.Trials[1].Exclude(trial.LostQuantile)
	obs := Pool(tbl)
	require.Len(t, obs, 1)
	assert.Equal(t, trial.Medium, obs[0].Condition)
	assert.Equal(t, 0.5, obs[0].Compression)
	require.NotNil(t, obs[0].LogCompression)
}
