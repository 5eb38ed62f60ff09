package compression

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

func init() { monitoring.SetLogger(nil) }

func ratioTrial(path, sim float64) trial.Trial {
	return trial.Trial{ParticipantID: "p1", PathTime: trial.Float(path), SimTime: trial.Float(sim)}
}

func TestEstimate_RatioAndLog(t *testing.T) {
	in := trial.NewTable(trial.Slow, []trial.Trial{
		ratioTrial(30, 10),
		ratioTrial(40, 20),
		ratioTrial(50, 0),
	})

	res := Estimate(in)
	require.Equal(t, 3, res.Table.Len())

	for _, tr := range res.Table.Trials {
		require.True(t, tr.Compression.Valid)
		assert.Equal(t, tr.SimTime.Float64/tr.PathTime.Float64, tr.Compression.Float64)
	}
	assert.InDelta(t, math.Log(1.0/3), res.Table.Trials[0].LogCompression.Float64, 1e-12)
	assert.InDelta(t, math.Log(0.5), res.Table.Trials[1].LogCompression.Float64, 1e-12)
	assert.False(t, res.Table.Trials[2].LogCompression.Valid, "log undefined at compression 0")
	assert.Equal(t, 1, res.NonPositive)
	assert.Equal(t, 0, res.UndefinedRatios)
}

func TestEstimate_UndefinedRatio(t *testing.T) {
	zero := ratioTrial(0, 10)
	missingPath := ratioTrial(0, 10)
	missingPath.PathTime = trial.Null
	missingSim := ratioTrial(10, 0)
	missingSim.SimTime = trial.Null
	excluded := ratioTrial(10, 10)
	excluded.Exclude(trial.LostQuantile)

	res := Estimate(trial.NewTable(trial.Fast, []trial.Trial{zero, missingPath, missingSim, excluded}))
	assert.Equal(t, 3, res.UndefinedRatios)
	for _, tr := range res.Table.Trials {
		assert.False(t, tr.Compression.Valid)
		assert.False(t, tr.LogCompression.Valid)
	}
}

func TestSummarize_InverseOfMeanNotMeanOfInverse(t *testing.T) {
	xs := []float64{0.25, 0.5, 1.0, 0.8}
	s := Summarize(xs)

	mean := stat.Mean(xs, nil)
	std := stat.StdDev(xs, nil)
	var meanOfInverse float64
	for _, x := range xs {
		meanOfInverse += 1 / x
	}
	meanOfInverse /= float64(len(xs))

	assert.Equal(t, 4, s.N)
	assert.InDelta(t, mean, s.Mean, 1e-12)
	assert.InDelta(t, 1/mean, s.InverseMean, 1e-12)
	assert.InDelta(t, 1/std, s.InverseStd, 1e-12)
	assert.Greater(t, math.Abs(s.InverseMean-meanOfInverse), 0.1,
		"reported statistic must be 1/mean(c), not mean(1/c)")
}

func TestSummarize_Degenerate(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.N)
	assert.True(t, math.IsNaN(s.Mean))

	s = Summarize([]float64{0.5})
	assert.Equal(t, 0.5, s.Mean)
	assert.Equal(t, 2.0, s.InverseMean)
	assert.True(t, math.IsNaN(s.StdDev))

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1,"mean":0.5,"std":null,"inverse_mean":2,"inverse_std":null}`, string(b))
}
