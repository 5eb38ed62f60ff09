package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

func init() { monitoring.SetLogger(nil) }

func mustRoutes(t *testing.T, rows ...Route) *Routes {
	t.Helper()
	r, err := NewRoutes(rows)
	require.NoError(t, err)
	return r
}

func blockTable(participants []string, routesPer int) *trial.Table {
	var trials []trial.Trial
	for _, p := range participants {
		for k := 0; k < routesPer; k++ {
			trials = append(trials, trial.Trial{
				ParticipantID: p,
				PathTime:      trial.Float(float64(30 + 10*k)),
				SimTime:       trial.Float(10),
			})
		}
	}
	return trial.NewTable(trial.Slow, trials)
}

func TestNewRoutes_Validation(t *testing.T) {
	tests := []struct {
		name string
		rows []Route
	}{
		{"empty", nil},
		{"missing id", []Route{{ID: "", OptimalTime: 1}}},
		{"non-positive", []Route{{ID: "r1", OptimalTime: 0}}},
		{"duplicate", []Route{{ID: "r1", OptimalTime: 1}, {ID: "r1", OptimalTime: 2}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRoutes(tc.rows)
			assert.Error(t, err)
		})
	}
}

func TestBestOf(t *testing.T) {
	best, ok := BestOf(31.5, 29.0, 30.2)
	assert.True(t, ok)
	assert.Equal(t, 29.0, best)

	_, ok = BestOf()
	assert.False(t, ok)
}

func TestAttach_DiffIsPathMinusOptimal(t *testing.T) {
	routes := mustRoutes(t, Route{"r1", 25}, Route{"r2", 28}, Route{"r3", 41})
	in := blockTable([]string{"p1", "p2"}, 3)

	out, err := Attach(in, routes)
	require.NoError(t, err)
	require.Equal(t, in.Len(), out.Len())

	wantRoutes := []string{"r1", "r2", "r3", "r1", "r2", "r3"}
	for i, tr := range out.Trials {
		assert.Equal(t, wantRoutes[i], tr.RouteID)
		opt, _ := routes.Lookup(tr.RouteID)
		require.True(t, tr.OptimalTime.Valid)
		assert.Equal(t, opt, tr.OptimalTime.Float64)
		assert.Equal(t, tr.PathTime.Float64-opt, tr.Diff.Float64)
	}

	// input is untouched
	assert.Empty(t, in.Trials[0].RouteID)
	assert.False(t, in.Trials[0].Diff.Valid)
}

func TestJoin_KeyedNotPositional(t *testing.T) {
	routes := mustRoutes(t, Route{"r1", 25}, Route{"r2", 30})
	in := trial.NewTable(trial.Fast, []trial.Trial{
		{ParticipantID: "p1", RouteID: "r2", PathTime: trial.Float(40)},
		{ParticipantID: "p1", RouteID: "r1", PathTime: trial.Float(40)},
		{ParticipantID: "p2", RouteID: "r1", PathTime: trial.Null},
	})

	out, err := Join(in, routes)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.Trials[0].Diff.Float64)
	assert.Equal(t, 15.0, out.Trials[1].Diff.Float64)
	assert.True(t, out.Trials[2].OptimalTime.Valid)
	assert.False(t, out.Trials[2].Diff.Valid)
}

func TestAttach_BlankRouteIDIsNotReassigned(t *testing.T) {
	routes := mustRoutes(t, Route{"r1", 25}, Route{"r2", 40})
	in := trial.NewTable(trial.Slow, []trial.Trial{
		{ParticipantID: "p1", RouteID: "r2", PathTime: trial.Float(45)},
		{ParticipantID: "p1", RouteID: "", PathTime: trial.Float(30)},
	})
	assert.False(t, NeedsAssignment(in))

	_, err := Attach(in, routes)
	var missing *MissingReferenceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, 1, missing.Row)
	assert.Empty(t, missing.RouteID)
	assert.Contains(t, err.Error(), "no route_id")

	// with the blank filled in, the given ids are kept
	in.Trials[1].RouteID = "r1"
	out, err := Attach(in, routes)
	require.NoError(t, err)
	assert.Equal(t, "r2", out.Trials[0].RouteID)
	assert.Equal(t, 5.0, out.Trials[0].Diff.Float64)
	assert.Equal(t, 5.0, out.Trials[1].Diff.Float64)
}

func TestNeedsAssignment(t *testing.T) {
	assert.True(t, NeedsAssignment(blockTable([]string{"p1"}, 2)))
	assert.False(t, NeedsAssignment(trial.NewTable(trial.Slow, nil)))
	assert.False(t, NeedsAssignment(trial.NewTable(trial.Slow, []trial.Trial{{ParticipantID: "p1", RouteID: "r1"}})))
}

func TestJoin_MissingReference(t *testing.T) {
	routes := mustRoutes(t, Route{"r1", 25})
	in := trial.NewTable(trial.Medium, []trial.Trial{
		{ParticipantID: "p1", RouteID: "r1", PathTime: trial.Float(30)},
		{ParticipantID: "p1", RouteID: "r9", PathTime: trial.Float(30)},
	})

	_, err := Join(in, routes)
	var missing *MissingReferenceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, 1, missing.Row)
	assert.Equal(t, "r9", missing.RouteID)
	assert.Equal(t, trial.Medium, missing.Condition)
}

func TestAssignByBlock_Misalignment(t *testing.T) {
	routes := mustRoutes(t, Route{"r1", 25}, Route{"r2", 28})

	t.Run("short participant", func(t *testing.T) {
		in := trial.NewTable(trial.Slow, []trial.Trial{
			{ParticipantID: "p1"}, {ParticipantID: "p1"}, {ParticipantID: "p2"},
		})
		_, err := AssignByBlock(in, routes)
		var align *AlignmentError
		require.True(t, errors.As(err, &align))
		assert.Equal(t, 4, align.Expected)
		assert.Equal(t, 3, align.Got)
	})

	t.Run("uneven blocks with matching total", func(t *testing.T) {
		in := trial.NewTable(trial.Slow, []trial.Trial{
			{ParticipantID: "p1"}, {ParticipantID: "p1"}, {ParticipantID: "p1"}, {ParticipantID: "p2"},
		})
		_, err := AssignByBlock(in, routes)
		var align *AlignmentError
		require.True(t, errors.As(err, &align))
		assert.Equal(t, "p2", align.Participant)
		assert.Equal(t, 1, align.Got)
	})

	t.Run("interleaved participants", func(t *testing.T) {
		in := trial.NewTable(trial.Slow, []trial.Trial{
			{ParticipantID: "p1"}, {ParticipantID: "p2"}, {ParticipantID: "p1"}, {ParticipantID: "p2"},
		})
		_, err := AssignByBlock(in, routes)
		var align *AlignmentError
		require.True(t, errors.As(err, &align))
		assert.Contains(t, align.Error(), "not contiguous")
	})
}
