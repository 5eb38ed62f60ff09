// Package testutil provides shared test fixtures: route tables, hand-built
// trials and seeded synthetic studies.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/temporal-compression/internal/reference"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// RouteID names the i-th synthetic route (zero based): r1, r2, ...
func RouteID(i int) string { return fmt.Sprintf("r%d", i+1) }

// ParticipantID names the i-th synthetic participant: p1, p2, ...
func ParticipantID(i int) string { return fmt.Sprintf("p%d", i+1) }

// MustRoutes builds a reference table with routes r1..rn and the given
// optimal times.
func MustRoutes(t testing.TB, optimal ...float64) *reference.Routes {
	t.Helper()
	rows := make([]reference.Route, len(optimal))
	for i, v := range optimal {
		rows[i] = reference.Route{ID: RouteID(i), OptimalTime: v}
	}
	routes, err := reference.NewRoutes(rows)
	AssertNoError(t, err)
	return routes
}

// Trial builds a trial with the given path and simulation durations.
func Trial(participant, route string, path, sim float64) trial.Trial {
	return trial.Trial{
		ParticipantID: participant,
		RouteID:       route,
		PathTime:      trial.Float(path),
		SimTime:       trial.Float(sim),
	}
}

// Study describes a seeded synthetic experiment.
type Study struct {
	Participants int
	Optimal      []float64
	// Compression is the true sim/path ratio per condition.
	Compression map[trial.Condition]float64
	// Noise is the relative standard deviation applied to path and sim.
	Noise float64
	Seed  uint64
	// OmitRoutes leaves route_id empty so tables need block assignment.
	OmitRoutes bool
}

// Table generates the participant-major, route-minor table of condition c.
// Each participant walks 10% to 60% over the optimum and recalls the walk
// at the condition's compression ratio.
func (s Study) Table(c trial.Condition) *trial.Table {
	src := rand.NewPCG(s.Seed, uint64(len(c))+uint64(c[0]))
	noise := distuv.Normal{Mu: 1, Sigma: s.Noise, Src: src}
	detour := distuv.Uniform{Min: 1.1, Max: 1.6, Src: src}
	ratio := s.Compression[c]

	var trials []trial.Trial
	for p := 0; p < s.Participants; p++ {
		for r, opt := range s.Optimal {
			path := opt * detour.Rand()
			sim := path * ratio * noise.Rand()
			route := RouteID(r)
			if s.OmitRoutes {
				route = ""
			}
			tr := Trial(ParticipantID(p), route, path, sim)
			tr.Ratings[trial.Vividness] = trial.Float(float64(1 + (p+r)%5))
			trials = append(trials, tr)
		}
	}
	return trial.NewTable(c, trials)
}

// Tables generates one table per condition in trial.DefaultConditions
// order, skipping conditions without a compression ratio.
func (s Study) Tables() []*trial.Table {
	var out []*trial.Table
	for _, c := range trial.DefaultConditions {
		if _, ok := s.Compression[c]; ok {
			out = append(out, s.Table(c))
		}
	}
	return out
}

// DefaultStudy is a small three-condition experiment where faster
// encoding compresses more.
func DefaultStudy() Study {
	return Study{
		Participants: 8,
		Optimal:      []float64{25, 40, 32, 55},
		Compression: map[trial.Condition]float64{
			trial.Slow:   0.6,
			trial.Medium: 0.45,
			trial.Fast:   0.3,
		},
		Noise: 0.05,
		Seed:  7,
	}
}
