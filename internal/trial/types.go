package trial

import (
	"database/sql"
	"fmt"
)

// Condition tags one encoding-speed group.
type Condition string

const (
	Slow   Condition = "slow"
	Medium Condition = "medium"
	Fast   Condition = "fast"
)

// DefaultConditions is the canonical reporting order.
var DefaultConditions = []Condition{Slow, Medium, Fast}

// Exclusion records why a trial was nulled.
type Exclusion string

const (
	NotExcluded    Exclusion = ""
	InvalidSimTime Exclusion = "invalid_sim_time"
	LostQuantile   Exclusion = "lost_quantile"
	LostSigma      Exclusion = "lost_sigma"
)

// Rating identifies one of the 1-5 self-report scales collected after a
// simulation.
type Rating int

// Bounds of every rating scale.
const (
	RatingMin = 1
	RatingMax = 5
)

const (
	Vividness Rating = iota
	SpatialCoherence
	TemporalCoherence
	Fluidity
	Coherence
	StartMemory
	GoalMemory
	NumRatings
)

var ratingColumns = [NumRatings]string{
	Vividness:         "rating_vividness",
	SpatialCoherence:  "rating_s_coherence",
	TemporalCoherence: "rating_t_coherence",
	Fluidity:          "rating_fract",
	Coherence:         "rating_coherence",
	StartMemory:       "rating_s_mem",
	GoalMemory:        "rating_g_mem",
}

// Column returns the flat-table column name of the rating.
func (r Rating) Column() string {
	if r < 0 || r >= NumRatings {
		return fmt.Sprintf("rating_%d", int(r))
	}
	return ratingColumns[r]
}

// Ratings lists every rating scale in column order.
func Ratings() []Rating {
	out := make([]Rating, NumRatings)
	for i := range out {
		out[i] = Rating(i)
	}
	return out
}

// Trial is one navigation-then-simulation episode.
type Trial struct {
	Row           int
	ParticipantID string
	RouteID       string

	PathTime     sql.NullFloat64
	SimTime      sql.NullFloat64
	Distance     sql.NullFloat64
	ReactionTime sql.NullFloat64
	Ratings      [NumRatings]sql.NullFloat64

	// Derived by pipeline stages.
	OptimalTime    sql.NullFloat64
	Diff           sql.NullFloat64
	SimCentered    sql.NullFloat64
	Compression    sql.NullFloat64
	LogCompression sql.NullFloat64

	Excluded  bool
	Exclusion Exclusion
}

// Exclude nulls every numeric field and marks the trial with reason.
// Row identity (row, participant, route) is preserved.
func (t *Trial) Exclude(reason Exclusion) {
	t.PathTime = sql.NullFloat64{}
	t.SimTime = sql.NullFloat64{}
	t.Distance = sql.NullFloat64{}
	t.ReactionTime = sql.NullFloat64{}
	t.Ratings = [NumRatings]sql.NullFloat64{}
	t.OptimalTime = sql.NullFloat64{}
	t.Diff = sql.NullFloat64{}
	t.SimCentered = sql.NullFloat64{}
	t.Compression = sql.NullFloat64{}
	t.LogCompression = sql.NullFloat64{}
	t.Excluded = true
	t.Exclusion = reason
}

// Valid reports whether the trial takes part in downstream computation.
func (t Trial) Valid() bool { return !t.Excluded }

// Float wraps v as a valid nullable value.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Null is the absent value.
var Null = sql.NullFloat64{}
