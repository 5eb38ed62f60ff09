package compression

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary describes one sample of values.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	// InverseMean is 1/mean, the "navigation-time multiple". It is not the
	// mean of 1/x.
	InverseMean float64 `json:"inverse_mean"`
	// InverseStd is 1/std.
	InverseStd float64 `json:"inverse_std"`
}

// Summarize computes N, mean, sample standard deviation and their
// inverses. Undefined entries are NaN: everything for an empty sample, the
// standard deviation for a single value.
func Summarize(xs []float64) Summary {
	s := Summary{N: len(xs), Mean: math.NaN(), StdDev: math.NaN(), InverseMean: math.NaN(), InverseStd: math.NaN()}
	if len(xs) == 0 {
		return s
	}
	s.Mean = stat.Mean(xs, nil)
	s.InverseMean = 1 / s.Mean
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
		s.InverseStd = 1 / s.StdDev
	}
	return s
}

// MarshalJSON writes undefined statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		N           int      `json:"n"`
		Mean        *float64 `json:"mean"`
		StdDev      *float64 `json:"std"`
		InverseMean *float64 `json:"inverse_mean"`
		InverseStd  *float64 `json:"inverse_std"`
	}{s.N, Finite(s.Mean), Finite(s.StdDev), Finite(s.InverseMean), Finite(s.InverseStd)})
}

// Finite returns a pointer to v, or nil when v is NaN or infinite. JSON has
// no spelling for either.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
