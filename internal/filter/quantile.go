package filter

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// QuantileMethod selects how the quantile cutoff is estimated.
type QuantileMethod string

const (
	// Linear interpolates between order statistics at h = (n-1)q. This is
	// the estimator the published analysis used and is the default.
	Linear QuantileMethod = "linear"
	// Empirical is gonum's stat.Empirical: the smallest value whose
	// empirical CDF reaches q.
	Empirical QuantileMethod = "empirical"
	// LinInterp is gonum's stat.LinInterp over the empirical CDF.
	LinInterp QuantileMethod = "lininterp"
)

// ParseQuantileMethod accepts the config spelling of a method. The empty
// string selects Linear.
func ParseQuantileMethod(s string) (QuantileMethod, error) {
	switch QuantileMethod(s) {
	case "", Linear:
		return Linear, nil
	case Empirical, LinInterp:
		return QuantileMethod(s), nil
	}
	return "", fmt.Errorf("unknown quantile method %q", s)
}

// Quantile returns the q-th quantile of xs. xs is not modified.
func Quantile(q float64, xs []float64, method QuantileMethod) (float64, error) {
	if len(xs) == 0 {
		return math.NaN(), fmt.Errorf("quantile of empty sample")
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return math.NaN(), fmt.Errorf("quantile %v outside [0, 1]", q)
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	switch method {
	case "", Linear:
		h := float64(len(sorted)-1) * q
		lo := math.Floor(h)
		i := int(lo)
		if i+1 >= len(sorted) {
			return sorted[len(sorted)-1], nil
		}
		return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i]), nil
	case Empirical:
		return stat.Quantile(q, stat.Empirical, sorted, nil), nil
	case LinInterp:
		return stat.Quantile(q, stat.LinInterp, sorted, nil), nil
	}
	return math.NaN(), fmt.Errorf("unknown quantile method %q", method)
}
