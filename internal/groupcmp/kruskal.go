package groupcmp

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is a statistic and its p-value.
type TestResult struct {
	Test      string  `json:"test"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	DF        float64 `json:"df,omitempty"`
}

// KruskalWallis runs the Kruskal-Wallis H test over groups. Ties get
// mid-ranks and H is divided by the tie correction; the p-value is the
// upper tail of chi-squared with k-1 degrees of freedom.
func KruskalWallis(groups ...[]float64) (TestResult, error) {
	res := TestResult{Test: "kruskal_wallis"}
	k := 0
	var pooled []float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		k++
		pooled = append(pooled, g...)
	}
	if k < 2 {
		return res, ErrTooFewGroups
	}

	ranks, ties := midranks(pooled)
	n := float64(len(pooled))
	var h float64
	off := 0
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		var sum float64
		for _, r := range ranks[off : off+len(g)] {
			sum += r
		}
		h += sum * sum / float64(len(g))
		off += len(g)
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	tc := tieCorrection(ties, len(pooled))
	if tc == 0 {
		return res, ErrAllIdentical
	}
	h /= tc
	if h < 0 {
		// rounding noise for identical group rank sums
		h = 0
	}

	res.Statistic = h
	res.DF = float64(k - 1)
	res.PValue = distuv.ChiSquared{K: res.DF}.Survival(h)
	return res, nil
}
