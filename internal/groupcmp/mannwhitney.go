package groupcmp

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MannWhitneyResult is one pairwise rank test.
type MannWhitneyResult struct {
	// U is the smaller of the two U statistics.
	U float64 `json:"u"`
	// OneSidedP is the upper-tail normal p-value of the larger U.
	OneSidedP float64 `json:"one_sided_p"`
	// PValue is the reported two-sided value, exactly 2 * OneSidedP.
	PValue float64 `json:"p_value"`
}

// MannWhitneyU compares two independent samples. Ties get mid-ranks and the
// variance carries the tie correction; the normal approximation uses a 0.5
// continuity correction. The one-sided p-value is doubled for reporting.
func MannWhitneyU(x, y []float64) (MannWhitneyResult, error) {
	var res MannWhitneyResult
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return res, ErrTooFewObservations
	}

	pooled := make([]float64, 0, n1+n2)
	pooled = append(pooled, x...)
	pooled = append(pooled, y...)
	ranks, ties := midranks(pooled)

	var rx float64
	for _, r := range ranks[:n1] {
		rx += r
	}
	f1, f2 := float64(n1), float64(n2)
	u1 := f1*f2 + f1*(f1+1)/2 - rx
	u2 := f1*f2 - u1
	big, small := math.Max(u1, u2), math.Min(u1, u2)

	tc := tieCorrection(ties, n1+n2)
	if tc == 0 {
		return res, ErrAllIdentical
	}
	sd := math.Sqrt(tc * f1 * f2 * (f1 + f2 + 1) / 12)
	meanRank := f1*f2/2 + 0.5
	z := math.Abs((big - meanRank) / sd)

	res.U = small
	res.OneSidedP = distuv.UnitNormal.Survival(z)
	res.PValue = 2 * res.OneSidedP
	return res, nil
}
