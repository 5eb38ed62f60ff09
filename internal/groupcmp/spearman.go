package groupcmp

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Spearman is a rank correlation with its two-sided p-value.
type Spearman struct {
	Rho    float64 `json:"rho"`
	N      int     `json:"n"`
	PValue float64 `json:"p_value"`
}

// SpearmanRank correlates x and y (equal length, paired) on mid-ranks. The
// p-value uses the t approximation with n-2 degrees of freedom.
func SpearmanRank(x, y []float64) (Spearman, error) {
	res := Spearman{N: len(x)}
	if len(x) != len(y) || len(x) < 3 {
		return res, ErrTooFewObservations
	}
	rx, tx := midranks(x)
	ry, ty := midranks(y)
	if tieCorrection(tx, len(x)) == 0 || tieCorrection(ty, len(y)) == 0 {
		return res, ErrAllIdentical
	}

	rho := stat.Correlation(rx, ry, nil)
	res.Rho = rho
	df := float64(len(x) - 2)
	if math.Abs(rho) >= 1 {
		res.PValue = 0
		return res, nil
	}
	t := rho * math.Sqrt(df/(1-rho*rho))
	res.PValue = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	return res, nil
}
