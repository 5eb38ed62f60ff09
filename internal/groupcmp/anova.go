package groupcmp

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OneWayANOVA is the parametric omnibus alternative, used only when the
// omnibus mode allows it and every group passes the normality diagnostic.
func OneWayANOVA(groups ...[]float64) (TestResult, error) {
	res := TestResult{Test: "one_way_anova"}
	var nonEmpty [][]float64
	var pooled []float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		nonEmpty = append(nonEmpty, g)
		pooled = append(pooled, g...)
	}
	k := len(nonEmpty)
	if k < 2 {
		return res, ErrTooFewGroups
	}
	n := len(pooled)
	if n <= k {
		return res, ErrTooFewObservations
	}

	grand := stat.Mean(pooled, nil)
	var between, within float64
	for _, g := range nonEmpty {
		m := stat.Mean(g, nil)
		between += float64(len(g)) * (m - grand) * (m - grand)
		dev := make([]float64, len(g))
		copy(dev, g)
		floats.AddConst(-m, dev)
		within += floats.Dot(dev, dev)
	}
	if within == 0 {
		return res, ErrAllIdentical
	}

	df1, df2 := float64(k-1), float64(n-k)
	f := (between / df1) / (within / df2)
	res.Statistic = f
	res.DF = df1
	res.PValue = distuv.F{D1: df1, D2: df2}.Survival(f)
	return res, nil
}
