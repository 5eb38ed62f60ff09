package groupcmp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Royston (1995) polynomial approximations for the Shapiro-Wilk
// coefficients and the W null distribution.
var (
	swC1 = []float64{0.0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0.0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

const swMaxN = 5000

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	var r float64
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

// ShapiroWilk tests xs for normality. It needs 3 <= n <= 5000 values that
// are not all identical. Small W (and p) is evidence against normality.
func ShapiroWilk(xs []float64) (TestResult, error) {
	res := TestResult{Test: "shapiro_wilk"}
	n := len(xs)
	if n < 3 || n > swMaxN {
		return res, ErrTooFewObservations
	}
	x := make([]float64, n)
	copy(x, xs)
	sort.Float64s(x)
	if x[n-1]-x[0] < 1e-19 {
		return res, ErrAllIdentical
	}

	a := swCoefficients(n)

	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	var ss, num float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	for i := range a {
		num += a[i] * (x[n-1-i] - x[i])
	}
	w := num * num / ss
	if w > 1 {
		w = 1
	}
	res.Statistic = w
	res.PValue = swPValue(w, n)
	return res, nil
}

// swCoefficients returns the n/2 positive weights a_1..a_{n/2}, applied to
// x_(n+1-i) - x_(i).
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	fn := float64(n)
	m := make([]float64, half)
	var summ2 float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (fn + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(fn)

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	first := 1
	var fac float64
	if n > 5 {
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < half; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

func swPValue(w float64, n int) float64 {
	if n == 3 {
		const sixOverPi = 1.90985931710274
		const piOverThree = 1.04719755119660
		p := sixOverPi * (math.Asin(math.Sqrt(w)) - piOverThree)
		return math.Max(p, 0)
	}
	w1 := 1 - w
	if w1 <= 0 {
		return 1
	}
	y := math.Log(w1)
	fn := float64(n)
	var mu, sigma float64
	if n <= 11 {
		gamma := poly(swG, fn)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = poly(swC3, fn)
		sigma = math.Exp(poly(swC4, fn))
	} else {
		ln := math.Log(fn)
		mu = poly(swC5, ln)
		sigma = math.Exp(poly(swC6, ln))
	}
	return distuv.UnitNormal.Survival((y - mu) / sigma)
}
