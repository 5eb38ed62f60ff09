package groupcmp

import "sort"

// midranks returns the 1-based ranks of xs, giving tied values the mean of
// the ranks they span, plus the tie groups' sizes.
func midranks(xs []float64) (ranks []float64, ties []int) {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && xs[idx[j]] == xs[idx[i]] {
			j++
		}
		// positions i..j-1 share ranks i+1..j
		r := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = r
		}
		if j-i > 1 {
			ties = append(ties, j-i)
		}
		i = j
	}
	return ranks, ties
}

// tieCorrection is 1 - sum(t^3 - t) / (n^3 - n). It is 0 when every value
// is identical.
func tieCorrection(ties []int, n int) float64 {
	if n < 2 {
		return 1
	}
	var s float64
	for _, t := range ties {
		ft := float64(t)
		s += ft*ft*ft - ft
	}
	fn := float64(n)
	return 1 - s/(fn*fn*fn-fn)
}
