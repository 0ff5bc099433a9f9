package analytics

import "math"

func sum(xs []float64) float64 {
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s
}

func sumProduct(xs, ys []float64) float64 {
	s := 0.0
	for i := range xs {
		s += xs[i] * ys[i]
	}
	return s
}

func sumSquares(xs []float64) float64 {
	return sumProduct(xs, xs)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

// isConstant reports whether every value equals the first. Degeneracy is
// decided here rather than from n·Σx² − (Σx)², which rounds to a small
// nonzero value for flat fractional series.
func isConstant(xs []float64) bool {
	for _, v := range xs {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// populationStd divides by len(xs). A flat series is exactly 0.
func populationStd(xs []float64) float64 {
	if len(xs) == 0 || isConstant(xs) {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, v := range xs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// rSquared is 1 - SSres/SStot. For a constant actual series an exact match
// scores 1 and anything else 0.
func rSquared(actual, predicted []float64) float64 {
	m := mean(actual)
	ssTot, ssRes := 0.0, 0.0
	for i, y := range actual {
		ssTot += (y - m) * (y - m)
		r := y - predicted[i]
		ssRes += r * r
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
