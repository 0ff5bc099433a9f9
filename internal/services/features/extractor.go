package features

import "math"

// RollingCorrelation computes the trailing-window Pearson correlation of x and y.
// The window at index i is [max(0, i-window+1), i]; a window below 1 is treated
// as 1. Windows with fewer than two points or zero variance yield 0.
func RollingCorrelation(x, y []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = pearson(x[start:i+1], y[start:i+1])
	}
	return out
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 || flat(x) || flat(y) {
		return 0
	}
	n := float64(len(x))
	var sx, sy, sxx, syy, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		syy += y[i] * y[i]
		sxy += x[i] * y[i]
	}
	den := (n*sxx - sx*sx) * (n*syy - sy*sy)
	if den <= 0 {
		return 0
	}
	r := (n*sxy - sx*sy) / math.Sqrt(den)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// MeanReversionSpeed is the slope lambda of Δs_t on s_{t-1}.
// ok is false when the series is too short or the lagged level is constant.
func MeanReversionSpeed(spread []float64) (lambda float64, ok bool) {
	if len(spread) < 3 || flat(spread[:len(spread)-1]) {
		return 0, false
	}
	m := len(spread) - 1
	n := float64(m)
	var sx, sy, sxx, sxy float64
	for i := 1; i < len(spread); i++ {
		x := spread[i-1]
		dy := spread[i] - spread[i-1]
		sx += x
		sy += dy
		sxx += x * x
		sxy += x * dy
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, false
	}
	return (n*sxy - sx*sy) / den, true
}

// HalfLife is the number of bars for a spread deviation to halve:
// -ln 2 / ln(1 + lambda). It is defined only for -1 < lambda < 0.
func HalfLife(spread []float64) (float64, bool) {
	lambda, ok := MeanReversionSpeed(spread)
	if !ok || lambda >= 0 || lambda <= -1 {
		return 0, false
	}
	hl := -math.Ln2 / math.Log(1+lambda)
	if math.IsNaN(hl) || math.IsInf(hl, 0) {
		return 0, false
	}
	return hl, true
}

func flat(xs []float64) bool {
	for _, v := range xs {
		if v != xs[0] {
			return false
		}
	}
	return true
}
