package analytics

// Spread returns y_i - slope*x_i. The regression intercept does not take part.
func Spread(x, y []float64, slope float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - slope*x[i]
	}
	return out
}

// RawSpread is the unweighted difference y_i - x_i used by exports.
func RawSpread(x, y []float64) []float64 {
	return Spread(x, y, 1)
}

// RollingStats returns the trailing mean and population standard deviation
// at each index over series[max(0, i-window+1)..i]. A window below 1 is treated as 1.
func RollingStats(series []float64, window int) (means, stds []float64) {
	if window < 1 {
		window = 1
	}
	means = make([]float64, len(series))
	stds = make([]float64, len(series))
	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := series[start : i+1]
		means[i] = mean(w)
		stds[i] = populationStd(w)
	}
	return means, stds
}

// ZScore standardises series against rolling stats. A zero std counts as 1.
func ZScore(series, means, stds []float64) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		sd := stds[i]
		if sd == 0 {
			sd = 1
		}
		out[i] = (s - means[i]) / sd
	}
	return out
}
