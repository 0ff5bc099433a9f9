package analytics

import (
	"fmt"
	"math"

	"PairLab/internal/domain/models"
)

// MinADFSamples is the shortest series the stationarity test accepts.
const MinADFSamples = 20

// CriticalValues are the 10%, 5% and 1% thresholds.
var CriticalValues = [3]float64{-2.57, -2.86, -3.43}

// TestStationarity runs a single-lag, no-drift Dickey-Fuller style regression of
// the first differences on the lagged level. The statistic is
// beta / sqrt((1 - R²) / (n - 2)), an approximation of the ADF t-statistic
// without robust standard errors or augmentation lags.
//
// Short series and non-finite statistics yield a nil statistic and are never
// classified as stationary.
func TestStationarity(series []float64) models.ADFResult {
	res := models.ADFResult{CriticalValues: CriticalValues}
	n := len(series)
	if checkHistory(n) != nil {
		return res
	}

	lagged := series[:n-1]
	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = series[i] - series[i-1]
	}

	// n is the full series length, one more than the regression sample.
	beta, alpha, err := ols(lagged, diffs, float64(n))
	if err != nil {
		return res
	}

	fitted := make([]float64, len(lagged))
	for i, v := range lagged {
		fitted[i] = alpha + beta*v
	}
	r2 := rSquared(diffs, fitted)

	stat := beta / math.Sqrt((1-r2)/float64(n-2))
	if !isFinite(stat) {
		return res
	}

	res.TestStatistic = &stat
	res.IsStationary = stat < CriticalValues[1]
	return res
}

// checkHistory wraps ErrInsufficientHistory for series below MinADFSamples.
func checkHistory(n int) error {
	if n < MinADFSamples {
		return fmt.Errorf("%w: %d of %d samples", ErrInsufficientHistory, n, MinADFSamples)
	}
	return nil
}
