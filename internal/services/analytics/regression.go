package analytics

import (
	"fmt"

	"PairLab/internal/domain/models"
)

// EstimateHedgeRatio regresses y on x by closed-form ordinary least squares.
func EstimateHedgeRatio(x, y []float64) (models.HedgeRatio, error) {
	n := len(x)
	if n != len(y) {
		return models.HedgeRatio{}, fmt.Errorf("%w: length mismatch %d != %d", ErrDegenerateInput, n, len(y))
	}
	if n < 2 {
		return models.HedgeRatio{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrDegenerateInput, n)
	}

	slope, intercept, err := ols(x, y, float64(n))
	if err != nil {
		return models.HedgeRatio{}, err
	}

	fitted := make([]float64, n)
	for i, xi := range x {
		fitted[i] = slope*xi + intercept
	}

	return models.HedgeRatio{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared(y, fitted),
	}, nil
}

// ols solves the closed-form regression with n as the sample-size term.
// The stationarity test passes a different n than len(x).
func ols(x, y []float64, n float64) (slope, intercept float64, err error) {
	sumX := sum(x)
	sumY := sum(y)
	den := n*sumSquares(x) - sumX*sumX
	if isConstant(x) || den == 0 {
		return 0, 0, fmt.Errorf("%w: regressor has zero variance", ErrDegenerateInput)
	}
	slope = (n*sumProduct(x, y) - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept, nil
}
