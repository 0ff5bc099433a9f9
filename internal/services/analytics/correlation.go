package analytics

import (
	"fmt"
	"math"
)

// Correlation is the Pearson correlation of x and y.
func Correlation(x, y []float64) (float64, error) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, fmt.Errorf("%w: correlation needs two equal series of 2+ points", ErrDegenerateInput)
	}
	fn := float64(n)
	sumX, sumY := sum(x), sum(y)
	varX := fn*sumSquares(x) - sumX*sumX
	varY := fn*sumSquares(y) - sumY*sumY
	if isConstant(x) || isConstant(y) || varX <= 0 || varY <= 0 {
		return 0, fmt.Errorf("%w: zero variance", ErrDegenerateInput)
	}
	return (fn*sumProduct(x, y) - sumX*sumY) / math.Sqrt(varX*varY), nil
}
