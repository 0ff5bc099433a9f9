package analytics

import "PairLab/internal/domain/models"

// Align pairs bars of X and Y that share a bucket. The result follows the
// order of barsY. No shared bucket yields an empty, non-nil slice.
func Align(barsX, barsY []models.Bar) []models.AlignedPoint {
	xIndex := make(map[int64]int, len(barsX))
	for i, b := range barsX {
		xIndex[BucketKey(b.BucketStart)] = i
	}

	points := make([]models.AlignedPoint, 0)
	for _, y := range barsY {
		i, ok := xIndex[BucketKey(y.BucketStart)]
		if !ok {
			continue
		}
		points = append(points, models.AlignedPoint{
			Time:   barsX[i].BucketStart,
			CloseX: barsX[i].Close,
			CloseY: y.Close,
		})
	}
	return points
}

// Closes splits aligned points into the X and Y close series.
func Closes(points []models.AlignedPoint) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.CloseX
		ys[i] = p.CloseY
	}
	return xs, ys
}
