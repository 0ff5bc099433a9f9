package analytics

import (
	"PairLab/internal/domain/models"
	"PairLab/internal/services/features"
)

type analyzeOptions struct {
	windowedCorrelation bool
}

// Option tunes ComputeAnalytics.
type Option func(*analyzeOptions)

// WithWindowedCorrelation replaces the replicated global correlation with a
// trailing-window Pearson series over the z-score window.
func WithWindowedCorrelation() Option {
	return func(o *analyzeOptions) {
		o.windowedCorrelation = true
	}
}

// ComputeAnalytics runs hedge ratio, spread, z-score and correlation over an
// aligned series. By default rollingCorrelation repeats the global correlation
// at every index. Empty input returns ErrNoOverlap; regression and correlation
// failures propagate unchanged.
func ComputeAnalytics(points []models.AlignedPoint, window int, opts ...Option) (*models.AnalyticsResult, error) {
	o := analyzeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if len(points) == 0 {
		return nil, ErrNoOverlap
	}

	xs, ys := Closes(points)
	hr, err := EstimateHedgeRatio(xs, ys)
	if err != nil {
		return nil, err
	}
	corr, err := Correlation(xs, ys)
	if err != nil {
		return nil, err
	}

	spread := Spread(xs, ys, hr.Slope)
	means, stds := RollingStats(spread, window)
	z := ZScore(spread, means, stds)

	res := &models.AnalyticsResult{
		HedgeRatio:         hr.Slope,
		HedgeR2:            hr.RSquared,
		Correlation:        corr,
		Spread:             make([]models.SpreadPoint, len(points)),
		RollingCorrelation: make([]models.CorrelationPoint, len(points)),
	}
	for i, p := range points {
		res.Spread[i] = models.SpreadPoint{Time: p.Time, Spread: spread[i], ZScore: z[i]}
	}

	if o.windowedCorrelation {
		rolling := features.RollingCorrelation(xs, ys, window)
		for i, c := range rolling {
			res.RollingCorrelation[i] = models.CorrelationPoint{Index: i, Correlation: c}
		}
	} else {
		for i := range points {
			res.RollingCorrelation[i] = models.CorrelationPoint{Index: i, Correlation: corr}
		}
	}
	return res, nil
}

// ADFTest tests the hedge-weighted spread of an aligned series for stationarity.
// A short spread is reported with a nil statistic, not an error.
func ADFTest(points []models.AlignedPoint) (*models.ADFReport, error) {
	if len(points) == 0 {
		return nil, ErrNoOverlap
	}
	xs, ys := Closes(points)
	hr, err := EstimateHedgeRatio(xs, ys)
	if err != nil {
		return nil, err
	}
	spread := Spread(xs, ys, hr.Slope)

	report := &models.ADFReport{
		HedgeRatio: hr.Slope,
		Samples:    len(spread),
		Result:     TestStationarity(spread),
	}
	if hl, ok := features.HalfLife(spread); ok {
		report.HalfLife = &hl
	}
	return report, nil
}
