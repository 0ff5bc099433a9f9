package models

import "time"

// HedgeRatio is the OLS fit of Y on X. Intercept is diagnostic only.
type HedgeRatio struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"rSquared"`
}

type SpreadPoint struct {
	Time   time.Time `json:"time"`
	Spread float64   `json:"spread"`
	ZScore float64   `json:"zScore"`
}

type CorrelationPoint struct {
	Index       int     `json:"index"`
	Correlation float64 `json:"correlation"`
}

// AnalyticsResult is the analysis payload for one aligned pair.
type AnalyticsResult struct {
	HedgeRatio         float64            `json:"hedgeRatio"`
	HedgeR2            float64            `json:"hedgeR2"`
	Correlation        float64            `json:"correlation"`
	Spread             []SpreadPoint      `json:"spread"`
	RollingCorrelation []CorrelationPoint `json:"rollingCorrelation"`
}

// LatestZScore returns the z-score of the last spread point.
func (r *AnalyticsResult) LatestZScore() (float64, bool) {
	if r == nil || len(r.Spread) == 0 {
		return 0, false
	}
	return r.Spread[len(r.Spread)-1].ZScore, true
}

// ADFResult is the outcome of the approximate stationarity test.
// TestStatistic is nil when the series is too short or the statistic is not finite.
type ADFResult struct {
	TestStatistic  *float64   `json:"testStatistic"`
	IsStationary   bool       `json:"isStationary"`
	CriticalValues [3]float64 `json:"criticalValues"`
}

// ADFReport is the stationarity test run over a hedge-weighted spread.
type ADFReport struct {
	HedgeRatio float64   `json:"hedgeRatio"`
	Samples    int       `json:"samples"`
	Result     ADFResult `json:"adfResult"`
	HalfLife   *float64  `json:"halfLife"`
}

// PriceData carries the aligned closes behind an analysis.
type PriceData struct {
	Times   []time.Time `json:"times"`
	XPrices []float64   `json:"xPrices"`
	YPrices []float64   `json:"yPrices"`
}

// PairAnalysis is the full response of an analyze request.
type PairAnalysis struct {
	SymbolX    string           `json:"symbolX"`
	SymbolY    string           `json:"symbolY"`
	Timeframe  string           `json:"timeframe"`
	Window     int              `json:"window"`
	DataPoints int              `json:"dataPoints"`
	Analytics  *AnalyticsResult `json:"analytics"`
	PriceData  PriceData        `json:"priceData"`
}

// PairADF is the full response of an ADF request.
type PairADF struct {
	SymbolX    string    `json:"symbolX"`
	SymbolY    string    `json:"symbolY"`
	HedgeRatio float64   `json:"hedgeRatio"`
	Samples    int       `json:"samples"`
	ADFResult  ADFResult `json:"adfResult"`
	HalfLife   *float64  `json:"halfLife"`
}
