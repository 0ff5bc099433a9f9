package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	svcalert "PairLab/internal/service/alert"
	svcmetrics "PairLab/internal/service/metrics"
	"PairLab/internal/services/analytics"
	"PairLab/pkg/cache"
	applogger "PairLab/pkg/logger"
)

// ErrNoData is returned when a symbol has no ticks in the requested range.
var ErrNoData = errors.New("no data found for the given symbols")

// AnalysisCachePrefix namespaces cached pair analyses.
const AnalysisCachePrefix = "analysis"

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// PairQuery selects two symbols over an optional time range. Zero bounds are open.
type PairQuery struct {
	SymbolX   string
	SymbolY   string
	Timeframe domrepo.Timeframe
	From      time.Time
	To        time.Time
}

func (q PairQuery) normalized() PairQuery {
	q.SymbolX = strings.ToUpper(strings.TrimSpace(q.SymbolX))
	q.SymbolY = strings.ToUpper(strings.TrimSpace(q.SymbolY))
	return q
}

// Export is a rendered download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// PairAnalytics runs the analytics pipeline over stored ticks.
type PairAnalytics struct {
	store    domrepo.TickStore
	cache    cache.Service
	cacheTTL time.Duration
	alerts   *svcalert.Service
	hub      domrepo.Broadcaster
	obs      *svcmetrics.Analytics
	log      *applogger.Logger
}

// NewPairAnalytics wires the use case. cache, alerts, hub and obs may be nil.
func NewPairAnalytics(
	store domrepo.TickStore,
	c cache.Service,
	cacheTTL time.Duration,
	alerts *svcalert.Service,
	hub domrepo.Broadcaster,
	obs *svcmetrics.Analytics,
	l *applogger.Logger,
) *PairAnalytics {
	if c == nil {
		c = cache.Noop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PairAnalytics{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		alerts:   alerts,
		hub:      hub,
		obs:      obs,
		log:      l.With(applogger.String("component", "pair_analytics")),
	}
}

// fetch loads both symbols concurrently.
func (u *PairAnalytics) fetch(ctx context.Context, q PairQuery) (xs, ys []models.Tick, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		xs, err = u.store.Query(gctx, q.SymbolX, q.From, q.To)
		return err
	})
	g.Go(func() error {
		var err error
		ys, err = u.store.Query(gctx, q.SymbolY, q.From, q.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("query ticks: %w", err)
	}
	return xs, ys, nil
}

// aligned aggregates both sides at q.Timeframe and joins them on bucket start.
func (u *PairAnalytics) aligned(ctx context.Context, q PairQuery, requireData bool) ([]models.AlignedPoint, error) {
	xs, ys, err := u.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if requireData && (len(xs) == 0 || len(ys) == 0) {
		return nil, ErrNoData
	}
	barsX, err := analytics.AggregateTicks(xs, q.Timeframe)
	if err != nil {
		return nil, err
	}
	barsY, err := analytics.AggregateTicks(ys, q.Timeframe)
	if err != nil {
		return nil, err
	}
	return analytics.Align(barsX, barsY), nil
}

func (u *PairAnalytics) cacheKey(q PairQuery, window int, windowed bool) string {
	rolling := "global"
	if windowed {
		rolling = "window"
	}
	return cache.Key(AnalysisCachePrefix, q.SymbolX, q.SymbolY, q.Timeframe, window, rolling,
		q.From.UnixMilli(), q.To.UnixMilli())
}

// Analyze computes hedge ratio, spread, z-score and correlation for a pair,
// then evaluates alerts on the result.
func (u *PairAnalytics) Analyze(ctx context.Context, q PairQuery, window int, windowed bool) (res *models.PairAnalysis, err error) {
	start := time.Now()
	defer func() { u.obs.Observe("analyze", start, err) }()

	q = q.normalized()
	key := u.cacheKey(q, window, windowed)

	var cached models.PairAnalysis
	if err := u.cache.Get(ctx, key, &cached); err == nil {
		u.raiseAlerts(&cached)
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		u.log.Warn("analysis cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	res, err = u.analyze(ctx, q, window, windowed)
	if err != nil {
		return nil, err
	}
	if err := u.cache.Set(ctx, key, res, u.cacheTTL); err != nil {
		u.log.Warn("analysis cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	u.raiseAlerts(res)
	return res, nil
}

func (u *PairAnalytics) analyze(ctx context.Context, q PairQuery, window int, windowed bool) (*models.PairAnalysis, error) {
	points, err := u.aligned(ctx, q, true)
	if err != nil {
		return nil, err
	}
	var opts []analytics.Option
	if windowed {
		opts = append(opts, analytics.WithWindowedCorrelation())
	}
	result, err := analytics.ComputeAnalytics(points, window, opts...)
	if err != nil {
		return nil, err
	}

	xs, ys := analytics.Closes(points)
	times := make([]time.Time, len(points))
	for i, p := range points {
		times[i] = p.Time
	}
	return &models.PairAnalysis{
		SymbolX:    q.SymbolX,
		SymbolY:    q.SymbolY,
		Timeframe:  string(q.Timeframe),
		Window:     window,
		DataPoints: len(points),
		Analytics:  result,
		PriceData:  models.PriceData{Times: times, XPrices: xs, YPrices: ys},
	}, nil
}

// raiseAlerts broadcasts every alert the analysis triggers.
func (u *PairAnalytics) raiseAlerts(res *models.PairAnalysis) []models.TriggeredAlert {
	if u.alerts == nil {
		return nil
	}
	triggered := u.alerts.Check(res.Analytics, res.SymbolX, res.SymbolY)
	u.obs.AlertsTriggered(len(triggered))
	if u.hub == nil {
		return triggered
	}
	for i := range triggered {
		value := triggered[i].CurrentValue
		u.hub.Broadcast(models.LiveMessage{
			Type:         models.MessageAlert,
			Message:      triggered[i].Message,
			CurrentValue: &value,
		})
	}
	return triggered
}

// ADF tests the hedge-weighted spread of a pair for stationarity.
func (u *PairAnalytics) ADF(ctx context.Context, q PairQuery) (res *models.PairADF, err error) {
	start := time.Now()
	defer func() { u.obs.Observe("adf", start, err) }()

	q = q.normalized()
	points, err := u.aligned(ctx, q, false)
	if err != nil {
		return nil, err
	}
	report, err := analytics.ADFTest(points)
	if err != nil {
		return nil, err
	}
	return &models.PairADF{
		SymbolX:    q.SymbolX,
		SymbolY:    q.SymbolY,
		HedgeRatio: report.HedgeRatio,
		Samples:    report.Samples,
		ADFResult:  report.Result,
		HalfLife:   report.HalfLife,
	}, nil
}

// Export renders the aligned closes as CSV or XLSX. A pair without overlap
// yields a header-only file.
func (u *PairAnalytics) Export(ctx context.Context, q PairQuery, format string) (out *Export, err error) {
	start := time.Now()
	defer func() { u.obs.Observe("export", start, err) }()

	q = q.normalized()
	points, err := u.aligned(ctx, q, false)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	out = &Export{}
	switch format {
	case FormatXLSX:
		err = analytics.WriteXLSX(&buf, points)
		out.ContentType = ContentTypeXLSX
	default:
		format = FormatCSV
		err = analytics.WriteCSV(&buf, points)
		out.ContentType = ContentTypeCSV
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	out.Filename = analytics.ExportFilename(q.SymbolX, q.SymbolY, format)
	out.Body = buf.Bytes()
	return out, nil
}

// Bars aggregates one symbol's ticks.
func (u *PairAnalytics) Bars(ctx context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time) (bars []models.Bar, err error) {
	start := time.Now()
	defer func() { u.obs.Observe("bars", start, err) }()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	ticks, err := u.store.Query(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	if len(ticks) == 0 {
		return nil, ErrNoData
	}
	return analytics.AggregateTicks(ticks, tf)
}

// Invalidate drops every cached analysis.
func (u *PairAnalytics) Invalidate(ctx context.Context) error {
	return u.cache.DeleteByPattern(ctx, AnalysisCachePrefix+":*")
}
