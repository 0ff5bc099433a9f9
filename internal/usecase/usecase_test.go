package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	"PairLab/internal/repository"
	svcalert "PairLab/internal/service/alert"
	"PairLab/internal/services/analytics"
	"PairLab/pkg/cache"
	pkgkafka "PairLab/pkg/kafka"
)

type nopMetrics struct{}

func (nopMetrics) RecordTicksStored(string, string, int) {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLastPrice(string, float64)       {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordBufferDepth(int)                 {}

type captureHub struct {
	mu   sync.Mutex
	msgs []models.LiveMessage
}

func (h *captureHub) Broadcast(msg models.LiveMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *captureHub) ofType(typ string) []models.LiveMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.LiveMessage
	for _, m := range h.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type captureQueue struct {
	mu    sync.Mutex
	ticks []*models.Tick
	err   error
}

func (q *captureQueue) Enqueue(t *models.Tick) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ticks = append(q.ticks, t)
	return nil
}

func (q *captureQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ticks)
}

type capturePublisher struct {
	ticks []*models.Tick
}

func (p *capturePublisher) Publish(_ context.Context, t *models.Tick) error {
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *capturePublisher) PublishBatch(_ context.Context, ticks []*models.Tick) error {
	p.ticks = append(p.ticks, ticks...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seedPair stores n one-minute ticks for X and Y = 2X.
func seedPair(t *testing.T, store domrepo.TickStore, n int) {
	t.Helper()
	var ticks []*models.Tick
	for i := 0; i < n; i++ {
		x := 100 + float64(i%7) + float64(i)*0.1
		ts := base.Add(time.Duration(i) * time.Minute)
		ticks = append(ticks,
			&models.Tick{Symbol: "AAA", Time: ts, Price: x, Size: 1},
			&models.Tick{Symbol: "BBB", Time: ts, Price: 2 * x, Size: 1},
		)
	}
	require.NoError(t, store.StoreBatch(context.Background(), ticks))
}

func pairQuery() PairQuery {
	return PairQuery{SymbolX: "aaa", SymbolY: "bbb", Timeframe: domrepo.TF1m}
}

func TestNormalizeTick(t *testing.T) {
	tests := []struct {
		name string
		tick models.Tick
		ok   bool
	}{
		{"valid", models.Tick{Symbol: " btcusdt ", Time: base, Price: 1, Size: 0}, true},
		{"empty symbol", models.Tick{Symbol: " ", Time: base, Price: 1}, false},
		{"zero time", models.Tick{Symbol: "X", Price: 1}, false},
		{"negative price", models.Tick{Symbol: "X", Time: base, Price: -1}, false},
		{"negative size", models.Tick{Symbol: "X", Time: base, Price: 1, Size: -2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick := tt.tick
			err := NormalizeTick(&tick)
			if !tt.ok {
				assert.ErrorIs(t, err, domrepo.ErrInvalidTick)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "BTCUSDT", tick.Symbol)
		})
	}
	assert.ErrorIs(t, NormalizeTick(nil), domrepo.ErrInvalidTick)
}

func TestTickProcessorRoutesByBackend(t *testing.T) {
	tests := []struct {
		backend   string
		published int
		queued    int
	}{
		{"kafka", 1, 0},
		{"clickhouse", 0, 1},
		{"memory", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			pub, q, hub := &capturePublisher{}, &captureQueue{}, &captureHub{}
			p := NewTickProcessor(pub, q, hub, nopMetrics{}, tt.backend, nil)

			require.NoError(t, p.Ingest(context.Background(), &models.Tick{Symbol: "eth", Time: base, Price: 2}))
			assert.Len(t, pub.ticks, tt.published)
			assert.Equal(t, tt.queued, q.len())
			require.Len(t, hub.ofType(models.MessageLiveTick), 1)
		})
	}
}

func TestTickProcessorRejectsAndPropagates(t *testing.T) {
	hub := &captureHub{}
	p := NewTickProcessor(nil, &captureQueue{err: errors.New("full")}, hub, nopMetrics{}, "memory", nil)

	assert.ErrorIs(t, p.Ingest(context.Background(), &models.Tick{Symbol: "X", Price: 1}), domrepo.ErrInvalidTick)
	assert.EqualError(t, p.Ingest(context.Background(), &models.Tick{Symbol: "X", Time: base, Price: 1}), "ingest X: full")
	assert.Empty(t, hub.ofType(models.MessageLiveTick))
}

func TestKafkaTicksHandler(t *testing.T) {
	q := &captureQueue{}
	h := NewKafkaTicksHandler("pairlab.ticks", q, nopMetrics{})
	assert.Equal(t, "pairlab.ticks", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"btcusdt","ts":"2024-01-01T00:00:00Z","price":1,"size":2}`)))
	require.Equal(t, 1, q.len())
	assert.Equal(t, "BTCUSDT", q.ticks[0].Symbol)

	err := h.Handle(context.Background(), []byte(`not json`))
	assert.True(t, pkgkafka.IsPermanent(err))
	err = h.Handle(context.Background(), []byte(`{"symbol":"","ts":"2024-01-01T00:00:00Z","price":1}`))
	assert.ErrorIs(t, err, domrepo.ErrInvalidTick)
	assert.True(t, pkgkafka.IsPermanent(err))
}

func TestParseNDJSON(t *testing.T) {
	in := strings.Join([]string{
		`{"symbol":"btcusdt","ts":"2024-01-01T00:00:00.250Z","price":42000,"size":0.5}`,
		``,
		`{"symbol":"ETHUSDT","ts":1704067200000,"price":2300,"qty":3}`,
		`{"symbol":"SOLUSDT","ts":1704067200,"price":100}`,
	}, "\n")

	ticks, err := ParseNDJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	assert.Equal(t, "BTCUSDT", ticks[0].Symbol)
	assert.Equal(t, base.Add(250*time.Millisecond), ticks[0].Time)
	assert.Equal(t, 3.0, ticks[1].Size)
	assert.Equal(t, base, ticks[1].Time)
	assert.Equal(t, base, ticks[2].Time)
	assert.Zero(t, ticks[2].Size)
}

func TestParseNDJSONReportsLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"bad json", "{\"symbol\":\"A\",\"ts\":1704067200,\"price\":1}\n{oops", 2},
		{"missing price", `{"symbol":"A","ts":1704067200}`, 1},
		{"bad ts", "\n\n{\"symbol\":\"A\",\"ts\":\"yesterday\",\"price\":1}", 3},
		{"empty symbol", `{"symbol":"","ts":1704067200,"price":1}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNDJSON(strings.NewReader(tt.in))
			var le *LineError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.line, le.Line)
		})
	}
}

func TestUploadStoresAndSummarizes(t *testing.T) {
	store := repository.NewMemoryTickStore()
	u := NewTickUploader(store, nopMetrics{})
	in := `{"symbol":"ethusdt","ts":1704067200,"price":1}
{"symbol":"btcusdt","ts":1704067201,"price":2}
{"symbol":"ETHUSDT","ts":1704067202,"price":3}`

	res, err := u.Upload(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, res.Symbols)

	stats, err := u.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats[1].Count)
}

func TestAnalyze(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 40)
	pa := NewPairAnalytics(store, nil, 0, nil, nil, nil, nil)

	res, err := pa.Analyze(context.Background(), pairQuery(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, "AAA", res.SymbolX)
	assert.Equal(t, "BBB", res.SymbolY)
	assert.Equal(t, 40, res.DataPoints)
	assert.InDelta(t, 2.0, res.Analytics.HedgeRatio, 1e-9)
	assert.InDelta(t, 1.0, res.Analytics.Correlation, 1e-9)
	assert.Len(t, res.PriceData.Times, 40)
	assert.Equal(t, 2*res.PriceData.XPrices[3], res.PriceData.YPrices[3])
}

func TestAnalyzeErrors(t *testing.T) {
	store := repository.NewMemoryTickStore()
	pa := NewPairAnalytics(store, nil, 0, nil, nil, nil, nil)

	_, err := pa.Analyze(context.Background(), pairQuery(), 5, false)
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, store.StoreBatch(context.Background(), []*models.Tick{
		{Symbol: "AAA", Time: base, Price: 1},
		{Symbol: "BBB", Time: base.Add(time.Hour), Price: 1},
	}))
	_, err = pa.Analyze(context.Background(), pairQuery(), 5, false)
	assert.ErrorIs(t, err, analytics.ErrNoOverlap)
}

func TestAnalyzeUsesCacheAndInvalidate(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 30)
	mc := cache.NewMemoryCache()
	defer mc.Close()
	pa := NewPairAnalytics(store, mc, time.Minute, nil, nil, nil, nil)

	first, err := pa.Analyze(context.Background(), pairQuery(), 5, false)
	require.NoError(t, err)

	require.NoError(t, store.StoreBatch(context.Background(), []*models.Tick{
		{Symbol: "AAA", Time: base.Add(time.Hour), Price: 500},
		{Symbol: "BBB", Time: base.Add(time.Hour), Price: 10},
	}))
	cached, err := pa.Analyze(context.Background(), pairQuery(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, first.DataPoints, cached.DataPoints)

	require.NoError(t, pa.Invalidate(context.Background()))
	fresh, err := pa.Analyze(context.Background(), pairQuery(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, 31, fresh.DataPoints)
}

func TestAnalyzeBroadcastsTriggeredAlerts(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 30)
	alerts := svcalert.NewService(nil)
	_, err := alerts.Add(context.Background(), svcalert.NewAlert{
		SymbolX: "aaa", SymbolY: "bbb", Metric: "zscore", Operator: "gt", Threshold: -100,
	})
	require.NoError(t, err)
	_, err = alerts.Add(context.Background(), svcalert.NewAlert{
		SymbolX: "AAA", SymbolY: "CCC", Metric: "zscore", Operator: "gt", Threshold: -100,
	})
	require.NoError(t, err)

	hub := &captureHub{}
	pa := NewPairAnalytics(store, nil, 0, alerts, hub, nil, nil)
	_, err = pa.Analyze(context.Background(), pairQuery(), 5, true)
	require.NoError(t, err)

	sent := hub.ofType(models.MessageAlert)
	require.Len(t, sent, 1)
	assert.Equal(t, "zscore gt -100", sent[0].Message)
	require.NotNil(t, sent[0].CurrentValue)
}

func TestADF(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 10)
	pa := NewPairAnalytics(store, nil, 0, nil, nil, nil, nil)

	res, err := pa.ADF(context.Background(), pairQuery())
	require.NoError(t, err)
	assert.Equal(t, 10, res.Samples)
	assert.Nil(t, res.ADFResult.TestStatistic)
	assert.False(t, res.ADFResult.IsStationary)

	_, err = pa.ADF(context.Background(), PairQuery{SymbolX: "AAA", SymbolY: "ZZZ", Timeframe: domrepo.TF1m})
	assert.ErrorIs(t, err, analytics.ErrNoOverlap)
}

func TestExport(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 3)
	pa := NewPairAnalytics(store, nil, 0, nil, nil, nil, nil)

	out, err := pa.Export(context.Background(), pairQuery(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "AAA_BBB_data.csv", out.Filename)
	assert.Equal(t, ContentTypeCSV, out.ContentType)
	lines := strings.Split(strings.TrimSpace(string(out.Body)), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Time,X_Close,Y_Close,Spread", lines[0])

	empty, err := pa.Export(context.Background(), PairQuery{SymbolX: "AAA", SymbolY: "ZZZ", Timeframe: domrepo.TF1m}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Time,X_Close,Y_Close,Spread", strings.TrimSpace(string(empty.Body)))

	xlsx, err := pa.Export(context.Background(), pairQuery(), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "AAA_BBB_data.xlsx", xlsx.Filename)
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
}

func TestBars(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 10)
	pa := NewPairAnalytics(store, nil, 0, nil, nil, nil, nil)

	bars, err := pa.Bars(context.Background(), "aaa", domrepo.TF5m, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 5, bars[0].Count)

	_, err = pa.Bars(context.Background(), "none", domrepo.TF1m, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLivePublisherPublishOnce(t *testing.T) {
	store := repository.NewMemoryTickStore()
	seedPair(t, store, 30)
	hub := &captureHub{}
	pa := NewPairAnalytics(store, nil, 0, nil, hub, nil, nil)
	locks := cache.NewMemoryCache()
	defer locks.Close()

	lp := NewLivePublisher(pa, hub, locks, nil, domrepo.TF1m, 5, time.Hour, time.Minute, nil)
	lp.now = func() time.Time { return base.Add(30 * time.Minute) }

	pair := LivePair{SymbolX: "AAA", SymbolY: "BBB"}
	lp.PublishOnce(context.Background(), pair)
	sent := hub.ofType(models.MessageAnalytics)
	require.Len(t, sent, 1)
	payload, ok := sent[0].Payload.(*models.PairAnalysis)
	require.True(t, ok)
	assert.Equal(t, 30, payload.DataPoints)

	// The pair stays locked for the rest of the interval.
	lp.PublishOnce(context.Background(), pair)
	assert.Len(t, hub.ofType(models.MessageAnalytics), 1)

	lp.PublishOnce(context.Background(), LivePair{SymbolX: "AAA", SymbolY: "NONE"})
	assert.Len(t, hub.ofType(models.MessageAnalytics), 1)
}

func TestLivePublisherRunStops(t *testing.T) {
	pa := NewPairAnalytics(repository.NewMemoryTickStore(), nil, 0, nil, nil, nil, nil)
	lp := NewLivePublisher(pa, &captureHub{}, nil, []LivePair{{"A", "B"}}, domrepo.TF1m, 5, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lp.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("live publisher did not stop")
	}
}

type fakeStream struct {
	mu         sync.Mutex
	connected  bool
	reads      int
	reconnects int
	batches    [][]*models.Tick
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *fakeStream) Subscribe(context.Context) error { return nil }

// Read serves one batch per call and then fails, until batches run out.
func (s *fakeStream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	var batch []*models.Tick
	if s.reads < len(s.batches) {
		batch = s.batches[s.reads]
	}
	s.reads++
	s.mu.Unlock()

	ticks := make(chan *models.Tick, len(batch))
	errs := make(chan error, 1)
	for _, t := range batch {
		ticks <- t
	}
	if batch != nil {
		go func() {
			time.Sleep(10 * time.Millisecond)
			errs <- errors.New("socket closed")
		}()
	}
	return ticks, errs
}

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func TestTickCollectorReconnects(t *testing.T) {
	stream := &fakeStream{batches: [][]*models.Tick{
		{{Symbol: "a", Time: base, Price: 1}},
		{{Symbol: "b", Time: base, Price: 2}, {Symbol: "", Time: base, Price: 2}},
	}}
	q := &captureQueue{}
	proc := NewTickProcessor(nil, q, nil, nopMetrics{}, "memory", nil)
	c := NewTickCollector(stream, proc, nopMetrics{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsConnected())

	require.Eventually(t, func() bool { return q.len() == 2 && stream.reconnectCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, c.Stop())
	assert.False(t, c.IsConnected())
}
