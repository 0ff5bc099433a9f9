package di

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	domrepo "PairLab/internal/domain/repository"
	"PairLab/internal/handler/api"
	"PairLab/internal/handler/ws"
	mid "PairLab/internal/middleware"
	internalrepo "PairLab/internal/repository"
	svcalert "PairLab/internal/service/alert"
	"PairLab/internal/service/binance"
	svcmetrics "PairLab/internal/service/metrics"
	"PairLab/internal/service/ratelimit"
	"PairLab/internal/usecase"
	"PairLab/pkg/cache"
	pkgch "PairLab/pkg/clickhouse"
	"PairLab/pkg/config"
	xhttp "PairLab/pkg/http"
	pkgkafka "PairLab/pkg/kafka"
	applogger "PairLab/pkg/logger"
	"PairLab/pkg/metrics"
	"PairLab/pkg/postgres"
	"PairLab/pkg/server"
)

const initTimeout = 10 * time.Second

// APIMiddleware is applied to every /api group.
type APIMiddleware []echo.MiddlewareFunc

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates the ingestion metrics recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideAnalyticsMetrics() *svcmetrics.Analytics {
	return svcmetrics.NewAnalytics(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects and creates the tick schema. The kafka
// backend also lands consumed ticks in ClickHouse; memory needs no client.
func ProvideClickHouseClient(ctx context.Context, cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type == config.BackendMemory {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTickStore picks ClickHouse when a client exists, memory otherwise.
func ProvideTickStore(ctx context.Context, ch *pkgch.Client, l *applogger.Logger) (domrepo.TickStore, error) {
	if ch == nil {
		return internalrepo.NewMemoryTickStore(), nil
	}
	store := internalrepo.NewClickHouseTickStore(ch, l)
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer returns nil unless ticks or log digests go to Kafka.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	logsToKafka := cfg.Logs.Enabled && len(cfg.Kafka.Brokers) > 0
	if cfg.Backend.Type != config.BackendKafka && !logsToKafka {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTickPublisher returns nil unless the kafka backend is selected.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	if producer == nil || cfg.Backend.Type != config.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

func ProvideTickBuffer(store domrepo.TickStore, m domrepo.Metrics, cfg *config.Config, l *applogger.Logger) *mid.TickBuffer {
	// The label names the store the buffer flushes into, also behind Kafka.
	backend := config.BackendMemory
	if _, ok := store.(*internalrepo.ClickHouseTickStore); ok {
		backend = config.BackendClickHouse
	}
	return mid.NewTickBuffer(store, m,
		mid.WithCapacity(cfg.Backend.BufferCapacity),
		mid.WithBatchSize(cfg.Backend.BatchSize),
		mid.WithFlushInterval(cfg.Backend.FlushInterval),
		mid.WithBackend(backend),
		mid.WithLogger(l),
	)
}

// ProvideKafkaConsumer returns nil unless the kafka backend is selected. The
// consumer feeds the ticks topic into the buffer.
func ProvideKafkaConsumer(cfg *config.Config, buffer *mid.TickBuffer, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != config.BackendKafka {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if err := consumer.RegisterHandler(usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, buffer, m)); err != nil {
		return nil, err
	}
	consumer.SetHook(pkgkafka.LogHook(l))
	return consumer, nil
}

// ProvideCache builds the analysis cache selected by cache.type.
func ProvideCache(ctx context.Context, cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Type {
	case "redis":
		ctx, cancel := context.WithTimeout(ctx, initTimeout)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, 0, 0),
			cache.WithRedisPrefix("pairlab"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case "none":
		return cache.Noop{}, nil
	default:
		return cache.NewMemoryCache(
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
			cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		), nil
	}
}

// ProvidePostgresPool returns nil unless postgres is enabled.
func ProvidePostgresPool(ctx context.Context, cfg *config.Config) (*postgres.Pool, error) {
	if !cfg.Postgres.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN,
		postgres.WithMaxConns(cfg.Postgres.MaxConns),
		postgres.WithHealthCheckPeriod(cfg.Postgres.HealthCheckPeriod),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return pool, nil
}

func ProvideAlertRepository(ctx context.Context, pool *postgres.Pool) (domrepo.AlertRepository, error) {
	if pool == nil {
		return internalrepo.NewMemoryAlertRepository(), nil
	}
	repo := internalrepo.NewPostgresAlertRepository(pool)
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("alerts schema: %w", err)
	}
	return repo, nil
}

// ProvideAlertService creates the alert registry and loads persisted alerts.
func ProvideAlertService(ctx context.Context, repo domrepo.AlertRepository) (*svcalert.Service, error) {
	s := svcalert.NewService(repo)
	if err := s.Load(ctx); err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	return s, nil
}

func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

func ProvidePairAnalytics(
	store domrepo.TickStore,
	c cache.Service,
	alerts *svcalert.Service,
	hub *ws.Hub,
	obs *svcmetrics.Analytics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PairAnalytics {
	return usecase.NewPairAnalytics(store, c, cfg.Cache.TTL, alerts, hub, obs, l)
}

func ProvideTickProcessor(pub domrepo.Publisher, buffer *mid.TickBuffer, hub *ws.Hub, m domrepo.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, buffer, hub, m, cfg.Backend.Type, l)
}

func ProvideTickUploader(store domrepo.TickStore, m domrepo.Metrics) *usecase.TickUploader {
	return usecase.NewTickUploader(store, m)
}

// ProvideTickCollector returns nil unless the Binance stream is enabled.
func ProvideTickCollector(cfg *config.Config, proc *usecase.TickProcessor, m domrepo.Metrics, l *applogger.Logger) *usecase.TickCollector {
	b := cfg.Ingest.Binance
	if !b.Enabled {
		return nil
	}
	stream := binance.New(b.URL, b.Symbols, b.ReconnectDelay, b.PingInterval, l)
	return usecase.NewTickCollector(stream, proc, m, b.ReconnectDelay, l)
}

// ProvideLivePublisher returns nil unless live publishing is enabled.
func ProvideLivePublisher(cfg *config.Config, pa *usecase.PairAnalytics, hub *ws.Hub, c cache.Service, l *applogger.Logger) (*usecase.LivePublisher, error) {
	if !cfg.Live.Enabled {
		return nil, nil
	}
	parsed, err := cfg.Live.ParsedPairs()
	if err != nil {
		return nil, err
	}
	pairs := make([]usecase.LivePair, len(parsed))
	for i, p := range parsed {
		pairs[i] = usecase.LivePair{SymbolX: p.SymbolX, SymbolY: p.SymbolY}
	}
	return usecase.NewLivePublisher(pa, hub, c, pairs,
		domrepo.NormalizeTimeframe(cfg.Live.Timeframe), cfg.Live.Window,
		cfg.Live.Lookback, cfg.Live.Interval, l), nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

func ProvideAPIMiddleware(limiter *ratelimit.Limiter) APIMiddleware {
	if limiter == nil {
		return nil
	}
	return APIMiddleware{limiter.Middleware()}
}

func ProvideHealthHandler(l *applogger.Logger, store domrepo.TickStore) *api.HealthHandler {
	return api.NewHealthHandler(l, store)
}

func ProvideAnalyticsHandler(l *applogger.Logger, pa *usecase.PairAnalytics, mw APIMiddleware) *api.AnalyticsEchoHandler {
	return api.NewAnalyticsEchoHandler(l, pa, mw...)
}

func ProvideUploadHandler(l *applogger.Logger, up *usecase.TickUploader, pa *usecase.PairAnalytics, mw APIMiddleware) *api.UploadEchoHandler {
	return api.NewUploadEchoHandler(l, up, pa, mw...)
}

func ProvideAlertsHandler(l *applogger.Logger, alerts *svcalert.Service, mw APIMiddleware) *api.AlertsEchoHandler {
	return api.NewAlertsEchoHandler(l, alerts, mw...)
}

func ProvideWSHandler(hub *ws.Hub, proc *usecase.TickProcessor, l *applogger.Logger) *ws.Handler {
	return ws.NewHandler(hub, proc, l)
}

// ProvideHTTPServer registers every handler on one echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	health *api.HealthHandler,
	analytics *api.AnalyticsEchoHandler,
	upload *api.UploadEchoHandler,
	alerts *api.AlertsEchoHandler,
	live *ws.Handler,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(
		[]xhttp.Handler{health, analytics, upload, alerts, live},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(cfg.Server.BodyLimit),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application and attaches the log digest collector
// when enabled.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	buffer *mid.TickBuffer,
	consumer *pkgkafka.Consumer,
	collector *usecase.TickCollector,
	live *usecase.LivePublisher,
	limiter *ratelimit.Limiter,
	producer *pkgkafka.Producer,
	store domrepo.TickStore,
	ch *pkgch.Client,
	c cache.Service,
	pool *postgres.Pool,
) *server.App {
	var resources []server.Resource
	if cfg.Logs.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logs.Interval,
			CountThreshold: cfg.Logs.Threshold,
			Topic:          cfg.Logs.Topic,
			Publisher:      producer,
			PublishTimeout: 5 * time.Second,
		})
		resources = append(resources, server.Resource{Name: "log collector", Close: func() error {
			l.RemoveCollector()
			return nil
		}})
	}
	if producer != nil {
		resources = append(resources, server.Resource{Name: "kafka producer", Close: producer.Close})
	}
	resources = append(resources, server.Resource{Name: "tick store", Close: store.Close})
	if ch != nil {
		resources = append(resources, server.Resource{Name: "clickhouse", Close: ch.Close})
	}
	resources = append(resources, server.Resource{Name: "cache", Close: c.Close})
	if pool != nil {
		resources = append(resources, server.Resource{Name: "postgres", Close: func() error {
			pool.Close()
			return nil
		}})
	}

	comps := server.Components{Consumer: consumer, Collector: collector, Live: live, Limiter: limiter}
	return server.New(cfg, l, httpServer, hub, buffer, comps, resources...)
}
