package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PAIRLAB_BACKEND_TYPE.
const EnvPrefix = "PAIRLAB"

// Backend types.
const (
	BackendMemory     = "memory"
	BackendClickHouse = "clickhouse"
	BackendKafka      = "kafka"
)

type Config struct {
	Environment string           `yaml:"environment" split_words:"true"`
	Server      ServerConfig     `yaml:"server" split_words:"true"`
	Log         LogConfig        `yaml:"log" split_words:"true"`
	Metrics     MetricsConfig    `yaml:"metrics" split_words:"true"`
	Backend     BackendConfig    `yaml:"backend" split_words:"true"`
	Kafka       KafkaConfig      `yaml:"kafka" split_words:"true"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse" split_words:"true"`
	Postgres    PostgresConfig   `yaml:"postgres" split_words:"true"`
	Cache       CacheConfig      `yaml:"cache" split_words:"true"`
	Ingest      IngestConfig     `yaml:"ingest" split_words:"true"`
	Live        LiveConfig       `yaml:"live" split_words:"true"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit" split_words:"true"`
	Logs        LogsConfig       `yaml:"logs" split_words:"true"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	BodyLimit       string        `yaml:"body_limit" split_words:"true"`
	CORS            bool          `yaml:"cors" envconfig:"CORS"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
	Output string `yaml:"output" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Path    string `yaml:"path" split_words:"true"`
}

type BackendConfig struct {
	Type           string        `yaml:"type" split_words:"true"`
	BatchSize      int           `yaml:"batch_size" split_words:"true"`
	FlushInterval  time.Duration `yaml:"flush_interval" split_words:"true"`
	BufferCapacity int           `yaml:"buffer_capacity" split_words:"true"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" split_words:"true"`
	Topic        string        `yaml:"topic" split_words:"true"`
	RequiredAcks int           `yaml:"required_acks" split_words:"true"`
	Compression  string        `yaml:"compression" split_words:"true"`
	Producer     KafkaProducer `yaml:"producer" split_words:"true"`
	Consumer     KafkaConsumer `yaml:"consumer" split_words:"true"`
}

type KafkaProducer struct {
	MaxAttempts  int           `yaml:"max_attempts" split_words:"true"`
	Linger       time.Duration `yaml:"linger" split_words:"true"`
	BatchBytes   int           `yaml:"batch_bytes" split_words:"true"`
	BatchSize    int           `yaml:"batch_size" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	Async        bool          `yaml:"async" split_words:"true"`
}

type KafkaConsumer struct {
	GroupID    string        `yaml:"group_id" split_words:"true"`
	Workers    int           `yaml:"workers" split_words:"true"`
	BufferSize int           `yaml:"buffer_size" split_words:"true"`
	RetryMax   int           `yaml:"retry_max" split_words:"true"`
	BackoffMin time.Duration `yaml:"backoff_min" split_words:"true"`
	BackoffMax time.Duration `yaml:"backoff_max" split_words:"true"`
	DLQTopic   string        `yaml:"dlq_topic" split_words:"true"`
	MinBytes   int           `yaml:"min_bytes" split_words:"true"`
	MaxBytes   int           `yaml:"max_bytes" split_words:"true"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" split_words:"true"`
	Port             int           `yaml:"port" split_words:"true"`
	Database         string        `yaml:"database" split_words:"true"`
	User             string        `yaml:"user" split_words:"true"`
	Password         string        `yaml:"password" split_words:"true"`
	UseHTTP          bool          `yaml:"use_http" split_words:"true"`
	AsyncInsert      bool          `yaml:"async_insert" split_words:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert" split_words:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" split_words:"true"`
	ReadTimeout      time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout     time.Duration `yaml:"write_timeout" split_words:"true"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" split_words:"true"`
}

type PostgresConfig struct {
	Enabled           bool          `yaml:"enabled" split_words:"true"`
	DSN               string        `yaml:"dsn" split_words:"true"`
	MaxConns          int32         `yaml:"max_conns" split_words:"true"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" split_words:"true"`
}

type CacheConfig struct {
	Type            string        `yaml:"type" split_words:"true"`
	TTL             time.Duration `yaml:"ttl" split_words:"true"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" split_words:"true"`
	Redis           RedisConfig   `yaml:"redis" split_words:"true"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	DB       int    `yaml:"db" split_words:"true"`
	PoolSize int    `yaml:"pool_size" split_words:"true"`
}

type IngestConfig struct {
	Binance BinanceConfig `yaml:"binance" split_words:"true"`
}

type BinanceConfig struct {
	Enabled        bool          `yaml:"enabled" split_words:"true"`
	URL            string        `yaml:"url" split_words:"true"`
	Symbols        []string      `yaml:"symbols" split_words:"true"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" split_words:"true"`
	PingInterval   time.Duration `yaml:"ping_interval" split_words:"true"`
}

// PairConfig is one "X/Y" pair published by the live loop.
type PairConfig struct {
	SymbolX string
	SymbolY string
}

type LiveConfig struct {
	Enabled   bool          `yaml:"enabled" split_words:"true"`
	Pairs     []string      `yaml:"pairs" split_words:"true"`
	Timeframe string        `yaml:"timeframe" split_words:"true"`
	Window    int           `yaml:"window" split_words:"true"`
	Lookback  time.Duration `yaml:"lookback" split_words:"true"`
	Interval  time.Duration `yaml:"interval" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

type LogsConfig struct {
	Enabled   bool          `yaml:"enabled" split_words:"true"`
	Topic     string        `yaml:"topic" split_words:"true"`
	Interval  time.Duration `yaml:"interval" split_words:"true"`
	Threshold int           `yaml:"threshold" split_words:"true"`
}

// Default returns a configuration that runs on the in-memory backend.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server = ServerConfig{
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		BodyLimit:       "50M",
		CORS:            true,
	}
	c.Log = LogConfig{Level: "info", Format: "json", Output: "stdout"}
	c.Metrics = MetricsConfig{Enabled: true, Path: "/metrics"}
	c.Backend = BackendConfig{
		Type:           BackendMemory,
		BatchSize:      50,
		FlushInterval:  time.Second,
		BufferCapacity: 10000,
	}
	c.Kafka.Topic = "pairlab.ticks"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 50 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Consumer = KafkaConsumer{
		GroupID:    "pairlab-ingest",
		Workers:    4,
		BufferSize: 256,
		RetryMax:   3,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10 << 20,
	}
	c.ClickHouse = ClickHouseConfig{
		Host:         "localhost",
		Port:         9000,
		Database:     "pairlab",
		User:         "default",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	c.Postgres.MaxConns = 4
	c.Postgres.HealthCheckPeriod = time.Minute
	c.Cache = CacheConfig{Type: "memory", TTL: 5 * time.Second, CleanupInterval: time.Minute}
	c.Cache.Redis.Addr = "localhost:6379"
	c.Ingest.Binance = BinanceConfig{
		URL:            "wss://fstream.binance.com/ws",
		ReconnectDelay: 5 * time.Second,
		PingInterval:   30 * time.Second,
	}
	c.Live = LiveConfig{
		Timeframe: "1m",
		Window:    30,
		Lookback:  time.Hour,
		Interval:  5 * time.Second,
	}
	c.RateLimit = RateLimitConfig{Enabled: true, RPS: 20, Burst: 40}
	c.Logs = LogsConfig{Topic: "pairlab.logs", Interval: 30 * time.Second, Threshold: 100}
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads the YAML file, when present, then applies PAIRLAB_*
// environment overrides before validating.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if c, err = Parse(b); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	switch c.Backend.Type {
	case BackendMemory, BackendClickHouse:
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for the kafka backend")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required for the kafka backend")
		}
	default:
		return fmt.Errorf("backend.type must be one of memory, clickhouse, kafka, got '%s'", c.Backend.Type)
	}
	if c.Backend.BatchSize <= 0 {
		return fmt.Errorf("backend.batch_size must be positive")
	}
	if c.Backend.FlushInterval <= 0 {
		return fmt.Errorf("backend.flush_interval must be positive")
	}
	if c.Backend.BufferCapacity < c.Backend.BatchSize {
		return fmt.Errorf("backend.buffer_capacity must be at least batch_size")
	}
	switch c.Cache.Type {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.type must be memory, redis or none, got '%s'", c.Cache.Type)
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	if c.Ingest.Binance.Enabled && len(c.Ingest.Binance.Symbols) == 0 {
		return fmt.Errorf("ingest.binance.symbols cannot be empty")
	}
	if c.Live.Enabled {
		if _, err := c.Live.ParsedPairs(); err != nil {
			return err
		}
		if c.Live.Interval <= 0 || c.Live.Lookback <= 0 {
			return fmt.Errorf("live.interval and live.lookback must be positive")
		}
	}
	if c.Logs.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logs digest requires kafka.brokers")
	}
	return nil
}

// ParsedPairs splits "BTCUSDT/ETHUSDT" entries into upper-cased pairs.
func (l LiveConfig) ParsedPairs() ([]PairConfig, error) {
	if len(l.Pairs) == 0 {
		return nil, fmt.Errorf("live.pairs cannot be empty")
	}
	out := make([]PairConfig, 0, len(l.Pairs))
	for _, p := range l.Pairs {
		parts := strings.Split(p, "/")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("live.pairs entry %q must look like X/Y", p)
		}
		out = append(out, PairConfig{
			SymbolX: strings.ToUpper(strings.TrimSpace(parts[0])),
			SymbolY: strings.ToUpper(strings.TrimSpace(parts[1])),
		})
	}
	return out, nil
}
