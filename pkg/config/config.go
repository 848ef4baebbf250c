package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"StockCast/pkg/util"
)

// DefaultUniverse is refreshed when no symbols are configured.
var DefaultUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "BRK-B", "LLY", "AVGO", "JPM",
	"V", "XOM", "ORCL", "MA", "HD", "CVX", "MRK", "ABBV", "KO", "PEP",
	"BAC", "COST", "MCD", "TMO", "CSCO", "CRM", "ACN", "ADBE", "AMD", "NFLX",
}

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Universe    []string          `yaml:"universe"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Model       ModelConfig       `yaml:"model"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	History     HistoryConfig     `yaml:"history"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Redis       RedisConfig       `yaml:"redis"`
	Stream      StreamConfig      `yaml:"stream"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
	RateLimit       struct {
		Burst     float64 `yaml:"burst" default:"20" validate:"gte=1"`
		PerSecond float64 `yaml:"per_second" default:"5" validate:"gte=0"`
	} `yaml:"rate_limit"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type UpstreamConfig struct {
	BaseURL           string        `yaml:"base_url" default:"https://www.alphavantage.co/query" validate:"url"`
	APIKey            string        `yaml:"api_key"`
	OutputSize        string        `yaml:"output_size" default:"compact" validate:"oneof=compact full"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" default:"10s" validate:"gt=0"`
	ReadTimeout       time.Duration `yaml:"read_timeout" default:"10s" validate:"gt=0"`
	RequestsPerMinute float64       `yaml:"requests_per_minute" default:"5" validate:"gt=0"`
	Burst             float64       `yaml:"burst" default:"1" validate:"gte=1"`
}

type AcquisitionConfig struct {
	Freshness          time.Duration `yaml:"freshness" default:"24h" validate:"gt=0"`
	SyntheticFreshness time.Duration `yaml:"synthetic_freshness" default:"1h" validate:"gt=0"`
	RateLimitBackoff   time.Duration `yaml:"rate_limit_backoff" default:"60s" validate:"gte=0"`
	SyntheticSessions  int           `yaml:"synthetic_sessions" default:"100" validate:"gte=30"`
	SyntheticSeed      int64         `yaml:"synthetic_seed" default:"42"`
	BatchSize          int           `yaml:"batch_size" default:"5" validate:"gte=1"`
	BatchDelay         time.Duration `yaml:"batch_delay" default:"15s" validate:"gte=0"`
	Deadline           time.Duration `yaml:"deadline" default:"15m" validate:"gt=0"`
	IOWorkers          int           `yaml:"io_workers" default:"3" validate:"gte=1"`
	CPUWorkers         int           `yaml:"cpu_workers" validate:"gte=0"`
	MirrorDir          string        `yaml:"mirror_dir" default:"data"`
	Snapshots          string        `yaml:"snapshots" default:"memory" validate:"oneof=memory redis none"`
	MaxAdHocSymbols    int           `yaml:"max_ad_hoc_symbols" default:"256" validate:"gte=1"`
}

type ModelConfig struct {
	MinInstances  int     `yaml:"min_instances" default:"10" validate:"gte=2"`
	Folds         int     `yaml:"folds" default:"10" validate:"gte=2"`
	Seed          int64   `yaml:"seed" default:"1"`
	Lambda        float64 `yaml:"lambda" default:"1" validate:"gt=0"`
	HitRateWindow int     `yaml:"hit_rate_window" default:"20" validate:"gte=1"`
}

type ScheduleConfig struct {
	Enabled  bool   `yaml:"enabled" default:"true"`
	Refresh  string `yaml:"refresh" default:"0 30 16 * * MON-FRI"`
	Prefetch bool   `yaml:"prefetch" default:"true"`
	Timezone string `yaml:"timezone" default:"America/New_York"`
}

type HistoryConfig struct {
	Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite clickhouse none"`
	SQLitePath string `yaml:"sqlite_path" default:"data/forecasts.db"`
	Table      string `yaml:"table" default:"forecasts"`
}

type KafkaConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Brokers         []string      `yaml:"brokers"`
	Topic           string        `yaml:"topic" default:"stockcast.forecasts"`
	RequiredAcks    int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression     string        `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts     int           `yaml:"max_attempts" default:"3"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	AutoCreateTopic bool          `yaml:"auto_create_topic"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"default"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	TradesTable      string        `yaml:"trades_table" default:"intraday_trades"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	WebsocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	BufferSize     int           `yaml:"buffer_size" default:"1024"`
	BatchSize      int           `yaml:"batch_size" default:"500"`
	FlushInterval  time.Duration `yaml:"flush_interval" default:"2s"`
	Archive        bool          `yaml:"archive"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Universe = strings.Split(v, ",")
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Acquisition.Snapshots = "redis"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = strings.ToLower(v)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// read applies defaults first so that explicit zero values in the file win.
func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) normalize() {
	c.Universe = util.ParseSymbols(strings.Join(c.Universe, ","))
	if len(c.Universe) == 0 {
		c.Universe = append([]string(nil), DefaultUniverse...)
	}
	c.Stream.Symbols = util.ParseSymbols(strings.Join(c.Stream.Symbols, ","))
	if len(c.Stream.Symbols) == 0 {
		c.Stream.Symbols = append([]string(nil), c.Universe...)
	}
	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Kafka.Brokers = brokers
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Environment == "production" && c.Upstream.APIKey == "" {
		errs = append(errs, errors.New("upstream.api_key is required in production"))
	}
	if c.Acquisition.SyntheticFreshness > c.Acquisition.Freshness {
		errs = append(errs, errors.New("acquisition.synthetic_freshness cannot exceed acquisition.freshness"))
	}
	if c.Acquisition.Snapshots == "redis" && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when acquisition.snapshots is redis"))
	}
	if c.History.Backend == "sqlite" && c.History.SQLitePath == "" {
		errs = append(errs, errors.New("history.sqlite_path is required for the sqlite backend"))
	}
	if (c.History.Backend == "clickhouse" || c.Stream.Archive) && c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when kafka is enabled"))
	}
	if c.Stream.Enabled && c.Stream.APIKey == "" {
		errs = append(errs, errors.New("stream.api_key is required when the stream is enabled"))
	}
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Refresh) == "" {
		errs = append(errs, errors.New("schedule.refresh is required when the schedule is enabled"))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	return errors.Join(errs...)
}
