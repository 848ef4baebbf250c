package di

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/alphavantage"
	"StockCast/internal/service/cache"
	"StockCast/internal/service/finnhub"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/acquisition"
	"StockCast/internal/services/intraday"
	"StockCast/internal/services/model"
	"StockCast/internal/services/signal"
	"StockCast/internal/usecase"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/queue"
	"StockCast/pkg/server"
	"StockCast/pkg/sqlite"
	"StockCast/pkg/util"
)

const setupTimeout = 10 * time.Second

// WorkerPools are the fetch and training pools shared by the acquisition cache.
type WorkerPools struct {
	IO  *queue.Pool
	CPU *queue.Pool
}

// ProvideLogger creates the application logger.
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

// ProvideSession creates the exchange session clock.
func ProvideSession(cfg *config.Config) (*util.Session, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("session timezone: %w", err)
	}
	return util.NewSession(loc, nil), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics{}
	}
	return metrics.New(nil)
}

// ProvideLimiter creates the token buckets shared by the upstream client and the API.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideUpstream creates the daily history upstream.
func ProvideUpstream(cfg *config.Config, limiter *ratelimit.Limiter, lgr *applogger.Logger) repository.UpstreamSource {
	return alphavantage.New(alphavantage.Config{
		BaseURL:           cfg.Upstream.BaseURL,
		APIKey:            cfg.Upstream.APIKey,
		OutputSize:        cfg.Upstream.OutputSize,
		ConnectTimeout:    cfg.Upstream.ConnectTimeout,
		ReadTimeout:       cfg.Upstream.ReadTimeout,
		RequestsPerMinute: cfg.Upstream.RequestsPerMinute,
		Burst:             cfg.Upstream.Burst,
	}, limiter, lgr)
}

// ProvideSnapshots creates the shared history snapshot tier.
func ProvideSnapshots(cfg *config.Config, lgr *applogger.Logger) (cache.BytesCache, func(), error) {
	switch cfg.Acquisition.Snapshots {
	case "redis":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		lgr.Info("Redis snapshot tier connected", applogger.String("addr", cfg.Redis.Addr))
		return rc, func() {
			if err := rc.Close(); err != nil {
				lgr.Warn("redis close error", applogger.Error(err))
			}
		}, nil
	case "memory":
		return cache.NewTTLCache(), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

// ProvideMirror creates the JSON/CSV history mirror.
func ProvideMirror(cfg *config.Config, lgr *applogger.Logger) (repository.MirrorWriter, error) {
	if cfg.Acquisition.MirrorDir == "" {
		return nil, nil
	}
	m, err := internalrepo.NewFileMirror(cfg.Acquisition.MirrorDir, lgr)
	if err != nil {
		return nil, fmt.Errorf("file mirror: %w", err)
	}
	return m, nil
}

// ProvideWorkerPools starts the IO and CPU pools. Zero CPU workers means NumCPU.
func ProvideWorkerPools(cfg *config.Config, lgr *applogger.Logger) (*WorkerPools, func(), error) {
	pools := &WorkerPools{
		IO: queue.NewPool(queue.PoolConfig{
			Name:      "fetch",
			Kind:      queue.KindIO,
			Workers:   cfg.Acquisition.IOWorkers,
			QueueSize: len(cfg.Universe),
		}, lgr),
		CPU: queue.NewPool(queue.PoolConfig{
			Name:      "train",
			Kind:      queue.KindCPU,
			Workers:   cfg.Acquisition.CPUWorkers,
			QueueSize: len(cfg.Universe),
		}, lgr),
	}
	if err := pools.IO.Start(); err != nil {
		return nil, nil, err
	}
	if err := pools.CPU.Start(); err != nil {
		_ = pools.IO.Stop(context.Background())
		return nil, nil, err
	}
	return pools, func() {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		_ = pools.IO.Stop(ctx)
		_ = pools.CPU.Stop(ctx)
	}, nil
}

// ProvideAcquisitionCache creates the resolving history cache.
func ProvideAcquisitionCache(
	cfg *config.Config,
	upstream repository.UpstreamSource,
	snapshots cache.BytesCache,
	mirror repository.MirrorWriter,
	pools *WorkerPools,
	session *util.Session,
	m repository.Metrics,
	lgr *applogger.Logger,
) *acquisition.Cache {
	return acquisition.NewCache(acquisition.Config{
		Freshness:          cfg.Acquisition.Freshness,
		SyntheticFreshness: cfg.Acquisition.SyntheticFreshness,
		RateLimitBackoff:   cfg.Acquisition.RateLimitBackoff,
		SyntheticSessions:  cfg.Acquisition.SyntheticSessions,
		SyntheticSeed:      cfg.Acquisition.SyntheticSeed,
		BatchSize:          cfg.Acquisition.BatchSize,
		BatchDelay:         cfg.Acquisition.BatchDelay,
		Deadline:           cfg.Acquisition.Deadline,
		Universe:           cfg.Universe,
		MaxAdHoc:           cfg.Acquisition.MaxAdHocSymbols,
	}, acquisition.Deps{
		Upstream:  upstream,
		Snapshots: snapshots,
		Mirror:    mirror,
		IOPool:    pools.IO,
		CPUPool:   pools.CPU,
		Model: model.Config{
			MinInstances:  cfg.Model.MinInstances,
			Folds:         cfg.Model.Folds,
			Seed:          cfg.Model.Seed,
			Lambda:        cfg.Model.Lambda,
			HitRateWindow: cfg.Model.HitRateWindow,
		},
		Session: session,
		Metrics: m,
		Logger:  lgr,
	})
}

// ProvideEngine creates the signal engine.
func ProvideEngine(session *util.Session) *signal.Engine {
	return signal.NewEngine(session)
}

// ProvideClickHouseClient connects to ClickHouse when a component needs it, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, lgr *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.History.Backend != "clickhouse" && !(cfg.Stream.Enabled && cfg.Stream.Archive) {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	lgr.Info("ClickHouse connected",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database),
	)
	return client, func() {
		if err := client.Close(); err != nil {
			lgr.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideForecastStore opens the configured forecast history backend.
func ProvideForecastStore(cfg *config.Config, ch *pkgch.Client, lgr *applogger.Logger) (repository.ForecastStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	var (
		store repository.ForecastStore
		err   error
	)
	switch cfg.History.Backend {
	case "sqlite":
		client, cerr := sqlite.NewClient(sqlite.WithPath(cfg.History.SQLitePath))
		if cerr != nil {
			return nil, nil, fmt.Errorf("sqlite client: %w", cerr)
		}
		store, err = internalrepo.NewSQLiteForecastStore(ctx, client)
		if err != nil {
			_ = client.Close()
		}
	case "clickhouse":
		store, err = internalrepo.NewClickHouseForecastStore(ctx, ch, cfg.History.Table)
	default:
		return repository.NopForecastStore{}, func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("forecast store: %w", err)
	}
	lgr.Info("Forecast history ready", applogger.String("backend", cfg.History.Backend))
	return store, func() {
		if err := store.Close(); err != nil {
			lgr.Warn("forecast store close error", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the forecast publisher. It owns the producer.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer, lgr *applogger.Logger) (repository.ForecastPublisher, func()) {
	if producer == nil {
		return repository.NopPublisher{}, func() {}
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			lgr.Warn("kafka publisher close error", applogger.Error(err))
		}
	}
}

// ProvideTracker creates the intraday session bar tracker.
func ProvideTracker(session *util.Session) *intraday.Tracker {
	return intraday.NewTracker(session)
}

// ProvideForecastService creates the forecast query use case.
func ProvideForecastService(
	c *acquisition.Cache,
	engine *signal.Engine,
	store repository.ForecastStore,
	tracker *intraday.Tracker,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.ForecastService {
	return usecase.NewForecastService(c, engine, store, tracker, m, lgr)
}

// ProvideRefreshCycle creates the scheduled universe refresh.
func ProvideRefreshCycle(
	cfg *config.Config,
	c *acquisition.Cache,
	forecasts *usecase.ForecastService,
	store repository.ForecastStore,
	publisher repository.ForecastPublisher,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.RefreshCycle {
	return usecase.NewRefreshCycle(c, forecasts, store, publisher, cfg.Universe, m, lgr)
}

// ProvideIntradayCollector creates the live trade collector, nil when the stream is disabled.
func ProvideIntradayCollector(
	cfg *config.Config,
	tracker *intraday.Tracker,
	ch *pkgch.Client,
	m repository.Metrics,
	lgr *applogger.Logger,
) (*usecase.IntradayCollector, error) {
	if !cfg.Stream.Enabled {
		return nil, nil
	}
	stream := finnhub.New(finnhub.Config{
		APIKey:         cfg.Stream.APIKey,
		WebsocketURL:   cfg.Stream.WebsocketURL,
		Symbols:        cfg.Stream.Symbols,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		PingInterval:   cfg.Stream.PingInterval,
		BufferSize:     cfg.Stream.BufferSize,
	}, lgr)

	var archive repository.TradeArchive
	if cfg.Stream.Archive && ch != nil {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		a, err := internalrepo.NewClickHouseTradeArchive(ctx, ch, cfg.ClickHouse.TradesTable, "finnhub")
		if err != nil {
			return nil, fmt.Errorf("trade archive: %w", err)
		}
		archive = a
	}
	return usecase.NewIntradayCollector(stream, tracker, archive, m, usecase.CollectorConfig{
		Symbols:       cfg.Stream.Symbols,
		BatchSize:     cfg.Stream.BatchSize,
		FlushInterval: cfg.Stream.FlushInterval,
	}, lgr), nil
}

// ProvideForecastHandler creates the forecast HTTP handler.
func ProvideForecastHandler(
	cfg *config.Config,
	forecasts *usecase.ForecastService,
	limiter *ratelimit.Limiter,
	lgr *applogger.Logger,
) *api.ForecastEchoHandler {
	return api.NewForecastEchoHandler(lgr, forecasts, limiter, api.RateLimit{
		Burst:     cfg.Server.RateLimit.Burst,
		PerSecond: cfg.Server.RateLimit.PerSecond,
	})
}

// ProvideHTTPServer creates the Echo server with the forecast routes and health report.
func ProvideHTTPServer(
	cfg *config.Config,
	handler *api.ForecastEchoHandler,
	c *acquisition.Cache,
	collector *usecase.IntradayCollector,
	lgr *applogger.Logger,
) *xhttp.Server {
	health := func(context.Context) map[string]string {
		status := map[string]string{"cached_symbols": strconv.Itoa(len(c.Entries()))}
		if collector != nil {
			status["stream_connected"] = strconv.FormatBool(collector.IsConnected())
		}
		return status
	}
	return xhttp.NewServer(handler,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
		xhttp.WithLogger(lgr),
		xhttp.WithHealth(health),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	httpServer *xhttp.Server,
	cycle *usecase.RefreshCycle,
	collector *usecase.IntradayCollector,
	session *util.Session,
) *server.App {
	var col server.Collector
	if collector != nil {
		col = collector
	}
	return server.New(cfg, lgr, httpServer, cycle, col, session.Location())
}
