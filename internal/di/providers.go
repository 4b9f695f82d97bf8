package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/domain/repository"
	"AutoOptimiser/internal/handler/api"
	mid "AutoOptimiser/internal/middleware"
	internalrepo "AutoOptimiser/internal/repository"
	"AutoOptimiser/internal/usecase"
	"AutoOptimiser/pkg/cache"
	pkgch "AutoOptimiser/pkg/clickhouse"
	"AutoOptimiser/pkg/config"
	xhttp "AutoOptimiser/pkg/http"
	pkgkafka "AutoOptimiser/pkg/kafka"
	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/metrics"
	"AutoOptimiser/pkg/queue"
	"AutoOptimiser/pkg/server"
	"AutoOptimiser/pkg/terminal"
	"AutoOptimiser/pkg/textenc"
)

// ProvideLogger builds the application logger from the logger section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lgr, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry,
// which is what /metrics serves.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisCache connects to Redis when it is enabled and returns nil
// otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideSessionStore keeps snapshots in Redis behind an in-process layer,
// or in memory only when Redis is disabled.
func ProvideSessionStore(cfg *config.Config, rc *cache.RedisCache) (repository.SessionStore, func()) {
	var store cache.Store
	if rc != nil {
		store = cache.NewLayeredCache(rc, 256, time.Minute)
	} else {
		store = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(1000),
			cache.WithMemoryDefaultTTL(cfg.Optimiser.SessionTTL),
		)
	}
	return internalrepo.NewCacheSessionStore(store, cfg.Optimiser.SessionTTL), func() { _ = store.Close() }
}

// ProvideKafkaProducer creates the producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.MaxAttempts, cfg.Kafka.WriteTimeout),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.Linger),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHeader("source", "optimiser"),
		pkgkafka.WithHeader("environment", cfg.Environment),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideEventPublisher forwards run events to Kafka, or returns nil.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient connects to ClickHouse when it is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ep := pkgch.Endpoint{
		Host:     cfg.ClickHouse.Host,
		Port:     cfg.ClickHouse.Port,
		Database: cfg.ClickHouse.Database,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}
	client, err := pkgch.NewClient(context.Background(), ep,
		pkgch.WithPool(4, 2, 10*time.Minute),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideResultArchive creates the archive table and returns nil when
// ClickHouse is disabled.
func ProvideResultArchive(cfg *config.Config, client *pkgch.Client, lgr *logger.Logger) (repository.ResultArchive, error) {
	if client == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHResultArchive(client, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table, lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideProgressHub builds the event hub between the engine and observers.
func ProvideProgressHub(cfg *config.Config, m repository.Metrics, pub repository.EventPublisher) *mid.ProgressHub {
	opts := []mid.HubOption{
		mid.WithBufferSize(1024),
		mid.WithProgressInterval(cfg.Optimiser.ProgressInterval),
	}
	if pub != nil {
		opts = append(opts, mid.WithPublisher(pub))
	}
	return mid.NewProgressHub(m, opts...)
}

// ProvideTerminal wraps the tester executable.
func ProvideTerminal(cfg *config.Config, lgr *logger.Logger) repository.Terminal {
	proc := terminal.New(cfg.Terminal.Executable, terminal.WithWorkDir(filepath.Dir(cfg.Terminal.Executable)))
	return internalrepo.NewTerminalRunner(proc, lgr.With(logger.String("component", "terminal")),
		internalrepo.WithLogin(cfg.Terminal.Login),
		internalrepo.WithProfile(cfg.Terminal.Profile),
		internalrepo.WithRunTimeout(cfg.Terminal.Timeout),
	)
}

// ProvideOptimiser builds the configured optimiser variant.
func ProvideOptimiser(
	cfg *config.Config,
	lgr *logger.Logger,
	term repository.Terminal,
	m repository.Metrics,
	hub *mid.ProgressHub,
) (*usecase.Optimiser, error) {
	enc, err := textenc.Parse(cfg.Terminal.Encoding)
	if err != nil {
		return nil, fmt.Errorf("terminal encoding: %w", err)
	}
	var tick models.PriceModel
	if err := tick.UnmarshalText([]byte(cfg.Optimiser.TickModel)); err != nil {
		return nil, fmt.Errorf("optimiser tick model: %w", err)
	}

	return usecase.NewVariant(cfg.Optimiser.Variant,
		usecase.OptimiserDeps{
			Terminal:   term,
			Config:     internalrepo.NewTesterConfigStore(cfg.Terminal.BaseConfig),
			Parameters: internalrepo.NewSetFileWriter(enc),
			Reports:    internalrepo.NewReportFileSource(),
			Events:     hub,
			Metrics:    m,
			Logger:     lgr.With(logger.String("component", "optimiser")),
		},
		usecase.OptimiserConfig{
			WorkDir:          cfg.Terminal.WorkDir,
			ParametersDir:    cfg.Terminal.ParametersDir,
			ReportFile:       cfg.Terminal.ReportFile,
			ReplaceDates:     cfg.Optimiser.ReplaceDates,
			ShutdownOnFinish: cfg.Optimiser.ShutdownOnFinish,
			TickModel:        tick,
		},
	)
}

// ProvideQueue creates the run queue on the Redis connection when enabled.
func ProvideQueue(cfg *config.Config, lgr *logger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	// One worker: the engine runs one session at a time.
	return queue.NewRedisQueue(lgr.With(logger.String("component", "queue")), &queue.Config{
		Workers:    1,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		PollEvery:  cfg.Queue.PollEvery,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

// ProvideRunService wires the engine to storage, the archive and the queue.
func ProvideRunService(
	engine *usecase.Optimiser,
	store repository.SessionStore,
	archive repository.ResultArchive,
	q *queue.RedisQueue,
	lgr *logger.Logger,
) *usecase.RunService {
	var opts []usecase.RunServiceOption
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	if q != nil {
		opts = append(opts, usecase.WithQueue(q))
	}
	return usecase.NewRunService(engine, store, lgr.With(logger.String("component", "runs")), opts...)
}

// ProvideRunJob registers the queued run handler. It returns nil when the
// queue is disabled.
func ProvideRunJob(svc *usecase.RunService, q *queue.RedisQueue, lgr *logger.Logger) *usecase.RunJob {
	if q == nil {
		return nil
	}
	job := usecase.NewRunJob(svc, lgr)
	q.RegisterJob(job)
	return job
}

// ProvideRunHandler creates the HTTP handler of the run API.
func ProvideRunHandler(lgr *logger.Logger, svc *usecase.RunService, hub *mid.ProgressHub) *api.RunHandler {
	return api.NewRunHandler(lgr, svc, hub)
}

// ProvideHTTPServer creates the echo server with the run API mounted.
func ProvideHTTPServer(cfg *config.Config, lgr *logger.Logger, runs *api.RunHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(lgr, []xhttp.Handler{runs},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithRateLimit(cfg.Server.RateBurst, cfg.Server.RatePerSecond),
		xhttp.WithMetrics(metricsPath, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
	)
}

// ProvideApp creates the application. job is taken only so the queue has
// its handler registered before the App starts it.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	httpServer *xhttp.Server,
	hub *mid.ProgressHub,
	engine *usecase.Optimiser,
	svc *usecase.RunService,
	q *queue.RedisQueue,
	job *usecase.RunJob,
) *server.App {
	_ = job
	return server.New(cfg, lgr, httpServer, hub, engine, svc, q)
}
