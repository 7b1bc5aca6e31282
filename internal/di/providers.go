package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/domain/service"
	"PQAnalyzer/internal/handler/api"
	mid "PQAnalyzer/internal/middleware"
	internalrepo "PQAnalyzer/internal/repository"
	"PQAnalyzer/internal/service/ratelimit"
	"PQAnalyzer/internal/services/calibration"
	"PQAnalyzer/internal/services/classifier"
	"PQAnalyzer/internal/services/source"
	"PQAnalyzer/internal/usecase"
	"PQAnalyzer/pkg/cache"
	pkgch "PQAnalyzer/pkg/clickhouse"
	"PQAnalyzer/pkg/config"
	xhttp "PQAnalyzer/pkg/http"
	pkgkafka "PQAnalyzer/pkg/kafka"
	applogger "PQAnalyzer/pkg/logger"
	"PQAnalyzer/pkg/metrics"
	"PQAnalyzer/pkg/server"
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

func ProvideKafkaCollectors(reg *prometheus.Registry) *pkgkafka.Collectors {
	return pkgkafka.NewCollectors(reg)
}

// ProvideClickHouseClient connects only when a component needs ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.UsesClickHouse() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts := append([]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRunStore picks the configured run backend.
func ProvideRunStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.RunStore, error) {
	if cfg.Storage.Backend == "clickhouse" {
		return internalrepo.NewClickHouseRunStore(ch, cfg.ClickHouse.Database, l), nil
	}
	store, err := internalrepo.OpenSQLiteRunStore(context.Background(), cfg.SQLiteFile())
	if err != nil {
		return nil, fmt.Errorf("sqlite run store: %w", err)
	}
	return store, nil
}

func ProvideSampleWarehouse(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.SampleWarehouse {
	if ch == nil || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return internalrepo.NewClickHouseSampleStore(ch, cfg.ClickHouse.Database, l)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, kc *pkgkafka.Collectors) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerMetrics(kc),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSamplePipeline returns nil without a producer; acquisition then skips publishing.
func ProvideSamplePipeline(cfg *config.Config, producer *pkgkafka.Producer, m repository.Metrics, l *applogger.Logger) *mid.SamplePipeline {
	if producer == nil {
		return nil
	}
	return mid.NewSamplePipeline(
		internalrepo.NewKafkaSamplePublisher(producer, cfg.Kafka.Topic),
		m,
		mid.WithBufferSize(cfg.Acquisition.BufferSize),
		mid.WithBatching(cfg.Acquisition.PublishBatch, cfg.Kafka.Producer.Linger),
		mid.WithLogger(l.With(applogger.String("component", "sample_pipeline"))),
	)
}

func ProvideKafkaConsumer(cfg *config.Config, kc *pkgkafka.Collectors, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l.With(applogger.String("component", "kafka_consumer")),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerMetrics(kc),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaSamplesHandler(cfg *config.Config, wh repository.SampleWarehouse, m repository.Metrics) *usecase.KafkaSamplesHandler {
	if wh == nil {
		return nil
	}
	return usecase.NewKafkaSamplesHandler(cfg.Kafka.Topic, wh, m)
}

// ProvideCache layers the in-process cache over redis when redis is enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(256)), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("analysis cache on redis", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	return cache.NewLayeredCache(rc, cache.WithMemoryMaxSize(64)), nil
}

func ProvideClassifierRegistry(cfg *config.Config, l *applogger.Logger) (*classifier.Registry, error) {
	opts := []classifier.RegistryOption{
		classifier.WithModelDir(cfg.Classifier.ModelDir),
		classifier.WithLogger(l),
	}
	for name, path := range cfg.Classifier.Files {
		p, err := models.ParsePhenomenon(name)
		if err != nil {
			return nil, fmt.Errorf("classifier.files: %w", err)
		}
		opts = append(opts, classifier.WithModelFile(p, path))
	}
	if cfg.Classifier.ServiceURL != "" {
		opts = append(opts, classifier.WithModelService(cfg.Classifier.ServiceURL, cfg.Classifier.Timeout))
	}
	return classifier.NewRegistry(opts...), nil
}

func ProvideCalibrator(cfg *config.Config) (service.Calibrator, error) {
	line, err := calibration.Fit(cfg.Calibration.SensorPoints, cfg.Calibration.RealPoints, cfg.Calibration.Offset)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ProvideSources registers one factory per source kind.
func ProvideSources(cfg *config.Config, l *applogger.Logger) map[string]usecase.SourceFactory {
	sim := cfg.Acquisition.Simulated
	mq := cfg.MQTT
	return map[string]usecase.SourceFactory{
		"simulated": func() (repository.SampleSource, error) {
			return source.NewSimulated(sim.Offset, sim.Scale, sim.Samples), nil
		},
		"mqtt": func() (repository.SampleSource, error) {
			return source.NewMQTT(source.MQTTConfig{
				Broker:         mq.Broker,
				Topic:          mq.Topic,
				ClientID:       mq.ClientID,
				Username:       mq.Username,
				Password:       mq.Password,
				QoS:            mq.QoS,
				ConnectTimeout: mq.ConnectTimeout,
				Buffer:         cfg.Acquisition.BufferSize,
			}, l.With(applogger.String("component", "mqtt_source"))), nil
		},
	}
}

func ProvideAcquisition(
	cfg *config.Config,
	sources map[string]usecase.SourceFactory,
	store repository.RunStore,
	calib service.Calibrator,
	pipe *mid.SamplePipeline,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Acquisition {
	return usecase.NewAcquisition(usecase.AcquisitionConfig{
		LockPath:      cfg.LockFile(),
		Interval:      cfg.Acquisition.Interval,
		BufferSize:    cfg.Acquisition.BufferSize,
		DefaultSource: cfg.Acquisition.Source,
	}, sources, store, calib, pipe, m, l)
}

func ProvideAnalyzer(
	cfg *config.Config,
	store repository.RunStore,
	resolver service.ClassifierResolver,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.Analyzer, error) {
	phenomena := make([]models.Phenomenon, 0, len(cfg.Detection.Phenomena))
	for _, name := range cfg.Detection.Phenomena {
		p, err := models.ParsePhenomenon(name)
		if err != nil {
			return nil, fmt.Errorf("detection.phenomena: %w", err)
		}
		phenomena = append(phenomena, p)
	}
	return usecase.NewAnalyzer(usecase.AnalyzerConfig{
		Thresholds: models.Thresholds{
			Nominal:         cfg.Detection.NominalVoltage,
			LowerMultiplier: cfg.Detection.LowerMultiplier,
			UpperMultiplier: cfg.Detection.UpperMultiplier,
		},
		Phenomena:   phenomena,
		Exclusive:   cfg.Detection.Exclusive,
		CacheTTL:    cfg.Detection.CacheTTL,
		WindowWidth: cfg.Playback.WindowWidth,
	}, store, resolver, c, m, l), nil
}

func ProvideRuns(store repository.RunStore, analyzer *usecase.Analyzer, l *applogger.Logger) *usecase.Runs {
	return usecase.NewRuns(store, analyzer, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Server.RateLimitBurst < 0 {
		return nil
	}
	return ratelimit.New(float64(cfg.Server.RateLimitBurst), cfg.Server.RateLimitPerSecond)
}

func ProvideHTTPHandler(
	cfg *config.Config,
	acq *usecase.Acquisition,
	analyzer *usecase.Analyzer,
	runs *usecase.Runs,
	rl *ratelimit.Limiter,
	l *applogger.Logger,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewAcquisitionHandler(l, acq, analyzer, cfg.Acquisition.LiveWindow, cfg.Acquisition.StreamInterval),
		api.NewRunsHandler(l, runs, analyzer, rl),
	}
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
	}
	if !cfg.Metrics.Disabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp assembles the application. Nil collaborators are features turned off in config.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	acq *usecase.Acquisition,
	store repository.RunStore,
	c cache.Service,
	rl *ratelimit.Limiter,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSamplesHandler,
) *server.App {
	app := server.New(cfg, l, srv, acq, store, c)
	app.SetRateLimiter(rl)
	app.SetClickHouse(ch)
	app.SetKafka(producer, consumer)
	if kh != nil {
		app.SetMessageHandler(kh)
	}
	return app
}
