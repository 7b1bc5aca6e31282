package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/services/classifier"
	"PQAnalyzer/internal/usecase"
	"PQAnalyzer/pkg/cache"
	"PQAnalyzer/pkg/config"
	applogger "PQAnalyzer/pkg/logger"
	"PQAnalyzer/pkg/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Storage.DataDir = t.TempDir()
	cfg.Logging.Level = "error"
	cfg.Logging.Output = "stderr"
	return cfg
}

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := testConfig(t)
	reg := ProvideRegistry()
	kc := ProvideKafkaCollectors(reg)

	ch, err := ProvideClickHouseClient(cfg)
	if err != nil || ch != nil {
		t.Fatalf("clickhouse should be skipped: %v %v", ch, err)
	}
	producer, err := ProvideKafkaProducer(cfg, kc)
	if err != nil || producer != nil {
		t.Fatalf("producer should be skipped: %v %v", producer, err)
	}
	if p := ProvideSamplePipeline(cfg, nil, metrics.Nop{}, applogger.NewNop()); p != nil {
		t.Fatalf("pipeline without producer should be nil")
	}
	consumer, err := ProvideKafkaConsumer(cfg, kc, applogger.NewNop())
	if err != nil || consumer != nil {
		t.Fatalf("consumer should be skipped: %v %v", consumer, err)
	}
	if wh := ProvideSampleWarehouse(cfg, nil, applogger.NewNop()); wh != nil {
		t.Fatalf("warehouse should be nil")
	}
	if h := ProvideKafkaSamplesHandler(cfg, nil, metrics.Nop{}); h != nil {
		t.Fatalf("handler should be nil without a warehouse")
	}

	cfg.Server.RateLimitBurst = -1
	if rl := ProvideRateLimiter(cfg); rl != nil {
		t.Fatalf("negative burst should disable the limiter")
	}
}

func TestProvideCacheDefaultsToMemory(t *testing.T) {
	c, err := ProvideCache(testConfig(t), applogger.NewNop())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Fatalf("expected memory cache, got %T", c)
	}
}

func TestProvideRunStoreSQLite(t *testing.T) {
	cfg := testConfig(t)
	store, err := ProvideRunStore(cfg, nil, applogger.NewNop())
	if err != nil {
		t.Fatalf("run store: %v", err)
	}
	defer store.Close()

	run := &models.Run{ID: "r1", Source: "simulated", SavedAt: time.Now().UTC(), Series: models.Series{{T: 0, V: 220}}}
	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(context.Background(), "r1")
	if err != nil || len(got.Series) != 1 {
		t.Fatalf("get: %+v %v", got, err)
	}
}

func TestProvideClassifierRegistryFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.ModelDir = "/models"
	cfg.Classifier.Files = map[string]string{"sag": "/elsewhere/sag-v2.json"}

	reg, err := ProvideClassifierRegistry(cfg, applogger.NewNop())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if reg.Path(models.Sag) != "/elsewhere/sag-v2.json" {
		t.Fatalf("sag path = %s", reg.Path(models.Sag))
	}
	if reg.Path(models.Swell) != filepath.Join("/models", "swell.json") {
		t.Fatalf("swell path = %s", reg.Path(models.Swell))
	}

	cfg.Classifier.Files = map[string]string{"flicker": "x.json"}
	if _, err := ProvideClassifierRegistry(cfg, applogger.NewNop()); err == nil {
		t.Fatalf("expected error for unknown phenomenon")
	}
}

func TestProvideSources(t *testing.T) {
	sources := ProvideSources(testConfig(t), applogger.NewNop())
	for _, name := range []string{"simulated", "mqtt"} {
		f, ok := sources[name]
		if !ok {
			t.Fatalf("missing source %s", name)
		}
		src, err := f()
		if err != nil || src.Name() != name {
			t.Fatalf("source %s: %v %v", name, src, err)
		}
	}
}

func TestProvideAnalyzerUsesDetectionConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Detection.Phenomena = []string{"sag", "swell"}
	cfg.Detection.Exclusive = true

	an, err := ProvideAnalyzer(cfg, nil, classifier.NewRegistry(), cache.NewMemoryCache(), metrics.Nop{}, applogger.NewNop())
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	opts := an.Options(usecase.AnalyzeParams{})
	if len(opts.Phenomena) != 2 || opts.Phenomena[0] != models.Sag || !opts.Exclusive {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Thresholds.Nominal != 220 {
		t.Fatalf("nominal = %v", opts.Thresholds.Nominal)
	}
}

func TestInitializeAppStandalone(t *testing.T) {
	app, err := InitializeApp(testConfig(t))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
