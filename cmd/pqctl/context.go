package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"PQAnalyzer/internal/di"
	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/services/series"
	"PQAnalyzer/internal/usecase"
	"PQAnalyzer/pkg/cache"
	pkgch "PQAnalyzer/pkg/clickhouse"
	"PQAnalyzer/pkg/config"
	applogger "PQAnalyzer/pkg/logger"
	"PQAnalyzer/pkg/metrics"
)

// commandContext builds the offline stack lazily: commands that only analyze a
// CSV file never open the run store.
type commandContext struct {
	configFlag   *string
	modelDirFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	stackOnce sync.Once
	stackErr  error
	logger    *applogger.Logger
	ch        *pkgch.Client
	store     repository.RunStore
	analyzer  *usecase.Analyzer
	runs      *usecase.Runs
}

func newCommandContext(configFlag, modelDirFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, modelDirFlag: modelDirFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadWithEnv(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.modelDirFlag != nil && strings.TrimSpace(*c.modelDirFlag) != "" {
			cfg.Classifier.ModelDir = strings.TrimSpace(*c.modelDirFlag)
		}
		// Diagnostics go to stderr so stdout stays parseable.
		cfg.Logging.Output = "stderr"
		if cfg.Logging.Level == "info" {
			cfg.Logging.Level = "warn"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureStack opens the logger, the classifier registry and the analyzer.
// withStore also opens the configured run store.
func (c *commandContext) ensureStack(withStore bool) error {
	c.stackOnce.Do(func() {
		c.stackErr = c.buildStack(withStore)
	})
	return c.stackErr
}

func (c *commandContext) buildStack(withStore bool) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	c.logger = l

	if withStore {
		if cfg.Storage.Backend == "clickhouse" {
			if c.ch, err = di.ProvideClickHouseClient(cfg); err != nil {
				return err
			}
		}
		if c.store, err = di.ProvideRunStore(cfg, c.ch, l); err != nil {
			return err
		}
	}

	registry, err := di.ProvideClassifierRegistry(cfg, l)
	if err != nil {
		return err
	}
	c.analyzer, err = di.ProvideAnalyzer(cfg, c.store, registry, cache.NewMemoryCache(), metrics.Nop{}, l)
	if err != nil {
		return err
	}
	if c.store != nil {
		c.runs = usecase.NewRuns(c.store, c.analyzer, l)
	}
	return nil
}

func (c *commandContext) close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.ch != nil {
		if err := c.ch.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// readSeries decodes a CSV file and reports skipped rows on stderr.
func readSeries(cmd *cobra.Command, path string) (models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, stats, err := series.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d malformed rows of %d\n", stats.Skipped, stats.Rows+stats.Skipped)
	}
	return s, nil
}

// analysisFlags are shared by every command that runs detection.
type analysisFlags struct {
	phenomena []string
	nominal   float64
	exclusive bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.phenomena, "phenomenon", "p", nil, "Phenomena to detect (swell, sag, harmonic)")
	cmd.Flags().Float64Var(&f.nominal, "nominal", 0, "Nominal voltage (defaults to config)")
	cmd.Flags().BoolVar(&f.exclusive, "exclusive", false, "Resolve overlapping phenomena to a single label")
}

func (f *analysisFlags) params(cmd *cobra.Command) (usecase.AnalyzeParams, error) {
	var p usecase.AnalyzeParams
	for _, name := range f.phenomena {
		ph, err := models.ParsePhenomenon(strings.TrimSpace(name))
		if err != nil {
			return p, err
		}
		p.Phenomena = append(p.Phenomena, ph)
	}
	if f.nominal < 0 {
		return p, fmt.Errorf("--nominal must be positive")
	}
	p.Nominal = f.nominal
	if cmd.Flags().Changed("exclusive") {
		ex := f.exclusive
		p.Exclusive = &ex
	}
	return p, nil
}
