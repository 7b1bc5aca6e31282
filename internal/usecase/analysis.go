package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/domain/service"
	"PQAnalyzer/internal/services/detection"
	"PQAnalyzer/pkg/cache"
	applogger "PQAnalyzer/pkg/logger"
)

type AnalyzerConfig struct {
	Thresholds  models.Thresholds
	Phenomena   []models.Phenomenon
	Exclusive   bool
	CacheTTL    time.Duration
	WindowWidth float64
}

// AnalyzeParams override the configured defaults for one request. Zero values keep the defaults.
type AnalyzeParams struct {
	Phenomena []models.Phenomenon
	Exclusive *bool
	Nominal   float64
}

// Analyzer runs detection over stored runs, ad-hoc series and the live tail.
// Stored-run results are cached by run id and options.
type Analyzer struct {
	cfg      AnalyzerConfig
	runs     domrepo.RunStore
	resolver service.ClassifierResolver
	cache    cache.Service
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewAnalyzer(cfg AnalyzerConfig, runs domrepo.RunStore, resolver service.ClassifierResolver, c cache.Service, metrics domrepo.Metrics, l *applogger.Logger) *Analyzer {
	if cfg.Thresholds == (models.Thresholds{}) {
		cfg.Thresholds = models.DefaultThresholds()
	}
	if len(cfg.Phenomena) == 0 {
		cfg.Phenomena = []models.Phenomenon{models.Swell}
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = detection.DefaultWindowWidth
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Analyzer{cfg: cfg, runs: runs, resolver: resolver, cache: c, metrics: metrics, l: l}
}

func (a *Analyzer) WindowWidth() float64 { return a.cfg.WindowWidth }

// Options merges p over the configured defaults.
func (a *Analyzer) Options(p AnalyzeParams) detection.AnalyzeOptions {
	opts := detection.AnalyzeOptions{
		Thresholds: a.cfg.Thresholds,
		Phenomena:  a.cfg.Phenomena,
		Exclusive:  a.cfg.Exclusive,
	}
	if len(p.Phenomena) > 0 {
		opts.Phenomena = p.Phenomena
	}
	if p.Exclusive != nil {
		opts.Exclusive = *p.Exclusive
	}
	if p.Nominal > 0 {
		opts.Thresholds.Nominal = p.Nominal
	}
	return opts
}

// Analyze runs every configured phenomenon over series.
func (a *Analyzer) Analyze(ctx context.Context, series models.Series, p AnalyzeParams) (models.Analysis, error) {
	start := time.Now()
	an, err := detection.RunAll(ctx, series, a.resolver, a.Options(p))
	if err != nil {
		a.metrics.RecordError("analysis")
		return models.Analysis{}, err
	}
	a.metrics.RecordLatency("analysis", time.Since(start).Seconds())
	for ph, n := range an.Totals {
		a.metrics.RecordEvents(string(ph), n)
	}
	return an, nil
}

// AnalyzeRun analyzes a stored run, serving repeated requests from the cache.
func (a *Analyzer) AnalyzeRun(ctx context.Context, runID string, p AnalyzeParams) (models.Analysis, error) {
	key, err := a.cacheKey(runID, p)
	if err != nil {
		return models.Analysis{}, err
	}
	if a.cache != nil {
		var cached models.Analysis
		err := a.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.l.Warn("analysis cache read", applogger.String("key", key), applogger.Error(err))
		}
	}

	run, err := a.runs.Get(ctx, runID)
	if err != nil {
		return models.Analysis{}, err
	}
	return a.analyzeRun(ctx, run, p, key)
}

func (a *Analyzer) analyzeRun(ctx context.Context, run *models.Run, p AnalyzeParams, key string) (models.Analysis, error) {
	an, err := a.Analyze(ctx, run.Series, p)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("analyze run %s: %w", run.ID, err)
	}
	an.RunID = run.ID
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, an, a.cfg.CacheTTL); err != nil {
			a.l.Warn("analysis cache write", applogger.String("key", key), applogger.Error(err))
		}
	}
	return an, nil
}

// Report loads a run together with its (possibly cached) analysis.
func (a *Analyzer) Report(ctx context.Context, runID string, p AnalyzeParams) (*models.Run, models.Analysis, error) {
	run, err := a.runs.Get(ctx, runID)
	if err != nil {
		return nil, models.Analysis{}, err
	}
	key, err := a.cacheKey(runID, p)
	if err != nil {
		return nil, models.Analysis{}, err
	}
	if a.cache != nil {
		var cached models.Analysis
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			return run, cached, nil
		}
	}
	an, err := a.analyzeRun(ctx, run, p, key)
	if err != nil {
		return nil, models.Analysis{}, err
	}
	return run, an, nil
}

// Playback cuts the window at frame out of an analyzed run. Non-positive width uses the configured width.
func (a *Analyzer) Playback(ctx context.Context, runID string, frame, width float64, p AnalyzeParams) (models.PlaybackView, error) {
	run, an, err := a.Report(ctx, runID, p)
	if err != nil {
		return models.PlaybackView{}, err
	}
	if width <= 0 {
		width = a.cfg.WindowWidth
	}
	return detection.View(run.Series, an, frame, width), nil
}

// Live analyzes the calibrated tail of the running acquisition.
func (a *Analyzer) Live(ctx context.Context, status models.AcquisitionStatus, tail models.Series, p AnalyzeParams) (models.LiveView, error) {
	view := models.LiveView{Status: status, Samples: tail}
	if len(tail) > 0 {
		view.Start = tail[0].T
		view.End = tail[len(tail)-1].T
	}
	an, err := a.Analyze(ctx, tail, p)
	if err != nil {
		return models.LiveView{}, err
	}
	an.RunID = status.RunID
	view.Analysis = an
	return view, nil
}

// Invalidate drops every cached analysis of a run.
func (a *Analyzer) Invalidate(ctx context.Context, runID string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.DeleteByPattern(ctx, cache.Key("analysis", runID, "*"))
}

func (a *Analyzer) cacheKey(runID string, p AnalyzeParams) (string, error) {
	h, err := cache.HashKey(a.Options(p))
	if err != nil {
		return "", err
	}
	return cache.Key("analysis", runID, h), nil
}
