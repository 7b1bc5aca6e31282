package usecase

import (
	"context"
	"fmt"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/report"
	"PQAnalyzer/internal/services/features"
	applogger "PQAnalyzer/pkg/logger"
)

// Runs serves the stored acquisitions.
type Runs struct {
	store    domrepo.RunStore
	analyzer *Analyzer
	l        *applogger.Logger
}

func NewRuns(store domrepo.RunStore, analyzer *Analyzer, l *applogger.Logger) *Runs {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Runs{store: store, analyzer: analyzer, l: l}
}

func (r *Runs) List(ctx context.Context, q models.RunQuery) ([]models.RunSummary, error) {
	runs, err := r.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.RunSummary, len(runs))
	for i := range runs {
		out[i] = Summarize(&runs[i])
	}
	return out, nil
}

func (r *Runs) Get(ctx context.Context, id string) (models.RunSummary, error) {
	run, err := r.store.Get(ctx, id)
	if err != nil {
		return models.RunSummary{}, err
	}
	return Summarize(run), nil
}

// Load returns the run with its samples.
func (r *Runs) Load(ctx context.Context, id string) (*models.Run, error) {
	return r.store.Get(ctx, id)
}

// Delete removes the run and its cached analyses.
func (r *Runs) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	if r.analyzer != nil {
		if err := r.analyzer.Invalidate(ctx, id); err != nil {
			r.l.Warn("invalidate cached analysis", applogger.String("run_id", id), applogger.Error(err))
		}
	}
	r.l.Info("run deleted", applogger.String("run_id", id))
	return nil
}

// Export renders the analyzed run in the requested format.
func (r *Runs) Export(ctx context.Context, id string, f report.Format, p AnalyzeParams) ([]byte, error) {
	run, an, err := r.analyzer.Report(ctx, id, p)
	if err != nil {
		return nil, err
	}
	b, err := report.Build(f, run, an)
	if err != nil {
		return nil, fmt.Errorf("export run %s: %w", id, err)
	}
	return b, nil
}

// Summarize computes the listing fields of a run.
func Summarize(run *models.Run) models.RunSummary {
	v := run.Series.Values()
	lo, hi := features.Extremes(v)
	return models.RunSummary{
		ID:       run.ID,
		Source:   run.Source,
		SavedAt:  run.SavedAt,
		Samples:  len(run.Series),
		Duration: run.Series.Duration(),
		MinV:     lo,
		MaxV:     hi,
		RMS:      features.RMS(v),
	}
}
