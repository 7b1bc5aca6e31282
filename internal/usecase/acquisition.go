package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/domain/service"
	mid "PQAnalyzer/internal/middleware"
	"PQAnalyzer/internal/services/samplelog"
	applogger "PQAnalyzer/pkg/logger"
)

// SourceFactory builds a fresh sample source for one acquisition.
type SourceFactory func() (domrepo.SampleSource, error)

type AcquisitionConfig struct {
	LockPath   string
	Interval   time.Duration
	BufferSize int
	// DefaultSource is used when Start gets an empty name.
	DefaultSource string
}

// Acquisition owns the sampling session. One tick reads one raw value; a
// bounded channel hands it to a writer that appends to the sample log and
// offers it to the publish pipeline. Samples are kept raw and calibrated on read.
type Acquisition struct {
	cfg     AcquisitionConfig
	sources map[string]SourceFactory
	store   domrepo.RunStore
	calib   service.Calibrator
	pipe    *mid.SamplePipeline
	metrics domrepo.Metrics
	l       *applogger.Logger

	log *samplelog.Log

	mu      sync.Mutex
	sess    *session
	lastErr string
	// pending is a stopped run whose save failed. Stop and Start retry it.
	pending *models.Run
}

type session struct {
	runID     string
	source    string
	startedAt time.Time
	src       domrepo.SampleSource
	lock      *flock.Flock
	cancel    context.CancelFunc
	done      chan struct{}
	dropped   atomic.Int64

	errMu sync.Mutex
	err   error
}

func (s *session) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *session) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func NewAcquisition(
	cfg AcquisitionConfig,
	sources map[string]SourceFactory,
	store domrepo.RunStore,
	calib service.Calibrator,
	pipe *mid.SamplePipeline,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Acquisition {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Acquisition{
		cfg:     cfg,
		sources: sources,
		store:   store,
		calib:   calib,
		pipe:    pipe,
		metrics: metrics,
		l:       l.With(applogger.String("component", "acquisition")),
		log:     samplelog.New(),
	}
}

// Sources lists the registered source names.
func (a *Acquisition) Sources() []string {
	out := make([]string, 0, len(a.sources))
	for name := range a.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Start opens the source and launches the sampling loop. The loop outlives
// ctx; only Stop ends it.
func (a *Acquisition) Start(ctx context.Context, source string) (models.AcquisitionStatus, error) {
	if source == "" {
		source = a.cfg.DefaultSource
	}
	factory, ok := a.sources[source]
	if !ok {
		return models.AcquisitionStatus{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess != nil {
		return models.AcquisitionStatus{}, fmt.Errorf("start: %w", ErrAcquisitionRunning)
	}
	if a.pending != nil {
		if _, err := a.persistPending(ctx); err != nil {
			return models.AcquisitionStatus{}, fmt.Errorf("start: %w", err)
		}
	}

	lock, err := a.acquireLock()
	if err != nil {
		return models.AcquisitionStatus{}, err
	}

	src, err := factory()
	if err == nil {
		err = src.Open(ctx)
	}
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		a.metrics.RecordError("acquisition_open")
		return models.AcquisitionStatus{}, fmt.Errorf("open source %s: %w", source, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		runID:     uuid.NewString(),
		source:    src.Name(),
		startedAt: time.Now().UTC(),
		src:       src,
		lock:      lock,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	a.log.Reset()
	a.sess = s
	a.lastErr = ""

	if a.pipe != nil {
		// Stop drains the pipeline, so it does not share the loop's context.
		a.pipe.Start(context.Background())
	}

	ch := make(chan models.Sample, a.cfg.BufferSize)
	go a.produce(loopCtx, s, ch)
	go a.write(s, ch)

	a.metrics.SetRunning(true)
	a.l.Info("acquisition started",
		applogger.String("run_id", s.runID),
		applogger.String("source", s.source),
		applogger.Duration("interval_ms", a.cfg.Interval),
	)
	return a.statusLocked(), nil
}

func (a *Acquisition) acquireLock() (*flock.Flock, error) {
	if a.cfg.LockPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(a.cfg.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire acquisition lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s held by another process: %w", a.cfg.LockPath, ErrAcquisitionRunning)
	}
	return lock, nil
}

// produce reads one value per tick. A read error ends the session without retry.
func (a *Acquisition) produce(ctx context.Context, s *session, out chan<- models.Sample) {
	defer close(out)
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			raw, err := s.src.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.fail(err)
				a.metrics.RecordError("acquisition_read")
				a.l.Error("acquisition stopped on read error",
					applogger.String("run_id", s.runID),
					applogger.Error(err),
				)
				return
			}
			smp := models.Sample{T: now.Sub(s.startedAt).Seconds(), V: raw}
			select {
			case out <- smp:
			default:
				s.dropped.Add(1)
				a.metrics.RecordError("acquisition_buffer_full")
			}
		}
	}
}

func (a *Acquisition) write(s *session, in <-chan models.Sample) {
	defer close(s.done)
	for smp := range in {
		a.log.Append(smp)
		a.metrics.RecordSample(s.source)
		if a.pipe != nil {
			a.pipe.Offer(models.RawSample{
				RunID: s.runID,
				T:     smp.T,
				V:     a.calib.Apply(smp.V),
				Raw:   smp.V,
			})
		}
	}
}

// Stop ends the loop, calibrates the logged samples and persists them as a run.
// It also persists after a fail-stop. When the save fails the run is kept and
// the next Stop retries it.
func (a *Acquisition) Stop(ctx context.Context) (models.RunSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.sess
	if s == nil {
		if a.pending != nil {
			return a.persistPending(ctx)
		}
		return models.RunSummary{}, fmt.Errorf("stop: %w", ErrAcquisitionIdle)
	}

	s.cancel()
	<-s.done
	if err := s.src.Close(); err != nil {
		a.l.Warn("close sample source", applogger.String("source", s.source), applogger.Error(err))
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			a.l.Warn("release acquisition lock", applogger.Error(err))
		}
	}
	if a.pipe != nil {
		if err := a.pipe.Stop(ctx); err != nil {
			a.l.Warn("sample pipeline stop", applogger.Error(err))
		}
	}
	a.sess = nil
	a.metrics.SetRunning(false)
	if err := s.failure(); err != nil {
		a.lastErr = err.Error()
	}

	raw, _ := a.log.Snapshot()
	a.pending = &models.Run{
		ID:     s.runID,
		Source: s.source,
		Series: a.calibrate(raw),
	}
	a.l.Info("acquisition stopped",
		applogger.String("run_id", s.runID),
		applogger.Int("samples", len(raw)),
		applogger.Int64("dropped", s.dropped.Load()),
	)
	return a.persistPending(ctx)
}

// persistPending saves the stopped run. The caller holds a.mu.
func (a *Acquisition) persistPending(ctx context.Context) (models.RunSummary, error) {
	run := a.pending
	run.SavedAt = time.Now().UTC()
	start := time.Now()
	if err := a.store.Save(ctx, run); err != nil {
		a.metrics.RecordError("run_save")
		err = fmt.Errorf("persist run %s: %w", run.ID, err)
		a.lastErr = err.Error()
		a.l.Error("run not saved", applogger.String("run_id", run.ID), applogger.Error(err))
		return models.RunSummary{}, err
	}
	a.metrics.RecordLatency("run_save", time.Since(start).Seconds())
	a.pending = nil
	return Summarize(run), nil
}

// Status reports the current session, or the last failure when idle.
func (a *Acquisition) Status() models.AcquisitionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

func (a *Acquisition) statusLocked() models.AcquisitionStatus {
	s := a.sess
	if s == nil {
		st := models.AcquisitionStatus{LastError: a.lastErr}
		if a.pending != nil {
			st.RunID = a.pending.ID
			st.Source = a.pending.Source
			st.Samples = len(a.pending.Series)
		}
		return st
	}
	st := models.AcquisitionStatus{
		Running:   !s.finished(),
		RunID:     s.runID,
		Source:    s.source,
		StartedAt: s.startedAt,
		Samples:   a.log.Len(),
		Dropped:   s.dropped.Load(),
	}
	if err := s.failure(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// Live returns the calibrated samples of the last width seconds. Zero width returns everything.
func (a *Acquisition) Live(width float64) models.Series {
	if width <= 0 {
		raw, _ := a.log.Snapshot()
		return a.calibrate(raw)
	}
	return a.calibrate(a.log.Tail(width))
}

// Since returns the calibrated samples appended after cp.
func (a *Acquisition) Since(cp samplelog.Checkpoint) (models.Series, samplelog.Checkpoint) {
	raw, next := a.log.Since(cp)
	return a.calibrate(raw), next
}

// Checkpoint marks the current end of the log.
func (a *Acquisition) Checkpoint() samplelog.Checkpoint {
	return a.log.Checkpoint()
}

func (a *Acquisition) calibrate(raw models.Series) models.Series {
	out := make(models.Series, len(raw))
	for i, s := range raw {
		out[i] = models.Sample{T: s.T, V: a.calib.Apply(s.V)}
	}
	return out
}

// Shutdown stops a running session and persists it.
func (a *Acquisition) Shutdown(ctx context.Context) error {
	if _, err := a.Stop(ctx); err != nil && !errors.Is(err, ErrAcquisitionIdle) {
		return err
	}
	return nil
}
