package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/domain/service"
)

type memStore struct {
	mu   sync.Mutex
	runs map[string]models.Run
	// saveErrs fail the next saves in order.
	saveErrs []error
}

func newMemStore() *memStore { return &memStore{runs: map[string]models.Run{}} }

func (m *memStore) Save(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		return err
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domrepo.ErrRunNotFound)
	}
	return &run, nil
}

func (m *memStore) List(_ context.Context, q models.RunQuery) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if q.Since.IsZero() || r.SavedAt.After(q.Since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return domrepo.ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

func (m *memStore) Close() error { return nil }

// constClassifier predicts the same label for every row.
type constClassifier bool

func (c constClassifier) Predict(_ context.Context, rows [][2]float64) ([]bool, error) {
	out := make([]bool, len(rows))
	for i := range out {
		out[i] = bool(c)
	}
	return out, nil
}

type countingResolver struct {
	calls atomic.Int32
	clf   map[models.Phenomenon]service.Classifier
}

func (r *countingResolver) Classifier(_ context.Context, p models.Phenomenon) (service.Classifier, error) {
	r.calls.Add(1)
	c, ok := r.clf[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, service.ErrModelUnavailable)
	}
	return c, nil
}

func allTrue(ps ...models.Phenomenon) *countingResolver {
	r := &countingResolver{clf: map[models.Phenomenon]service.Classifier{}}
	for _, p := range ps {
		r.clf[p] = constClassifier(true)
	}
	return r
}

// scaleCalibrator multiplies raw readings.
type scaleCalibrator float64

func (s scaleCalibrator) Apply(raw float64) float64 { return raw * float64(s) }

var errSourceDead = errors.New("adc gone")

// scriptSource returns values in order, then fails or repeats the last one.
type scriptSource struct {
	mu        sync.Mutex
	values    []float64
	i         int
	failAtEnd bool
	opened    bool
	closed    bool
}

func (s *scriptSource) Name() string { return "script" }

func (s *scriptSource) Open(context.Context) error {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *scriptSource) Read(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.values) {
		if s.failAtEnd {
			return 0, errSourceDead
		}
		return s.values[len(s.values)-1], nil
	}
	v := s.values[s.i]
	s.i++
	return v, nil
}

func (s *scriptSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	samples []models.RawSample
}

func (p *recordingPublisher) PublishBatch(_ context.Context, s []models.RawSample) error {
	p.mu.Lock()
	p.samples = append(p.samples, s...)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []models.RawSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.RawSample(nil), p.samples...)
}

// pulse has strict peaks at indices 1 and 3, both inside the default band.
func pulse() models.Series {
	return models.Series{{T: 0, V: 220}, {T: 1, V: 250}, {T: 2, V: 220}, {T: 3, V: 250}, {T: 4, V: 220}}
}
