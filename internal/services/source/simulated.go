package source

import (
	"context"
	"sync"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/repository"
)

// Simulated replays the demo waveform as raw ADC volts, looping forever.
// Reads never block; the caller's ticker sets the pace.
type Simulated struct {
	offset float64
	scale  float64
	wave   []float64

	mu  sync.Mutex
	pos int
}

func NewSimulated(offset, scale float64, samples int) *Simulated {
	return &Simulated{
		offset: offset,
		scale:  scale,
		wave:   DemoSignal(samples, models.Phenomena...).Values(),
	}
}

func (s *Simulated) Name() string { return "simulated" }

// Open rewinds to the start of the waveform.
func (s *Simulated) Open(context.Context) error {
	s.mu.Lock()
	s.pos = 0
	s.mu.Unlock()
	return nil
}

func (s *Simulated) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	v := s.wave[s.pos]
	s.pos = (s.pos + 1) % len(s.wave)
	s.mu.Unlock()
	return s.offset + s.scale*v, nil
}

func (s *Simulated) Close() error { return nil }

var _ repository.SampleSource = (*Simulated)(nil)
