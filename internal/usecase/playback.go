package usecase

import (
	"context"
	"sync"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/services/detection"
)

// PlaybackSession walks a circular window over an analyzed series. It holds
// the cursor state that a viewer advances, pauses and resizes.
type PlaybackSession struct {
	mu       sync.Mutex
	series   models.Series
	analysis models.Analysis
	frame    float64
	width    float64
	step     float64
	paused   bool
}

// NewPlaybackSession starts at frame 0. step is how far one Tick advances.
func NewPlaybackSession(series models.Series, an models.Analysis, width, step float64) *PlaybackSession {
	if width <= 0 {
		width = detection.DefaultWindowWidth
	}
	if step <= 0 {
		step = 1
	}
	return &PlaybackSession{series: series, analysis: an, width: width, step: step}
}

// Tick advances the frame unless paused and returns the new view.
func (p *PlaybackSession) Tick() models.PlaybackView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.frame += p.step
	}
	return detection.View(p.series, p.analysis, p.frame, p.width)
}

// TogglePause flips the pause flag and returns the new state.
func (p *PlaybackSession) TogglePause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = !p.paused
	return p.paused
}

func (p *PlaybackSession) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *PlaybackSession) Seek(frame float64) {
	p.mu.Lock()
	p.frame = frame
	p.mu.Unlock()
}

func (p *PlaybackSession) SetWidth(width float64) {
	if width <= 0 {
		return
	}
	p.mu.Lock()
	p.width = width
	p.mu.Unlock()
}

func (p *PlaybackSession) Frame() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// View returns the window at the current frame without advancing.
func (p *PlaybackSession) View() models.PlaybackView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return detection.View(p.series, p.analysis, p.frame, p.width)
}

// Run calls fn with the current view, then ticks every interval until ctx ends
// or fn returns false.
func (p *PlaybackSession) Run(ctx context.Context, every time.Duration, fn func(models.PlaybackView) bool) error {
	if !fn(p.View()) {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !fn(p.Tick()) {
				return nil
			}
		}
	}
}
