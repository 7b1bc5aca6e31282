package usecase

import (
	"context"
	"testing"
	"time"

	"PQAnalyzer/internal/domain/models"
)

func TestPlaybackSessionTickPause(t *testing.T) {
	p := NewPlaybackSession(pulse(), models.Analysis{}, 2, 1)
	if v := p.View(); v.Frame != 0 || v.End != 2 {
		t.Fatalf("initial view = %+v", v)
	}
	if v := p.Tick(); v.Frame != 1 || v.Start != 1 {
		t.Fatalf("after tick = %+v", v)
	}
	if !p.TogglePause() {
		t.Fatalf("expected paused")
	}
	if v := p.Tick(); v.Frame != 1 {
		t.Fatalf("paused tick moved frame to %v", v.Frame)
	}
	p.TogglePause()
	p.Seek(3)
	v := p.Tick()
	// frame 4 wraps on the 4 s period: start 0, end 2.
	if v.Frame != 4 || v.Start != 0 || v.End != 2 {
		t.Fatalf("wrapped view = %+v", v)
	}
	p.SetWidth(3)
	if v := p.View(); v.End != 3 {
		t.Fatalf("width not applied: %+v", v)
	}
}

func TestPlaybackSessionRunStops(t *testing.T) {
	p := NewPlaybackSession(pulse(), models.Analysis{}, 2, 1)
	var frames []float64
	err := p.Run(context.Background(), time.Millisecond, func(v models.PlaybackView) bool {
		frames = append(frames, v.Frame)
		return len(frames) < 3
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(frames) != 3 || frames[0] != 0 || frames[2] != 2 {
		t.Fatalf("frames = %v", frames)
	}
}
