package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSample("simulated")
	r.RecordSample("simulated")
	r.RecordEvents("swell", 4)
	r.RecordDropped()
	r.SetRunning(true)

	if got := testutil.ToFloat64(r.samples.WithLabelValues("simulated")); got != 2 {
		t.Fatalf("samples = %v", got)
	}
	if got := testutil.ToFloat64(r.events.WithLabelValues("swell")); got != 4 {
		t.Fatalf("events = %v", got)
	}
	if got := testutil.ToFloat64(r.running); got != 1 {
		t.Fatalf("running = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("gather: %d %v", n, err)
	}
}
