package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements repository.Metrics on Prometheus collectors.
type Recorder struct {
	samples *prometheus.CounterVec
	errors  *prometheus.CounterVec
	events  *prometheus.CounterVec
	dropped prometheus.Counter
	running prometheus.Gauge
	latency *prometheus.HistogramVec
}

// New registers the recorder's collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_samples_acquired_total",
			Help: "Samples appended to the acquisition log",
		}, []string{"source"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_events_detected_total",
			Help: "Confirmed events per phenomenon",
		}, []string{"phenomenon"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_samples_dropped_total",
			Help: "Samples dropped because the publish buffer was full",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pq_acquisition_running",
			Help: "1 while an acquisition run is active",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pq_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(r.samples, r.errors, r.events, r.dropped, r.running, r.latency)
	return r
}

func (r *Recorder) RecordSample(source string) {
	r.samples.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordEvents(phenomenon string, count int) {
	r.events.WithLabelValues(phenomenon).Add(float64(count))
}

func (r *Recorder) RecordDropped() {
	r.dropped.Inc()
}

func (r *Recorder) SetRunning(on bool) {
	if on {
		r.running.Set(1)
		return
	}
	r.running.Set(0)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

func (Nop) RecordSample(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordEvents(string, int) {}
func (Nop) RecordDropped() {}
func (Nop) SetRunning(bool) {}
func (Nop) RecordLatency(string, float64) {}
