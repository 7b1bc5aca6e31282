package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups producer and consumer instrumentation. A nil
// *Collectors records nothing.
type Collectors struct {
	published  *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	publishDur *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
	handled    *prometheus.CounterVec
	handleDur  *prometheus.HistogramVec
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_kafka_published_messages_total",
			Help: "Messages written to Kafka",
		}, []string{"topic", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_kafka_published_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic"}),
		publishDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pq_kafka_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pq_kafka_consumer_queue_depth",
			Help: "Messages waiting for a worker",
		}, []string{"topic"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pq_kafka_consumer_messages_total",
			Help: "Messages handled by consumers",
		}, []string{"topic", "result"}),
		handleDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pq_kafka_consumer_handle_seconds",
			Help:    "Handling time per message",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
	reg.MustRegister(c.published, c.bytes, c.publishDur, c.queueDepth, c.handled, c.handleDur)
	return c
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collectors) observePublish(topic string, n int, bytes int64, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.published.WithLabelValues(topic, result(err)).Add(float64(n))
	c.bytes.WithLabelValues(topic).Add(float64(bytes))
	c.publishDur.WithLabelValues(topic).Observe(d.Seconds())
}

func (c *Collectors) observeQueue(topic string, depth int) {
	if c == nil {
		return
	}
	c.queueDepth.WithLabelValues(topic).Set(float64(depth))
}

func (c *Collectors) observeHandle(topic string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.handled.WithLabelValues(topic, result(err)).Inc()
	c.handleDur.WithLabelValues(topic).Observe(d.Seconds())
}
