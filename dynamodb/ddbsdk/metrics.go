package ddbsdk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts executed requests. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewMetrics registers the request metrics with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamate_requests_total",
				Help: "Total number of DynamoDB requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynamate_request_duration_seconds",
				Help:    "DynamoDB request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamate_items_returned_total",
				Help: "Total number of items returned by operation",
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) observe(operation string, took time.Duration, items int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(took.Seconds())
	if err == nil {
		m.items.WithLabelValues(operation).Add(float64(items))
	}
}
