package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides Prometheus metrics for the request lifecycle. It is
// safe for concurrent use; all recording methods are no-ops on a nil
// receiver, so an unconfigured client carries no metrics overhead.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	stageFailures    *prometheus.CounterVec
}

// NewCollector creates a collector on the default registerer.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	return &Collector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3exec_requests_total",
				Help: "Total number of requests submitted, by terminal outcome",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3exec_request_duration_seconds",
				Help:    "Duration from submit to terminal finish in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "s3exec_requests_in_flight",
				Help: "Number of requests currently between submit and finish",
			},
			[]string{"method"},
		),
		stageFailures: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3exec_stage_failures_total",
				Help: "Failed requests by the pipeline stage that produced the error",
			},
			[]string{"stage"},
		),
	}
}

func (m *Collector) requestStarted(method string) {
	if m == nil {
		return
	}

	m.requestsInFlight.WithLabelValues(method).Inc()
}

func (m *Collector) requestFinished(method string, stage State, err error, d time.Duration) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		m.stageFailures.WithLabelValues(stage.String()).Inc()
	}

	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
	m.requestsInFlight.WithLabelValues(method).Dec()
}
