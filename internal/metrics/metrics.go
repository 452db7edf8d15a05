// Package metrics provides Prometheus collectors for the recommender.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricHTTPRequestsTotal   = "smarttrip_http_requests_total"
	MetricHTTPRequestDuration = "smarttrip_http_request_duration_seconds"
	MetricRankingBatchSize    = "smarttrip_ranking_batch_size"
	MetricFeedbackTotal       = "smarttrip_feedback_total"
	MetricPlaceFetchTotal     = "smarttrip_place_fetch_total"
)

// Metrics contains the Prometheus collectors. All operations are
// thread-safe.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rankingBatchSize    prometheus.Histogram
	feedbackTotal       *prometheus.CounterVec
	placeFetchTotal     *prometheus.CounterVec
}

// New creates the collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "path", "status"},
		),
		rankingBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRankingBatchSize,
				Help:    "Number of candidate places scored per recommendation",
				Buckets: []float64{5, 10, 25, 50, 100, 150, 250},
			},
		),
		feedbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedbackTotal,
				Help: "Total number of feedback events by action and training outcome",
			},
			[]string{"action", "trained"},
		),
		placeFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPlaceFetchTotal,
				Help: "Total number of place source fetches by mode and data source",
			},
			[]string{"mode", "source"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.rankingBatchSize,
		m.feedbackTotal,
		m.placeFetchTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}

// ObserveRankingBatch records how many candidates one request scored.
func (m *Metrics) ObserveRankingBatch(size int) {
	m.rankingBatchSize.Observe(float64(size))
}

// IncFeedback counts a feedback event and whether it trained the model.
func (m *Metrics) IncFeedback(action string, trained bool) {
	outcome := "no"
	if trained {
		outcome = "yes"
	}
	m.feedbackTotal.WithLabelValues(action, outcome).Inc()
}

// IncPlaceFetch counts a completed candidate fetch by search mode and
// the data source that served it (osm, demo or osm+demo).
func (m *Metrics) IncPlaceFetch(mode, source string) {
	m.placeFetchTotal.WithLabelValues(mode, source).Inc()
}
