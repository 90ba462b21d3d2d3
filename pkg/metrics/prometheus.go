package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	advisorRequests *prometheus.CounterVec
	messagesSent    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	advisorLatency  *prometheus.HistogramVec
	proposals       *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		advisorRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinmentor_advisor_requests_total",
				Help: "Total number of advisor dispatches by outcome",
			},
			[]string{"advisor", "provider", "status"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinmentor_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinmentor_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinmentor_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinmentor_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		advisorLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinmentor_advisor_duration_seconds",
				Help:    "Duration of advisor round trips in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"advisor", "provider"},
		),
		proposals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinmentor_proposals_extracted_total",
				Help: "Total number of trade proposals extracted from advisor replies",
			},
			[]string{"advisor", "action"},
		),
	}
}

// RecordAdvisorRequest records a single advisor dispatch outcome.
func (r *Recorder) RecordAdvisorRequest(advisor, provider, status string) {
	r.advisorRequests.WithLabelValues(advisor, provider, status).Inc()
}

// RecordAdvisorLatency records an advisor round trip duration in seconds.
func (r *Recorder) RecordAdvisorLatency(advisor, provider string, seconds float64) {
	r.advisorLatency.WithLabelValues(advisor, provider).Observe(seconds)
}

// RecordProposal records an extracted trade proposal.
func (r *Recorder) RecordProposal(advisor, action string) {
	r.proposals.WithLabelValues(advisor, action).Inc()
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
