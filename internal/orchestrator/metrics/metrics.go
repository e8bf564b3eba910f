package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for scatter-gather identification.
type Metrics struct {
	// End-to-end identification latency by result status
	RequestLatency *prometheus.HistogramVec

	// Per-shard call latency by outcome (ok, timeout, error, circuit_open)
	ShardLatency *prometheus.HistogramVec

	// Current breaker state per worker (0 closed, 1 open, 2 half_open)
	BreakerState *prometheus.GaugeVec

	// Breaker transitions per worker by target state
	BreakerTransitions *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scalematch_identify_duration_seconds",
			Help:    "Duration of identification requests by result status",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"status"}),

		ShardLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scalematch_shard_call_duration_seconds",
			Help:    "Duration of shard calls by shard and outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"shard", "outcome"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scalematch_worker_breaker_state",
			Help: "Circuit breaker state per worker: 0 closed, 1 open, 2 half_open",
		}, []string{"worker"}),

		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_worker_breaker_transitions_total",
			Help: "Circuit breaker transitions per worker by target state",
		}, []string{"worker", "to"}),
	}
}

// ObserveRequest records one identification.
func (m *Metrics) ObserveRequest(status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(status).Observe(d.Seconds())
	}
}

// ObserveShard records one shard call.
func (m *Metrics) ObserveShard(shard, outcome string, d time.Duration) {
	if m != nil {
		m.ShardLatency.WithLabelValues(shard, outcome).Observe(d.Seconds())
	}
}

// SetBreakerState records the current breaker state of a worker.
func (m *Metrics) SetBreakerState(worker string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(worker).Set(float64(state))
	}
}

// IncrementBreakerTransition records a breaker transition.
func (m *Metrics) IncrementBreakerTransition(worker, to string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(worker, to).Inc()
	}
}
