package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for shard-local matching.
type Metrics struct {
	// Match latency by shard and outcome
	MatchLatency *prometheus.HistogramVec

	// ANN hits dropped because their template was missing
	TemplatesMissing *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		MatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scalematch_matcher_match_duration_seconds",
			Help:    "Duration of shard-local hybrid matches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"shard", "outcome"}),

		TemplatesMissing: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_matcher_templates_missing_total",
			Help: "ANN hits dropped because the template was not cached",
		}, []string{"shard"}),
	}
}

// ObserveMatch records one match.
func (m *Metrics) ObserveMatch(shard, outcome string, d time.Duration) {
	if m != nil {
		m.MatchLatency.WithLabelValues(shard, outcome).Observe(d.Seconds())
	}
}

// IncrementDropped records a candidate dropped for a missing template.
func (m *Metrics) IncrementDropped(shard string) {
	if m != nil {
		m.TemplatesMissing.WithLabelValues(shard).Inc()
	}
}
