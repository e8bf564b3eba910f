package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for template event application.
type Metrics struct {
	// Events applied to a shard index by op
	Applied *prometheus.CounterVec

	// Events discarded as invalid per shard
	Discarded *prometheus.CounterVec

	// Failed polls of the template topics
	PollErrors prometheus.Counter
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Applied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_template_events_applied_total",
			Help: "Template events applied to a shard index by op",
		}, []string{"shard", "op"}),

		Discarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_template_events_discarded_total",
			Help: "Template events discarded as invalid",
		}, []string{"shard"}),

		PollErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scalematch_template_event_poll_errors_total",
			Help: "Failed polls of the template topics",
		}),
	}
}

// IncrementApplied counts one applied event.
func (m *Metrics) IncrementApplied(shardID, op string) {
	if m != nil {
		m.Applied.WithLabelValues(shardID, op).Inc()
	}
}

// IncrementDiscarded counts one discarded event.
func (m *Metrics) IncrementDiscarded(shardID string) {
	if m != nil {
		m.Discarded.WithLabelValues(shardID).Inc()
	}
}

func (m *Metrics) IncrementPollErrors() {
	if m != nil {
		m.PollErrors.Inc()
	}
}
