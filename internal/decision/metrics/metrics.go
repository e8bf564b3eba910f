package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for match decisions.
type Metrics struct {
	// Decision outcomes by status
	DecisionOutcome *prometheus.CounterVec

	// Candidates returned per decision, after dedupe and truncation
	CandidatesReturned prometheus.Histogram

	// Final score of the top candidate, when there is one
	TopScore prometheus.Histogram
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_decision_outcomes_total",
			Help: "Total match decisions by status",
		}, []string{"status"}), // MATCH_FOUND, NO_MATCH, AMBIGUOUS, ERROR

		CandidatesReturned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scalematch_decision_candidates",
			Help:    "Number of candidates returned per decision",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),

		TopScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scalematch_decision_top_score",
			Help:    "Final score of the best candidate per decision",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveCandidates records how many candidates a decision returned and the
// best final score among them.
func (m *Metrics) ObserveCandidates(count, topScore int) {
	if m == nil {
		return
	}
	m.CandidatesReturned.Observe(float64(count))
	if count > 0 {
		m.TopScore.Observe(float64(topScore))
	}
}
