package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for queue-driven identification.
type Metrics struct {
	// Queued requests by disposition (published, rejected, discarded)
	Requests *prometheus.CounterVec

	// Identifications currently running from the queue
	InFlight prometheus.Gauge

	// Failed polls of the request topic
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
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_intake_requests_total",
			Help: "Queued match requests by disposition (published, rejected, discarded)",
		}, []string{"disposition"}),

		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "scalematch_intake_in_flight",
			Help: "Identifications currently running from the queue",
		}),

		PollErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scalematch_intake_poll_errors_total",
			Help: "Failed polls of the request topic",
		}),
	}
}

// IncrementRequests counts one request by disposition.
func (m *Metrics) IncrementRequests(disposition string) {
	if m != nil {
		m.Requests.WithLabelValues(disposition).Inc()
	}
}

// AddInFlight moves the in-flight gauge by delta.
func (m *Metrics) AddInFlight(delta float64) {
	if m != nil {
		m.InFlight.Add(delta)
	}
}

func (m *Metrics) IncrementPollErrors() {
	if m != nil {
		m.PollErrors.Inc()
	}
}
