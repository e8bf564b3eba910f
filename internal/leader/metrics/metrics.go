package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for lease-based leader election.
type Metrics struct {
	// 1 while this process holds the lease
	IsLeader *prometheus.GaugeVec

	// Leadership changes by direction (started, stopped)
	Transitions *prometheus.CounterVec

	// Failed store calls by operation
	StoreErrors *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		IsLeader: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scalematch_leader_is_leader",
			Help: "Whether this process currently holds the named lease",
		}, []string{"lease"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_leader_transitions_total",
			Help: "Leadership transitions by lease and direction",
		}, []string{"lease", "direction"}),

		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scalematch_leader_store_errors_total",
			Help: "Lease store failures by lease and operation",
		}, []string{"lease", "op"}),
	}
}

// SetLeader records whether the lease is held.
func (m *Metrics) SetLeader(lease string, leading bool) {
	if m == nil {
		return
	}
	v := 0.0
	if leading {
		v = 1
	}
	m.IsLeader.WithLabelValues(lease).Set(v)
	direction := "stopped"
	if leading {
		direction = "started"
	}
	m.Transitions.WithLabelValues(lease, direction).Inc()
}

// IncrementStoreError records a failed store call.
func (m *Metrics) IncrementStoreError(lease, op string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(lease, op).Inc()
	}
}
