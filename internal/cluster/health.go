package cluster

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"scalematch/internal/worker/rpc"
)

const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	defaultHealthInterval = 5 * time.Second
	defaultHealthTimeout  = 2 * time.Second
	defaultMaxFailures    = 3
)

// HealthChecker fetches a worker's health report.
type HealthChecker interface {
	WorkerID() string
	Health(ctx context.Context) (rpc.HealthResponse, error)
}

// WorkerHealth tracks one worker. Copies are handed out; the monitor owns
// the originals.
type WorkerHealth struct {
	WorkerID         string            `json:"workerId"`
	Status           string            `json:"status"`
	LastCheck        time.Time         `json:"lastCheck"`
	LastHealthy      time.Time         `json:"lastHealthy,omitzero"`
	ConsecutiveFails int               `json:"consecutiveFails"`
	Shards           []rpc.ShardHealth `json:"shards,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// HealthMonitor polls every worker's health endpoint on an interval and
// marks a worker unhealthy after maxFailures consecutive failed checks.
type HealthMonitor struct {
	mu      sync.RWMutex
	workers map[string]*WorkerHealth

	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	clock       clockwork.Clock
	logger      *slog.Logger
}

// HealthOption configures a HealthMonitor.
type HealthOption func(*HealthMonitor)

func WithHealthInterval(d time.Duration) HealthOption {
	return func(h *HealthMonitor) {
		if d > 0 {
			h.interval = d
		}
	}
}

func WithHealthTimeout(d time.Duration) HealthOption {
	return func(h *HealthMonitor) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithMaxFailures(n int) HealthOption {
	return func(h *HealthMonitor) {
		if n > 0 {
			h.maxFailures = n
		}
	}
}

func WithHealthClock(c clockwork.Clock) HealthOption {
	return func(h *HealthMonitor) {
		h.clock = c
	}
}

func WithHealthLogger(logger *slog.Logger) HealthOption {
	return func(h *HealthMonitor) {
		h.logger = logger
	}
}

// NewHealthMonitor creates a stopped monitor.
func NewHealthMonitor(opts ...HealthOption) *HealthMonitor {
	h := &HealthMonitor{
		workers:     make(map[string]*WorkerHealth),
		interval:    defaultHealthInterval,
		timeout:     defaultHealthTimeout,
		maxFailures: defaultMaxFailures,
		clock:       clockwork.NewRealClock(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run checks every worker immediately and then on each tick until ctx is
// cancelled. workers is re-read on every round.
func (h *HealthMonitor) Run(ctx context.Context, workers func() []HealthChecker) {
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.InfoContext(ctx, "health monitor started", "interval", h.interval)
	h.CheckAll(ctx, workers())
	for {
		select {
		case <-ticker.Chan():
			h.CheckAll(ctx, workers())
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "health monitor stopped")
			return
		}
	}
}

// CheckAll runs one round of checks and forgets workers no longer listed.
func (h *HealthMonitor) CheckAll(ctx context.Context, workers []HealthChecker) {
	current := make(map[string]bool, len(workers))
	var wg sync.WaitGroup
	for _, w := range workers {
		current[w.WorkerID()] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.check(ctx, w)
		}()
	}
	wg.Wait()

	h.mu.Lock()
	for id := range h.workers {
		if !current[id] {
			delete(h.workers, id)
		}
	}
	h.mu.Unlock()
}

func (h *HealthMonitor) check(ctx context.Context, w HealthChecker) {
	id := w.WorkerID()
	h.mu.Lock()
	health, ok := h.workers[id]
	if !ok {
		health = &WorkerHealth{WorkerID: id, Status: StatusUnknown}
		h.workers[id] = health
	}
	h.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	report, err := w.Health(checkCtx)
	cancel()
	if err == nil && report.Status != StatusHealthy && report.Status != "ok" {
		err = errUnhealthyReport(report.Status)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = h.clock.Now()
	if err != nil {
		health.ConsecutiveFails++
		health.Error = err.Error()
		h.logger.WarnContext(ctx, "worker health check failed",
			"worker_id", id,
			"attempt", health.ConsecutiveFails,
			"max_failures", h.maxFailures,
			"error", err,
		)
		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			h.logger.ErrorContext(ctx, "worker marked unhealthy", "worker_id", id)
		}
		return
	}

	if health.Status == StatusUnhealthy {
		h.logger.InfoContext(ctx, "worker recovered", "worker_id", id)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = health.LastCheck
	health.Error = ""
	health.Shards = report.Shards
}

// Snapshot returns a copy of every tracked worker ordered by worker id.
func (h *HealthMonitor) Snapshot() []WorkerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]WorkerHealth, 0, len(h.workers))
	for _, w := range h.workers {
		c := *w
		c.Shards = slices.Clone(w.Shards)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b WorkerHealth) int { return strings.Compare(a.WorkerID, b.WorkerID) })
	return out
}

// Unavailable reports whether workerID is marked unhealthy. Workers that
// have not been checked yet are not unavailable.
func (h *HealthMonitor) Unavailable(workerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.workers[workerID]
	return ok && w.Status == StatusUnhealthy
}

type errUnhealthyReport string

func (e errUnhealthyReport) Error() string {
	return "worker reported status " + string(e)
}
