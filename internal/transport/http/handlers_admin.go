// Package httptransport is the master's HTTP surface: liveness, a status
// view of leadership, breakers and worker health, a synchronous identify
// endpoint, and breaker administration.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scalematch/internal/cluster"
	"scalematch/internal/domain"
	"scalematch/internal/platform/metrics"
	"scalematch/internal/platform/middleware"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/circuit"
	"scalematch/pkg/platform/httputil"
	"scalematch/pkg/platform/middleware/requesttime"
	"scalematch/pkg/requestcontext"
)

const (
	HealthPath   = "/health"
	StatusPath   = "/status"
	IdentifyPath = "/v1/identify"
	ResetPath    = "/admin/breakers/{workerID}/reset"
)

// Orchestrator runs identifications and exposes its breakers.
type Orchestrator interface {
	Identify(ctx context.Context, req domain.MatchRequest) (*domain.MatchResult, error)
	Breakers() []circuit.Snapshot
	ResetBreaker(workerID string) bool
}

// Leadership reports the state of this master's election.
type Leadership interface {
	Identity() string
	IsLeader() bool
	Holder(ctx context.Context) (string, error)
}

// WorkerHealth reports the last polled health of every worker.
type WorkerHealth interface {
	Snapshot() []cluster.WorkerHealth
}

// LeaderStatus is the leadership section of the status view.
type LeaderStatus struct {
	Identity string `json:"identity"`
	IsLeader bool   `json:"isLeader"`
	Holder   string `json:"holder"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Leader   LeaderStatus           `json:"leader"`
	Shards   []cluster.Member       `json:"shards"`
	Breakers []circuit.Snapshot     `json:"breakers"`
	Workers  []cluster.WorkerHealth `json:"workers"`
}

// AdminHandler serves the master endpoints.
type AdminHandler struct {
	orchestrator Orchestrator
	leadership   Leadership
	workers      WorkerHealth
	members      []cluster.Member
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewAdminHandler creates the master handler. members is the static shard
// membership shown on the status view.
func NewAdminHandler(
	orchestrator Orchestrator,
	leadership Leadership,
	workers WorkerHealth,
	members []cluster.Member,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *AdminHandler {
	return &AdminHandler{
		orchestrator: orchestrator,
		leadership:   leadership,
		workers:      workers,
		members:      members,
		logger:       logger,
		metrics:      metrics,
	}
}

// Register registers the master routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(requesttime.Middleware)

	adminRouter.Get(HealthPath, h.handleHealth)
	adminRouter.Get(StatusPath, h.handleStatus)
	adminRouter.With(middleware.ContentTypeJSON, middleware.LatencyMiddleware(h.metrics, IdentifyPath)).
		Post(IdentifyPath, h.handleIdentify)
	adminRouter.Post(ResetPath, h.handleResetBreaker)

	r.Mount("/", adminRouter)
}

func (h *AdminHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Shards:   h.members,
		Breakers: h.orchestrator.Breakers(),
		Workers:  []cluster.WorkerHealth{},
	}
	if resp.Shards == nil {
		resp.Shards = []cluster.Member{}
	}
	if h.workers != nil {
		resp.Workers = h.workers.Snapshot()
	}
	if h.leadership != nil {
		resp.Leader.Identity = h.leadership.Identity()
		resp.Leader.IsLeader = h.leadership.IsLeader()
		holder, err := h.leadership.Holder(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "failed to read lease holder", "error", err)
			resp.Leader.Error = "lease store unavailable"
		}
		resp.Leader.Holder = holder
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleIdentify runs one identification synchronously. A missing traceId is
// taken from X-Trace-ID, then from the request id.
func (h *AdminHandler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[domain.MatchRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.TraceID == "" {
		req.TraceID = requestcontext.TraceID(ctx)
	}
	if req.TraceID == "" {
		req.TraceID = middleware.GetRequestID(ctx)
	}
	ctx = requestcontext.WithTraceID(ctx, req.TraceID)

	result, err := h.orchestrator.Identify(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "identify rejected",
			"request_id", middleware.GetRequestID(ctx),
			"trace_id", req.TraceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if !h.orchestrator.ResetBreaker(workerID) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no breaker for worker %q", workerID))
		return
	}
	h.logger.InfoContext(r.Context(), "breaker reset by operator", "worker_id", workerID)
	w.WriteHeader(http.StatusNoContent)
}
