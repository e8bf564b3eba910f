package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scalematch/internal/domain"
	"scalematch/internal/platform/metrics"
	"scalematch/internal/platform/middleware"
	"scalematch/internal/worker/rpc"
	"scalematch/pkg/platform/httputil"
)

// Service is the worker matching surface.
type Service interface {
	Match(ctx context.Context, req rpc.MatchRequest) ([]domain.Candidate, error)
	Health() rpc.HealthResponse
}

// Handler serves the worker RPC endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
}

// New creates a new worker Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}

// Register registers the worker routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	workerRouter := chi.NewRouter()
	workerRouter.Use(middleware.Recovery(h.logger))
	workerRouter.Use(middleware.RequestID)
	workerRouter.Use(middleware.ContentTypeJSON)
	workerRouter.With(middleware.LatencyMiddleware(h.metrics, rpc.MatchPath)).Post(rpc.MatchPath, h.handleMatch)
	workerRouter.Get(rpc.HealthPath, h.handleHealth)

	r.Mount("/", workerRouter)
}

// handleMatch runs a probe against one hosted shard. The caller's deadline
// arrives through the request context.
func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[rpc.MatchRequest](w, r, h.logger)
	if !ok {
		return
	}

	candidates, err := h.service.Match(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	httputil.WriteJSON(w, http.StatusOK, rpc.MatchResponse{ShardID: req.ShardID, Candidates: candidates})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Health())
}
