// Package worker hosts the shard indexes of one worker process and serves
// hybrid matches against them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"scalematch/internal/domain"
	"scalematch/internal/matcher"
	"scalematch/internal/shard"
	"scalematch/internal/worker/rpc"
	dErrors "scalematch/pkg/domain-errors"
)

// Service routes match requests to the matcher of the requested shard.
type Service struct {
	registry    *shard.Registry
	comparator  matcher.Comparator
	matcherOpts []matcher.Option
	logger      *slog.Logger

	// fixed after New
	shardIDs []string
	matchers map[string]*matcher.Matcher
}

// Option configures a Service.
type Option func(*Service)

// WithMatcherOptions is applied to every per-shard matcher.
func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(s *Service) {
		s.matcherOpts = append(s.matcherOpts, opts...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a service serving the shards in registry. Only shards listed
// in shardIDs are served; they are created in the registry if missing.
func New(registry *shard.Registry, comparator matcher.Comparator, shardIDs []string, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("shard registry is required")
	}
	if len(shardIDs) == 0 {
		return nil, errors.New("at least one shard is required")
	}
	s := &Service{
		registry:   registry,
		comparator: comparator,
		logger:     slog.Default(),
		matchers:   make(map[string]*matcher.Matcher, len(shardIDs)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, id := range shardIDs {
		m, err := matcher.New(registry.GetOrCreate(id), comparator, s.matcherOpts...)
		if err != nil {
			return nil, fmt.Errorf("matcher for shard %s: %w", id, err)
		}
		s.matchers[id] = m
	}
	s.shardIDs = slices.Sorted(maps.Keys(s.matchers))
	return s, nil
}

// Match runs req against its shard. Failures carry an error code so the
// transport can answer with a meaningful status.
func (s *Service) Match(ctx context.Context, req rpc.MatchRequest) ([]domain.Candidate, error) {
	m, ok := s.matchers[req.ShardID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "shard %q is not served here", req.ShardID)
	}

	candidates, err := m.Match(ctx, matcher.Query{
		TenantID:   req.TenantID,
		Vector:     req.ProbeVector,
		Template:   req.ProbeTemplate,
		TopK:       req.TopK,
		MinQuality: req.MinQuality,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "shard match failed",
			"shard_id", req.ShardID,
			"tenant_id", req.TenantID,
			"error", err,
		)
		return nil, codeFor(err)
	}
	return candidates, nil
}

// Health reports per-shard index counters.
func (s *Service) Health() rpc.HealthResponse {
	resp := rpc.HealthResponse{Status: "healthy", Shards: make([]rpc.ShardHealth, 0, len(s.shardIDs))}
	for _, id := range s.shardIDs {
		st := s.registry.GetOrCreate(id).Stats()
		resp.Shards = append(resp.Shards, rpc.ShardHealth{ShardID: id, Entries: st.Entries, Eligible: st.Eligible})
	}
	return resp
}

// ShardIDs lists the shards served by this worker.
func (s *Service) ShardIDs() []string {
	return slices.Clone(s.shardIDs)
}

func codeFor(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, domain.ErrComparatorUnavailable), errors.Is(err, domain.ErrIndexUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "match deadline exceeded")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "match cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "match failed")
	}
}

