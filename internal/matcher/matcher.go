// Package matcher implements the worker-side hybrid matching engine: an ANN
// pre-filter over embeddings followed by exact template comparison on the
// surviving candidates.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scalematch/internal/decision"
	"scalematch/internal/domain"
	"scalematch/internal/matcher/metrics"
	"scalematch/internal/shard"
	dErrors "scalematch/pkg/domain-errors"
)

const (
	DefaultTopK     = 50
	DefaultANNFloor = 60
)

// Index is the slice of the shard index the matcher reads from.
type Index interface {
	ShardID() string
	QueryANN(tenantID string, vector []float32, k, minQuality int) ([]shard.Hit, error)
	FetchTemplate(key domain.EntryKey) ([]byte, error)
}

// Comparator scores structural similarity between two opaque templates on a
// 0..100 scale. Implementations return domain.ErrComparatorUnavailable when
// they cannot be invoked at all.
type Comparator interface {
	Compare(ctx context.Context, probe, candidate []byte) (int, error)
}

// Query is one probe against one shard.
type Query struct {
	TenantID   string
	Vector     []float32
	Template   []byte
	TopK       int
	MinQuality int
}

// Matcher is safe for concurrent use; it holds no per-request state.
type Matcher struct {
	index      Index
	comparator Comparator
	policy     decision.Policy
	topK       int
	annFloor   int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTopK sets the ANN candidate bound. Queries may ask for fewer, never more.
func WithTopK(k int) Option {
	return func(m *Matcher) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithANNFloor sets the minimum ANN score for a hit to reach exact comparison.
func WithANNFloor(floor int) Option {
	return func(m *Matcher) {
		m.annFloor = max(0, min(100, floor))
	}
}

// WithPolicy sets the score combination and response cap.
func WithPolicy(p decision.Policy) Option {
	return func(m *Matcher) {
		m.policy = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Matcher) {
		m.metrics = mt
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Matcher) {
		m.tracer = t
	}
}

// New creates a matcher over index. A nil comparator is accepted; every
// non-empty match then fails with domain.ErrComparatorUnavailable.
func New(index Index, comparator Comparator, opts ...Option) (*Matcher, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	m := &Matcher{
		index:      index,
		comparator: comparator,
		policy:     decision.DefaultPolicy(),
		topK:       DefaultTopK,
		annFloor:   DefaultANNFloor,
		logger:     slog.Default(),
		tracer:     otel.Tracer("scalematch/matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	policy, err := m.policy.Normalized()
	if err != nil {
		return nil, err
	}
	m.policy = policy
	return m, nil
}

// ShardID returns the shard served by the underlying index.
func (m *Matcher) ShardID() string {
	return m.index.ShardID()
}

// Match returns the shard-local candidates for q, best first, at most one per
// rid and at most the response cap (two when the cap is one). An empty shard
// yields an empty list.
func (m *Matcher) Match(ctx context.Context, q Query) ([]domain.Candidate, error) {
	shardID := m.index.ShardID()
	ctx, span := m.tracer.Start(ctx, "matcher.Match",
		trace.WithAttributes(
			attribute.String("shard_id", shardID),
			attribute.String("tenant_id", q.TenantID),
		),
	)
	defer span.End()

	start := time.Now()
	candidates, err := m.match(ctx, shardID, q)
	m.metrics.ObserveMatch(shardID, outcomeLabel(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return candidates, nil
}

func (m *Matcher) match(ctx context.Context, shardID string, q Query) ([]domain.Candidate, error) {
	if q.TenantID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant is required")
	}
	// A request may narrow the ANN pre-filter but never widen it.
	topK := m.topK
	if q.TopK > 0 {
		topK = min(q.TopK, m.topK)
	}

	hits, err := m.index.QueryANN(q.TenantID, q.Vector, topK, q.MinQuality)
	if err != nil {
		return nil, fmt.Errorf("query ann on shard %s: %w", shardID, err)
	}

	survivors := make([]shard.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= m.annFloor {
			survivors = append(survivors, h)
		}
	}
	if len(survivors) == 0 {
		return []domain.Candidate{}, nil
	}
	if m.comparator == nil {
		return nil, domain.ErrComparatorUnavailable
	}

	scored := make([]domain.Candidate, 0, len(survivors))
	for _, h := range survivors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tpl, err := m.index.FetchTemplate(h.Key)
		if errors.Is(err, domain.ErrNotFound) {
			m.metrics.IncrementDropped(shardID)
			m.logger.DebugContext(ctx, "candidate template missing",
				"shard_id", shardID,
				"rid", h.Key.RID,
				"finger", h.Key.FingerIndex.String(),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch template %s: %w", h.Key, err)
		}

		exact, err := m.comparator.Compare(ctx, q.Template, tpl)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, domain.ErrComparatorUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrComparatorUnavailable, err)
		}

		scored = append(scored, m.policy.Score(domain.Candidate{
			TargetRID:   h.Key.RID,
			FingerIndex: h.Key.FingerIndex,
			ShardID:     shardID,
			HNNScore:    h.Score,
			ExactScore:  max(0, min(100, exact)),
		}))
	}

	// Best finger per rid, ordered, runner-up always kept for the master.
	return m.policy.Shortlist(scored), nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrComparatorUnavailable):
		return "comparator_unavailable"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
