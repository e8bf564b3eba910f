// Package intake drives identification from the request queue: it polls
// match requests, runs each through the orchestrator, and publishes the
// result keyed by trace id. Offsets are committed only after every request
// of a polled batch has a published result, so delivery is at-least-once and
// a redelivered request simply produces the same result again.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"scalematch/internal/domain"
	"scalematch/internal/intake/metrics"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/sentinel"
	"scalematch/pkg/requestcontext"
)

const (
	DefaultRequestTopic = "match.requests"
	DefaultResultTopic  = "match.results"
	DefaultConcurrency  = 16
	DefaultPollBackoff  = time.Second
)

// Source is a committed-offset record stream.
type Source interface {
	Poll(ctx context.Context) ([]*kgo.Record, error)
	Commit(ctx context.Context) error
}

// Publisher writes one keyed record to the result topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Identifier runs one identification.
type Identifier interface {
	Identify(ctx context.Context, req domain.MatchRequest) (*domain.MatchResult, error)
}

// Intake is started by the elected leader only.
type Intake struct {
	source      Source
	publisher   Publisher
	identifier  Identifier
	concurrency int
	pollBackoff time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures an Intake.
type Option func(*Intake)

// WithConcurrency bounds the identifications running at once.
func WithConcurrency(n int) Option {
	return func(in *Intake) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithPollBackoff sets the pause after a failed poll.
func WithPollBackoff(d time.Duration) Option {
	return func(in *Intake) {
		if d > 0 {
			in.pollBackoff = d
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(in *Intake) {
		in.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(in *Intake) {
		in.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Intake) {
		in.metrics = m
	}
}

// New creates an Intake.
func New(source Source, publisher Publisher, identifier Identifier, opts ...Option) (*Intake, error) {
	if source == nil || publisher == nil || identifier == nil {
		return nil, errors.New("source, publisher and identifier are required")
	}
	in := &Intake{
		source:      source,
		publisher:   publisher,
		identifier:  identifier,
		concurrency: DefaultConcurrency,
		pollBackoff: DefaultPollBackoff,
		clock:       clockwork.NewRealClock(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// Run processes batches until ctx is done or the source closes. A failed
// publication stops Run without committing, so the batch is redelivered to
// whoever consumes next.
func (in *Intake) Run(ctx context.Context) error {
	in.logger.InfoContext(ctx, "request intake started", "concurrency", in.concurrency)
	for {
		records, err := in.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, sentinel.ErrClosed) {
				in.logger.InfoContext(ctx, "request intake stopped")
				return nil
			}
			in.metrics.IncrementPollErrors()
			in.logger.WarnContext(ctx, "request poll failed", "error", err, "backoff", in.pollBackoff)
			if !sleep(ctx, in.clock, in.pollBackoff) {
				in.logger.InfoContext(ctx, "request intake stopped")
				return nil
			}
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := in.ProcessBatch(ctx, records); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := in.source.Commit(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			in.logger.WarnContext(ctx, "request commit failed", "error", err)
		}
	}
}

// sleep waits d on clock and reports false if ctx ends first.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

// ProcessBatch identifies every record concurrently and returns once each
// has been published or discarded.
func (in *Intake) ProcessBatch(ctx context.Context, records []*kgo.Record) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for _, rec := range records {
		g.Go(func() error {
			return in.process(gctx, rec)
		})
	}
	return g.Wait()
}

func (in *Intake) process(ctx context.Context, rec *kgo.Record) error {
	in.metrics.AddInFlight(1)
	defer in.metrics.AddInFlight(-1)

	var req domain.MatchRequest
	if err := json.Unmarshal(rec.Value, &req); err != nil {
		in.discard(ctx, rec, err)
		return nil
	}
	if req.TraceID == "" {
		in.discard(ctx, rec, errors.New("traceId is required"))
		return nil
	}

	now := in.clock.Now()
	ctx = requestcontext.WithTraceID(ctx, req.TraceID)
	ctx = requestcontext.WithTime(ctx, now)

	result, err := in.identifier.Identify(ctx, req)
	disposition := "published"
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result = rejected(req, err, now)
		disposition = "rejected"
		in.logger.WarnContext(ctx, "match request rejected",
			"trace_id", req.TraceID,
			"tenant_id", req.TenantID,
			"error", err,
		)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", req.TraceID, err)
	}
	if err := in.publisher.Publish(ctx, []byte(req.TraceID), body); err != nil {
		return fmt.Errorf("publish result %s: %w", req.TraceID, err)
	}
	in.metrics.IncrementRequests(disposition)
	return nil
}

func (in *Intake) discard(ctx context.Context, rec *kgo.Record, err error) {
	in.metrics.IncrementRequests("discarded")
	in.logger.WarnContext(ctx, "match request discarded",
		"partition", rec.Partition,
		"offset", rec.Offset,
		"error", err,
	)
}

// rejected builds the ERROR result published for a request the orchestrator
// refused, so that a caller waiting on the trace id always gets an answer.
func rejected(req domain.MatchRequest, err error, now time.Time) *domain.MatchResult {
	msg := err.Error()
	var de *dErrors.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	return &domain.MatchResult{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		ProbeRID:       req.ProbeRID,
		Status:         domain.StatusError,
		Candidates:     []domain.Candidate{},
		TraceID:        req.TraceID,
		CreatedAt:      now.UTC(),
		Shards:         []domain.ShardReport{},
		DegradedShards: []string{},
		Error:          msg,
	}
}
