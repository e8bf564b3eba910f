// Package orchestrator fans one probe out to every target shard, bounds the
// wait by the request deadline, and reduces the shard answers to a single
// MatchResult through the decision policy.
package orchestrator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"scalematch/internal/decision"
	decisionmetrics "scalematch/internal/decision/metrics"
	"scalematch/internal/domain"
	"scalematch/internal/orchestrator/metrics"
	"scalematch/internal/worker/rpc"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/circuit"
	"scalematch/pkg/requestcontext"
)

const DefaultDeadline = 2 * time.Second

// ShardClient calls the worker that hosts a shard.
type ShardClient interface {
	WorkerID() string
	Match(ctx context.Context, req rpc.MatchRequest) ([]domain.Candidate, error)
}

// Directory resolves shards to worker clients.
type Directory interface {
	ShardIDs() []string
	Client(shardID string) (ShardClient, bool)
}

// WorkerHealth reports workers that failed enough health checks to be
// routed around.
type WorkerHealth interface {
	Unavailable(workerID string) bool
}

// Orchestrator is safe for concurrent use; each Identify call is independent
// apart from the shared per-worker breakers.
type Orchestrator struct {
	directory Directory
	health    WorkerHealth
	policy    decision.Policy
	deadline  time.Duration
	dimension int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	decisions *decisionmetrics.Metrics
	tracer    trace.Tracer

	breakerOpts []circuit.Option
	breakersMu  sync.Mutex
	breakers    map[string]*circuit.Breaker
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the combination and decision policy.
func WithPolicy(p decision.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithWorkerHealth skips shards whose worker health reports as unavailable;
// they are reported degraded without a call.
func WithWorkerHealth(h WorkerHealth) Option {
	return func(o *Orchestrator) {
		o.health = h
	}
}

// WithDeadline sets the per-request deadline.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// WithDimension enables the probe vector length check.
func WithDimension(d int) Option {
	return func(o *Orchestrator) {
		o.dimension = d
	}
}

// WithBreakerOptions configures the breaker created for each worker.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(o *Orchestrator) {
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithDecisionMetrics(m *decisionmetrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.decisions = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New creates an orchestrator over directory.
func New(directory Directory, opts ...Option) (*Orchestrator, error) {
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	o := &Orchestrator{
		directory: directory,
		policy:    decision.DefaultPolicy(),
		deadline:  DefaultDeadline,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("scalematch/orchestrator"),
		breakers:  make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(o)
	}
	policy, err := o.policy.Normalized()
	if err != nil {
		return nil, err
	}
	o.policy = policy
	return o, nil
}

type shardCall struct {
	report     domain.ShardReport
	candidates []domain.Candidate
}

// Identify runs one probe through every target shard. Malformed requests are
// rejected with a validation error before any dispatch; every other outcome,
// including total shard failure, is a MatchResult.
func (o *Orchestrator) Identify(ctx context.Context, req domain.MatchRequest) (*domain.MatchResult, error) {
	if err := req.Validate(o.dimension); err != nil {
		return nil, err
	}
	targets, err := o.targets(req.ShardIDs)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.Identify",
		trace.WithAttributes(
			attribute.String("trace_id", req.TraceID),
			attribute.String("tenant_id", req.TenantID),
			attribute.Int("shards", len(targets)),
		),
	)
	defer span.End()

	start := o.clock.Now()
	reqCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	wire := rpc.MatchRequest{
		TenantID:      req.TenantID,
		ProbeVector:   req.EmbeddingVector,
		ProbeTemplate: req.BinaryTemplate,
		TopK:          req.TopK,
		MinQuality:    req.MinQuality,
	}

	calls := make([]shardCall, len(targets))
	var g errgroup.Group
	for i, shardID := range targets {
		g.Go(func() error {
			calls[i] = o.callShard(reqCtx, shardID, wire)
			return nil
		})
	}
	_ = g.Wait()

	result := o.reduce(req, calls)
	result.MatchingTimeMs = o.clock.Since(start).Milliseconds()
	result.CreatedAt = o.clock.Now().UTC()
	if t, ok := requestcontext.TimeOf(ctx); ok {
		result.CreatedAt = t.UTC()
	}

	o.metrics.ObserveRequest(string(result.Status), o.clock.Since(start))
	o.decisions.IncrementOutcome(string(result.Status))
	o.decisions.ObserveCandidates(len(result.Candidates), topScore(result.Candidates))
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("degraded_shards", len(result.DegradedShards)),
	)
	if result.Status == domain.StatusError {
		span.SetStatus(codes.Error, result.Error)
	}

	o.logger.InfoContext(ctx, "identification complete",
		"trace_id", req.TraceID,
		"tenant_id", req.TenantID,
		"probe_rid", req.ProbeRID,
		"status", result.Status,
		"candidates", len(result.Candidates),
		"degraded_shards", result.DegradedShards,
		"matching_time_ms", result.MatchingTimeMs,
	)
	return result, nil
}

// targets resolves the request scope. An empty scope means every registered
// shard, healthy or not, so unhealthy ones show up as degraded; a scope naming an unknown shard is a malformed request.
func (o *Orchestrator) targets(scope []string) ([]string, error) {
	if len(scope) == 0 {
		ids := slices.Clone(o.directory.ShardIDs())
		slices.Sort(ids)
		return ids, nil
	}
	known := o.directory.ShardIDs()
	out := make([]string, 0, len(scope))
	for _, id := range scope {
		if !slices.Contains(known, id) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown shard %q", id)
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

// callShard dispatches to one shard through its worker's breaker and never
// waits past ctx; a late answer is discarded.
func (o *Orchestrator) callShard(ctx context.Context, shardID string, wire rpc.MatchRequest) shardCall {
	ctx, span := o.tracer.Start(ctx, "orchestrator.callShard",
		trace.WithAttributes(attribute.String("shard_id", shardID)),
	)
	defer span.End()

	start := o.clock.Now()
	report := domain.ShardReport{ShardID: shardID, Outcome: domain.ShardOK}

	candidates, err := o.dispatch(ctx, shardID, wire)
	report.ElapsedMs = o.clock.Since(start).Milliseconds()
	if err != nil {
		var se *ShardError
		if !errors.As(err, &se) {
			se = classify(ctx, shardID, err)
		}
		report.Outcome = se.Kind
		report.Error = se.Err.Error()
		span.RecordError(se)
		span.SetStatus(codes.Error, string(se.Kind))
		o.metrics.ObserveShard(shardID, string(se.Kind), o.clock.Since(start))
		o.logger.WarnContext(ctx, "shard degraded",
			"shard_id", shardID,
			"outcome", se.Kind,
			"error", se.Err,
		)
		return shardCall{report: report}
	}

	for i := range candidates {
		candidates[i].ShardID = shardID
		candidates[i] = o.policy.Score(candidates[i])
	}
	report.Candidates = len(candidates)
	o.metrics.ObserveShard(shardID, string(domain.ShardOK), o.clock.Since(start))
	return shardCall{report: report, candidates: candidates}
}

func (o *Orchestrator) dispatch(ctx context.Context, shardID string, wire rpc.MatchRequest) ([]domain.Candidate, error) {
	client, ok := o.directory.Client(shardID)
	if !ok {
		return nil, &ShardError{ShardID: shardID, Kind: domain.ShardError, Err: domain.ErrWorkerUnavailable}
	}
	if o.health != nil && o.health.Unavailable(client.WorkerID()) {
		return nil, &ShardError{
			ShardID: shardID,
			Kind:    domain.ShardCircuitOpen,
			Err:     fmt.Errorf("%w: worker %s failing health checks", domain.ErrWorkerUnavailable, client.WorkerID()),
		}
	}
	breaker := o.breaker(client.WorkerID())

	change, err := breaker.Allow()
	o.observeChange(ctx, breaker, change)
	if err != nil {
		return nil, classify(ctx, shardID, err)
	}

	type answer struct {
		candidates []domain.Candidate
		err        error
	}
	done := make(chan answer, 1)
	wire.ShardID = shardID
	go func() {
		c, err := client.Match(ctx, wire)
		done <- answer{candidates: c, err: err}
	}()

	select {
	case a := <-done:
		if a.err != nil {
			if countsAsFailure(a.err) {
				o.observeChange(ctx, breaker, breaker.RecordFailure())
			} else {
				o.observeChange(ctx, breaker, breaker.RecordSuccess())
			}
			return nil, classify(ctx, shardID, a.err)
		}
		o.observeChange(ctx, breaker, breaker.RecordSuccess())
		return a.candidates, nil
	case <-ctx.Done():
		o.observeChange(ctx, breaker, breaker.RecordFailure())
		return nil, classify(ctx, shardID, ctx.Err())
	}
}

func (o *Orchestrator) reduce(req domain.MatchRequest, calls []shardCall) *domain.MatchResult {
	result := &domain.MatchResult{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		ProbeRID:       req.ProbeRID,
		TraceID:        req.TraceID,
		Candidates:     []domain.Candidate{},
		Shards:         make([]domain.ShardReport, 0, len(calls)),
		DegradedShards: []string{},
	}

	lists := make([][]domain.Candidate, 0, len(calls))
	for _, c := range calls {
		result.Shards = append(result.Shards, c.report)
		if c.report.Degraded() {
			result.DegradedShards = append(result.DegradedShards, c.report.ShardID)
			continue
		}
		lists = append(lists, c.candidates)
	}

	if len(lists) == 0 {
		result.Status = domain.StatusError
		result.Error = domain.ErrAllShardsFailed.Error()
		return result
	}

	result.Status, result.Candidates = o.policy.Resolve(lists...)
	return result
}

// breaker returns the breaker for workerID, creating it on first use.
func (o *Orchestrator) breaker(workerID string) *circuit.Breaker {
	o.breakersMu.Lock()
	defer o.breakersMu.Unlock()
	b, ok := o.breakers[workerID]
	if !ok {
		opts := append([]circuit.Option{circuit.WithClock(o.clock)}, o.breakerOpts...)
		b = circuit.New(workerID, opts...)
		o.breakers[workerID] = b
	}
	return b
}

func (o *Orchestrator) observeChange(ctx context.Context, b *circuit.Breaker, change circuit.StateChange) {
	if !change.Changed() {
		return
	}
	o.metrics.SetBreakerState(b.Name(), int(change.To))
	o.metrics.IncrementBreakerTransition(b.Name(), change.To.String())
	o.logger.WarnContext(ctx, "worker circuit state changed",
		"worker_id", b.Name(),
		"from", change.From.String(),
		"to", change.To.String(),
	)
}

// Breakers returns a snapshot of every worker breaker, ordered by worker id.
func (o *Orchestrator) Breakers() []circuit.Snapshot {
	o.breakersMu.Lock()
	out := make([]circuit.Snapshot, 0, len(o.breakers))
	for _, b := range o.breakers {
		out = append(out, b.Snapshot())
	}
	o.breakersMu.Unlock()
	slices.SortFunc(out, func(a, b circuit.Snapshot) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// ResetBreaker force-closes the breaker of workerID. It reports whether the
// worker had a breaker.
func (o *Orchestrator) ResetBreaker(workerID string) bool {
	o.breakersMu.Lock()
	b, ok := o.breakers[workerID]
	o.breakersMu.Unlock()
	if ok {
		b.Reset()
		o.metrics.SetBreakerState(workerID, int(circuit.StateClosed))
	}
	return ok
}

func topScore(c []domain.Candidate) int {
	if len(c) == 0 {
		return 0
	}
	return c[0].FinalScore
}
