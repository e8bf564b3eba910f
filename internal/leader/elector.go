// Package leader elects a single active process through a renewable named
// lease. Mutual exclusion comes entirely from the lease store's atomic
// conditional operations; the elector only decides when to call them.
package leader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"scalematch/internal/leader/metrics"
)

const (
	DefaultTTL           = 10 * time.Second
	DefaultRenewInterval = 3 * time.Second
	DefaultRetryInterval = 1 * time.Second

	releaseTimeout = 2 * time.Second
)

var errLeaseExpired = errors.New("lease expired locally")

// Elector competes for one lease and runs the leader callbacks while it
// holds it.
type Elector struct {
	store    Store
	name     string
	identity string

	ttl           time.Duration
	renewInterval time.Duration
	retryInterval time.Duration

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	onStarted func(ctx context.Context)
	onStopped func()

	leading atomic.Bool
	running atomic.Bool
}

// Option configures an Elector.
type Option func(*Elector)

// WithIdentity sets the holder value written to the lease. Defaults to a
// random UUID.
func WithIdentity(id string) Option {
	return func(e *Elector) {
		if id != "" {
			e.identity = id
		}
	}
}

func WithTTL(d time.Duration) Option {
	return func(e *Elector) {
		e.ttl = d
	}
}

func WithRenewInterval(d time.Duration) Option {
	return func(e *Elector) {
		e.renewInterval = d
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(e *Elector) {
		e.retryInterval = d
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(e *Elector) {
		e.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Elector) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Elector) {
		e.metrics = m
	}
}

// OnStartedLeading registers fn to run on its own goroutine after the lease
// is acquired. Its context is cancelled as soon as leadership ends.
func OnStartedLeading(fn func(ctx context.Context)) Option {
	return func(e *Elector) {
		e.onStarted = fn
	}
}

// OnStoppedLeading registers fn to run after leadership ends and the
// started callback has returned.
func OnStoppedLeading(fn func()) Option {
	return func(e *Elector) {
		e.onStopped = fn
	}
}

// New creates an Elector for the lease called name.
func New(store Store, name string, opts ...Option) (*Elector, error) {
	if store == nil {
		return nil, errors.New("lease store is required")
	}
	if name == "" {
		return nil, errors.New("lease name is required")
	}
	e := &Elector{
		store:         store,
		name:          name,
		identity:      uuid.NewString(),
		ttl:           DefaultTTL,
		renewInterval: DefaultRenewInterval,
		retryInterval: DefaultRetryInterval,
		clock:         clockwork.NewRealClock(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renewInterval <= 0 || e.retryInterval <= 0 {
		return nil, errors.New("renew and retry intervals must be positive")
	}
	if 2*e.renewInterval >= e.ttl {
		return nil, errors.New("renew interval must be shorter than half the lease ttl")
	}
	return e, nil
}

// Identity returns the holder value this elector writes.
func (e *Elector) Identity() string { return e.identity }

// Name returns the lease name.
func (e *Elector) Name() string { return e.name }

// IsLeader reports whether this elector currently believes it holds the
// lease.
func (e *Elector) IsLeader() bool { return e.leading.Load() }

// Holder reports the current lease holder as seen by the store, or "" when
// the lease is free.
func (e *Elector) Holder(ctx context.Context) (string, error) {
	return e.store.Holder(ctx, e.name)
}

// Run competes for the lease until ctx is cancelled. Leadership is released
// on return. Run must not be called concurrently on the same Elector.
func (e *Elector) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("elector already running")
	}
	defer e.running.Store(false)

	e.logger.InfoContext(ctx, "leader election started",
		"lease", e.name,
		"identity", e.identity,
		"ttl", e.ttl,
	)
	for {
		attempt := e.clock.Now()
		ok, err := e.store.Acquire(ctx, e.name, e.identity, e.ttl)
		switch {
		case err != nil && ctx.Err() == nil:
			e.metrics.IncrementStoreError(e.name, "acquire")
			e.logger.WarnContext(ctx, "lease acquire failed", "lease", e.name, "error", err)
		case ok:
			e.lead(ctx, attempt)
		}
		if ctx.Err() != nil || !e.wait(ctx, e.retryInterval) {
			return nil
		}
	}
}

// lead holds the lease until it is lost or ctx is cancelled. acquiredAt is
// the moment the winning Acquire was issued; the store's expiry can be no
// earlier than acquiredAt+ttl.
func (e *Elector) lead(ctx context.Context, acquiredAt time.Time) {
	leaderCtx, cancel := context.WithCancelCause(ctx)
	e.leading.Store(true)
	e.metrics.SetLeader(e.name, true)
	e.logger.InfoContext(ctx, "acquired leadership", "lease", e.name, "identity", e.identity)

	// Leadership ends locally one renew interval before the store's expiry,
	// whatever the store call in flight is doing.
	expiry := e.clock.AfterFunc(e.clock.Until(e.deadline(acquiredAt)), func() {
		if leaderCtx.Err() != nil {
			return
		}
		e.leading.Store(false)
		cancel(errLeaseExpired)
	})

	var wg sync.WaitGroup
	if e.onStarted != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.onStarted(leaderCtx)
		}()
	}

	reason := e.renewLoop(ctx, leaderCtx, expiry)

	expiry.Stop()
	cancel(nil)
	e.leading.Store(false)
	wg.Wait()
	e.release(ctx)
	e.metrics.SetLeader(e.name, false)
	e.logger.InfoContext(ctx, "lost leadership", "lease", e.name, "identity", e.identity, "reason", reason)
	if e.onStopped != nil {
		e.onStopped()
	}
}

// deadline is when leadership won at renewedAt ends unless renewed again.
func (e *Elector) deadline(renewedAt time.Time) time.Time {
	return renewedAt.Add(e.ttl - e.renewInterval)
}

func (e *Elector) renewLoop(ctx, leaderCtx context.Context, expiry clockwork.Timer) string {
	for {
		if !e.wait(leaderCtx, e.renewInterval) {
			return stopReason(ctx)
		}
		attempt := e.clock.Now()
		ok, err := e.store.Renew(leaderCtx, e.name, e.identity, e.ttl)
		switch {
		case leaderCtx.Err() != nil:
			if ctx.Err() == nil {
				e.metrics.IncrementStoreError(e.name, "renew")
				e.logger.WarnContext(ctx, "lease renewal did not finish before local expiry", "lease", e.name)
			}
			return stopReason(ctx)
		case err != nil:
			e.metrics.IncrementStoreError(e.name, "renew")
			e.logger.WarnContext(ctx, "lease renewal failed", "lease", e.name, "error", err)
		case !ok:
			return "lease_lost"
		default:
			expiry.Reset(e.clock.Until(e.deadline(attempt)))
		}
	}
}

func stopReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "shutdown"
	}
	return "lease_expired"
}

func (e *Elector) release(ctx context.Context) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := e.store.Release(rctx, e.name, e.identity); err != nil {
		e.metrics.IncrementStoreError(e.name, "release")
		e.logger.WarnContext(ctx, "lease release failed", "lease", e.name, "error", err)
	}
}

// wait blocks for d or until ctx is done. It reports false when ctx ended.
func (e *Elector) wait(ctx context.Context, d time.Duration) bool {
	t := e.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
