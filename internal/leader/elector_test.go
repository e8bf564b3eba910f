package leader_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"scalematch/internal/leader"
	"scalematch/internal/leader/metrics"
)

// =============================================================================
// Leader Election Test Suite
// =============================================================================
// Justification for unit tests: takeover timing and the no-two-leaders
// guarantee depend on the interaction of TTL, renew and retry intervals.
// A fake clock makes every step of that interaction observable.

const (
	leaseName = "master"
	ttl       = 10 * time.Second
	renew     = 3 * time.Second
	retry     = 1 * time.Second
)

var errPartitioned = errors.New("store unreachable")

// partitionedStore fails every call while cut is set.
type partitionedStore struct {
	leader.Store
	cut atomic.Bool
}

func (p *partitionedStore) Acquire(ctx context.Context, name, holder string, d time.Duration) (bool, error) {
	if p.cut.Load() {
		return false, errPartitioned
	}
	return p.Store.Acquire(ctx, name, holder, d)
}

func (p *partitionedStore) Renew(ctx context.Context, name, holder string, d time.Duration) (bool, error) {
	if p.cut.Load() {
		return false, errPartitioned
	}
	return p.Store.Renew(ctx, name, holder, d)
}

func (p *partitionedStore) Release(ctx context.Context, name, holder string) error {
	if p.cut.Load() {
		return errPartitioned
	}
	return p.Store.Release(ctx, name, holder)
}

// stalledStore blocks renewals until the caller gives up while stall is set,
// the way a client stuck on a dead connection does.
type stalledStore struct {
	partitionedStore
	stall atomic.Bool
}

func (p *stalledStore) Renew(ctx context.Context, name, holder string, d time.Duration) (bool, error) {
	if p.stall.Load() {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return p.partitionedStore.Renew(ctx, name, holder, d)
}

type ElectorSuite struct {
	suite.Suite
	clock *clockwork.FakeClock
	store *leader.MemoryStore
	ctx   context.Context
}

func TestElectorSuite(t *testing.T) {
	suite.Run(t, new(ElectorSuite))
}

func (s *ElectorSuite) SetupTest() {
	s.clock = clockwork.NewFakeClock()
	s.store = leader.NewMemoryStore(s.clock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s.T().Cleanup(cancel)
	s.ctx = ctx
}

func (s *ElectorSuite) newElector(store leader.Store, id string, opts ...leader.Option) *leader.Elector {
	base := []leader.Option{
		leader.WithIdentity(id),
		leader.WithTTL(ttl),
		leader.WithRenewInterval(renew),
		leader.WithRetryInterval(retry),
		leader.WithClock(s.clock),
		leader.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		leader.WithMetrics(metrics.New(prometheus.NewRegistry())),
	}
	e, err := leader.New(store, leaseName, append(base, opts...)...)
	s.Require().NoError(err)
	return e
}

// start runs e until the returned cancel is called; the returned channel
// closes once Run has returned.
func (s *ElectorSuite) start(e *leader.Elector) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.NoError(e.Run(ctx))
	}()
	return cancel, done
}

// settle waits until n clock waiters are registered. A parked standby holds
// one (its retry timer); a parked leader holds two (its renew timer and its
// local expiry).
func (s *ElectorSuite) settle(n int) {
	s.Require().NoError(s.clock.BlockUntilContext(s.ctx, n))
}

func (s *ElectorSuite) holder() string {
	h, err := s.store.Holder(context.Background(), leaseName)
	s.Require().NoError(err)
	return h
}

func (s *ElectorSuite) TestNew() {
	s.Run("rejects renew interval not below half the ttl", func() {
		_, err := leader.New(s.store, leaseName, leader.WithTTL(2*time.Second), leader.WithRenewInterval(time.Second))
		s.Error(err)
	})

	s.Run("rejects missing store and name", func() {
		_, err := leader.New(nil, leaseName)
		s.Error(err)
		_, err = leader.New(s.store, "")
		s.Error(err)
	})

	s.Run("defaults identity to a uuid", func() {
		e, err := leader.New(s.store, leaseName)
		s.Require().NoError(err)
		s.Len(e.Identity(), 36)
	})
}

func (s *ElectorSuite) TestSingleCandidateLeads() {
	started := make(chan struct{})
	e := s.newElector(s.store, "a", leader.OnStartedLeading(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	cancel, done := s.start(e)
	defer func() { cancel(); <-done }()

	s.settle(2)
	<-started
	s.True(e.IsLeader())
	s.Equal("a", s.holder())

	// Renewals keep the lease alive well past one TTL.
	for range 10 {
		s.clock.Advance(renew)
		s.settle(2)
	}
	s.True(e.IsLeader())
	s.Equal("a", s.holder())
}

func (s *ElectorSuite) TestLeaderCrashFailsOverWithinOneTTL() {
	storeA := &partitionedStore{Store: s.store}
	s.assertFailover(storeA, func() { storeA.cut.Store(true) }, func(time.Duration) int { return 3 })
}

func (s *ElectorSuite) TestStalledRenewStepsDownBeforeExpiry() {
	storeA := &stalledStore{partitionedStore: partitionedStore{Store: s.store}}
	// From the first renewal on, a is stuck in the store call with only its
	// local expiry armed.
	s.assertFailover(storeA, func() {
		storeA.stall.Store(true)
		storeA.cut.Store(true)
	}, func(elapsed time.Duration) int {
		if elapsed < renew {
			return 3
		}
		return 2
	})
}

// assertFailover makes a the leader over store, lets b stand by, then
// isolates a. a must step down at its local expiry, one renew interval
// before the lease expires, and b must take over once it does. waiters is
// the clock waiter count while a still leads.
func (s *ElectorSuite) assertFailover(store leader.Store, isolate func(), waiters func(elapsed time.Duration) int) {
	var stopped atomic.Int32
	a := s.newElector(store, "a", leader.OnStoppedLeading(func() { stopped.Add(1) }))
	b := s.newElector(s.store, "b")

	cancelA, doneA := s.start(a)
	defer func() { cancelA(); <-doneA }()
	s.settle(2)
	s.Require().True(a.IsLeader())

	cancelB, doneB := s.start(b)
	defer func() { cancelB(); <-doneB }()
	s.settle(3)
	s.Require().False(b.IsLeader())

	isolate()

	localExpiry := ttl - renew
	for elapsed := retry; elapsed < localExpiry; elapsed += retry {
		s.clock.Advance(retry)
		s.settle(waiters(elapsed))
		s.True(a.IsLeader(), "a still leads at %s", elapsed)
		s.False(b.IsLeader(), "b leads at %s while a holds the lease", elapsed)
	}

	s.clock.Advance(retry)
	s.Eventually(func() bool { return stopped.Load() == 1 }, time.Second, time.Millisecond)
	s.False(a.IsLeader())
	s.settle(2)

	for elapsed := localExpiry + retry; elapsed < ttl; elapsed += retry {
		s.clock.Advance(retry)
		s.settle(2)
		s.False(a.IsLeader())
		s.False(b.IsLeader(), "b leads at %s before the lease expired", elapsed)
	}

	s.clock.Advance(retry)
	s.settle(3)
	s.True(b.IsLeader(), "standby takes over as soon as the lease expires")
	s.False(a.IsLeader())
	s.Equal("b", s.holder())
}

func (s *ElectorSuite) TestGracefulShutdownReleasesLease() {
	var stopped atomic.Int32
	a := s.newElector(s.store, "a", leader.OnStoppedLeading(func() { stopped.Add(1) }))
	b := s.newElector(s.store, "b")

	cancelA, doneA := s.start(a)
	s.settle(2)
	cancelB, doneB := s.start(b)
	defer func() { cancelB(); <-doneB }()
	s.settle(3)

	cancelA()
	<-doneA
	s.False(a.IsLeader())
	s.Equal(int32(1), stopped.Load())
	s.Empty(s.holder())

	s.clock.Advance(retry)
	s.settle(2)
	s.True(b.IsLeader())
	s.Equal("b", s.holder())
}

func (s *ElectorSuite) TestLostLeaseStepsDown() {
	var stopped atomic.Int32
	leaderCtxDone := make(chan struct{})
	a := s.newElector(s.store, "a",
		leader.OnStartedLeading(func(ctx context.Context) {
			<-ctx.Done()
			close(leaderCtxDone)
		}),
		leader.OnStoppedLeading(func() { stopped.Add(1) }),
	)
	cancel, done := s.start(a)
	defer func() { cancel(); <-done }()
	s.settle(2)
	s.Require().True(a.IsLeader())

	// Another holder takes over the lease out from under a.
	s.Require().NoError(s.store.Release(context.Background(), leaseName, "a"))
	ok, err := s.store.Acquire(context.Background(), leaseName, "intruder", ttl)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.clock.Advance(renew)
	<-leaderCtxDone
	s.Eventually(func() bool { return stopped.Load() == 1 }, time.Second, time.Millisecond)
	s.False(a.IsLeader())
	s.Equal("intruder", s.holder(), "stepping down never releases someone else's lease")
}

func (s *ElectorSuite) TestRunTwiceIsRejected() {
	a := s.newElector(s.store, "a")
	cancel, done := s.start(a)
	defer func() { cancel(); <-done }()
	s.settle(1)

	s.Error(a.Run(s.ctx))
}
