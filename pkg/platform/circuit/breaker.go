// Package circuit provides a three-state circuit breaker used to stop calling
// a degraded dependency for a cooldown period.
//
// A breaker starts CLOSED. After FailureThreshold consecutive failures that
// all fall inside Window it moves to OPEN, where Allow rejects every call with
// ErrOpen. Once Cooldown has elapsed the next Allow moves it to HALF_OPEN and
// admits exactly one probe call; further calls are rejected until that probe
// is recorded. A successful probe closes the breaker, a failed one reopens it.
package circuit

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrOpen is returned by Allow while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// StateChange describes a transition caused by a single call to the breaker.
// The zero value means the state did not change.
type StateChange struct {
	From       State
	To         State
	Opened     bool
	Closed     bool
	HalfOpened bool
}

// Changed reports whether a transition happened.
func (c StateChange) Changed() bool {
	return c.Opened || c.Closed || c.HalfOpened
}

// Snapshot is a point-in-time copy of breaker state for status reporting.
type Snapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
}

// Breaker is safe for concurrent use. Each instance guards one dependency and
// holds its own lock, so breakers for different workers never contend.
type Breaker struct {
	mu sync.Mutex

	name             string
	clock            clockwork.Clock
	failureThreshold int
	window           time.Duration
	cooldown         time.Duration

	state         State
	failures      []time.Time // consecutive failures, oldest first
	openedAt      time.Time
	probeInFlight bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithWindow bounds how far back consecutive failures are counted.
func WithWindow(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.window = d
		}
	}
}

// WithCooldown sets how long the breaker stays open before admitting a probe.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(b *Breaker) {
		if c != nil {
			b.clock = c
		}
	}
}

// New creates a closed breaker. Defaults: 5 failures within 30s, 10s cooldown.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		clock:            clockwork.NewRealClock(),
		failureThreshold: 5,
		window:           30 * time.Second,
		cooldown:         10 * time.Second,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. It returns ErrOpen while the
// breaker is open, or while a half-open probe is already outstanding.
func (b *Breaker) Allow() (StateChange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return StateChange{}, nil
	case StateOpen:
		if b.clock.Since(b.openedAt) < b.cooldown {
			return StateChange{}, ErrOpen
		}
		b.state = StateHalfOpen
		b.probeInFlight = true
		return StateChange{From: StateOpen, To: StateHalfOpen, HalfOpened: true}, nil
	case StateHalfOpen:
		if b.probeInFlight {
			return StateChange{}, ErrOpen
		}
		b.probeInFlight = true
		return StateChange{}, nil
	}
	return StateChange{}, ErrOpen
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.toClosed()
		return StateChange{From: StateHalfOpen, To: StateClosed, Closed: true}
	case StateClosed:
		b.failures = b.failures[:0]
	}
	return StateChange{}
}

// RecordFailure records a failed or timed-out call.
func (b *Breaker) RecordFailure() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	switch b.state {
	case StateHalfOpen:
		b.toOpen(now)
		return StateChange{From: StateHalfOpen, To: StateOpen, Opened: true}
	case StateClosed:
		b.failures = append(b.failures, now)
		b.pruneFailures(now)
		if len(b.failures) >= b.failureThreshold {
			b.toOpen(now)
			return StateChange{From: StateClosed, To: StateOpen, Opened: true}
		}
	}
	return StateChange{}
}

// State returns the current state without advancing it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether the breaker is open.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Snapshot returns a copy of the breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneFailures(b.clock.Now())
	return Snapshot{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: len(b.failures),
		OpenedAt:            b.openedAt,
	}
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toClosed()
}

// pruneFailures drops failures that fell out of the window.
// Must be called while holding b.mu.
func (b *Breaker) pruneFailures(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for ; i < len(b.failures); i++ {
		if b.failures[i].After(cutoff) {
			break
		}
	}
	b.failures = b.failures[i:]
}

func (b *Breaker) toOpen(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.probeInFlight = false
	b.failures = b.failures[:0]
}

func (b *Breaker) toClosed() {
	b.state = StateClosed
	b.openedAt = time.Time{}
	b.probeInFlight = false
	b.failures = b.failures[:0]
}
