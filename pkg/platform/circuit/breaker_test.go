package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(clock clockwork.Clock, opts ...Option) *Breaker {
	base := []Option{
		WithClock(clock),
		WithFailureThreshold(5),
		WithWindow(time.Minute),
		WithCooldown(10 * time.Second),
	}
	return New("worker-a", append(base, opts...)...)
}

func failN(b *Breaker, n int) StateChange {
	var change StateChange
	for range n {
		change = b.RecordFailure()
	}
	return change
}

func TestBreaker_InitialState(t *testing.T) {
	b := New("test")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "test", b.Name())

	change, err := b.Allow()
	require.NoError(t, err)
	assert.False(t, change.Changed())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBreaker(clock)

	// Four failures don't open
	change := failN(b, 4)
	assert.False(t, change.Opened)
	assert.False(t, b.IsOpen())

	// Fifth failure opens the circuit
	change = b.RecordFailure()
	assert.True(t, change.Opened)
	assert.Equal(t, StateClosed, change.From)
	assert.Equal(t, StateOpen, change.To)
	assert.True(t, b.IsOpen())

	_, err := b.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_FailuresOutsideWindowDoNotCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBreaker(clock)

	failN(b, 4)
	clock.Advance(2 * time.Minute)

	// The earlier four have aged out; one fresh failure is not enough
	change := b.RecordFailure()
	assert.False(t, change.Opened)
	assert.Equal(t, 1, b.Snapshot().ConsecutiveFailures)

	failN(b, 4)
	assert.True(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(clockwork.NewFakeClock())

	failN(b, 4)
	b.RecordSuccess()

	// Count was reset, four more don't open
	failN(b, 4)
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBreaker(clock)
	failN(b, 5)
	require.True(t, b.IsOpen())

	t.Run("rejects before cooldown", func(t *testing.T) {
		clock.Advance(9 * time.Second)
		_, err := b.Allow()
		assert.ErrorIs(t, err, ErrOpen)
	})

	t.Run("admits exactly one probe after cooldown", func(t *testing.T) {
		clock.Advance(time.Second)
		change, err := b.Allow()
		require.NoError(t, err)
		assert.True(t, change.HalfOpened)
		assert.Equal(t, StateHalfOpen, b.State())

		_, err = b.Allow()
		assert.ErrorIs(t, err, ErrOpen, "second call while probe outstanding must be rejected")
	})

	t.Run("probe success closes", func(t *testing.T) {
		change := b.RecordSuccess()
		assert.True(t, change.Closed)
		assert.Equal(t, StateClosed, b.State())

		_, err := b.Allow()
		assert.NoError(t, err)
	})
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBreaker(clock)
	failN(b, 5)

	clock.Advance(10 * time.Second)
	_, err := b.Allow()
	require.NoError(t, err)

	change := b.RecordFailure()
	assert.True(t, change.Opened)
	assert.Equal(t, StateHalfOpen, change.From)
	assert.True(t, b.IsOpen())

	// Cooldown restarts from the failed probe
	clock.Advance(5 * time.Second)
	_, err = b.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_Reset(t *testing.T) {
	b := newTestBreaker(clockwork.NewFakeClock(), WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpenCircuitIgnoresFurtherFailures(t *testing.T) {
	b := newTestBreaker(clockwork.NewFakeClock(), WithFailureThreshold(1))

	b.RecordFailure()

	// Already open, no state change
	change := b.RecordFailure()
	assert.False(t, change.Changed())
	assert.True(t, b.IsOpen())
}

func TestBreaker_ConcurrentRecords(t *testing.T) {
	b := newTestBreaker(clockwork.NewFakeClock(), WithFailureThreshold(50))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()

	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.Snapshot().State)
}
