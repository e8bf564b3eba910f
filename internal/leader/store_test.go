package leader_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalematch/internal/leader"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire is exclusive until expiry", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		store := leader.NewMemoryStore(clock)

		ok, err := store.Acquire(ctx, "l", "a", 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Acquire(ctx, "l", "b", 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		clock.Advance(10 * time.Second)
		ok, err = store.Acquire(ctx, "l", "b", 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		holder, err := store.Holder(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, "b", holder)
	})

	t.Run("holder may re-acquire its own lease", func(t *testing.T) {
		store := leader.NewMemoryStore(clockwork.NewFakeClock())
		_, _ = store.Acquire(ctx, "l", "a", time.Second)
		ok, err := store.Acquire(ctx, "l", "a", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("renew only by the live holder", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		store := leader.NewMemoryStore(clock)
		_, _ = store.Acquire(ctx, "l", "a", 10*time.Second)

		ok, _ := store.Renew(ctx, "l", "b", 10*time.Second)
		assert.False(t, ok)

		clock.Advance(5 * time.Second)
		ok, _ = store.Renew(ctx, "l", "a", 10*time.Second)
		assert.True(t, ok)

		clock.Advance(9 * time.Second)
		holder, _ := store.Holder(ctx, "l")
		assert.Equal(t, "a", holder, "renewal extends from the renewal time")

		clock.Advance(time.Second)
		ok, _ = store.Renew(ctx, "l", "a", 10*time.Second)
		assert.False(t, ok, "an expired lease cannot be renewed")
	})

	t.Run("release ignores other holders", func(t *testing.T) {
		store := leader.NewMemoryStore(clockwork.NewFakeClock())
		_, _ = store.Acquire(ctx, "l", "a", time.Minute)

		require.NoError(t, store.Release(ctx, "l", "b"))
		holder, _ := store.Holder(ctx, "l")
		assert.Equal(t, "a", holder)

		require.NoError(t, store.Release(ctx, "l", "a"))
		holder, _ = store.Holder(ctx, "l")
		assert.Empty(t, holder)
	})
}
