//go:build integration

package leader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalematch/internal/leader"
	"scalematch/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	store, err := leader.NewRedisStore(rc.Client)
	require.NoError(t, err)

	t.Run("exclusive acquire and compare-and-renew", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		ok, err := store.Acquire(ctx, "master", "a", 2*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Acquire(ctx, "master", "b", 2*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.Renew(ctx, "master", "b", 2*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.Renew(ctx, "master", "a", 2*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Acquire(ctx, "master", "a", 2*time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "holder re-acquires its own lease")
	})

	t.Run("release is compare-and-delete", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, err := store.Acquire(ctx, "master", "a", time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Release(ctx, "master", "b"))
		holder, err := store.Holder(ctx, "master")
		require.NoError(t, err)
		assert.Equal(t, "a", holder)

		require.NoError(t, store.Release(ctx, "master", "a"))
		holder, err = store.Holder(ctx, "master")
		require.NoError(t, err)
		assert.Empty(t, holder)
	})

	t.Run("lease expires without renewal", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, err := store.Acquire(ctx, "master", "a", 200*time.Millisecond)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			ok, err := store.Acquire(ctx, "master", "b", time.Minute)
			return err == nil && ok
		}, 5*time.Second, 50*time.Millisecond)
	})
}
