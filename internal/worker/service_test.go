package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalematch/internal/domain"
	"scalematch/internal/matcher"
	"scalematch/internal/shard"
	"scalematch/internal/worker/rpc"
	dErrors "scalematch/pkg/domain-errors"
)

func newService(t *testing.T, comparator matcher.Comparator) (*Service, *shard.Registry) {
	t.Helper()
	reg := shard.NewRegistry(shard.WithDimension(2))
	svc, err := New(reg, comparator, []string{"s2", "s1"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMatcherOptions(matcher.WithANNFloor(0)),
	)
	require.NoError(t, err)
	return svc, reg
}

func TestServiceMatch(t *testing.T) {
	svc, reg := newService(t, matcher.NewHammingComparator())
	idx, ok := reg.Get("s1")
	require.True(t, ok)
	require.NoError(t, idx.Upsert(domain.Fingerprint{
		TenantID: "t1", RID: "r1", FingerIndex: domain.RightThumb,
		Vector: []float32{1, 0}, Template: []byte{0xF0}, Quality: 90,
	}))

	t.Run("matches the requested shard", func(t *testing.T) {
		got, err := svc.Match(context.Background(), rpc.MatchRequest{
			ShardID: "s1", TenantID: "t1", ProbeVector: []float32{1, 0}, ProbeTemplate: []byte{0xF0},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r1", got[0].TargetRID)
		assert.Equal(t, 100, got[0].FinalScore)
	})

	t.Run("other shard is empty", func(t *testing.T) {
		got, err := svc.Match(context.Background(), rpc.MatchRequest{
			ShardID: "s2", TenantID: "t1", ProbeVector: []float32{1, 0}, ProbeTemplate: []byte{0xF0},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown shard is not found", func(t *testing.T) {
		_, err := svc.Match(context.Background(), rpc.MatchRequest{ShardID: "s9", TenantID: "t1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("closed comparator is unavailable", func(t *testing.T) {
		c := matcher.NewHammingComparator()
		closedSvc, closedReg := newService(t, c)
		idx := closedReg.GetOrCreate("s1")
		require.NoError(t, idx.Upsert(domain.Fingerprint{
			TenantID: "t1", RID: "r1", FingerIndex: domain.RightThumb,
			Vector: []float32{1, 0}, Template: []byte{0xF0}, Quality: 90,
		}))
		c.Close()

		_, err := closedSvc.Match(context.Background(), rpc.MatchRequest{
			ShardID: "s1", TenantID: "t1", ProbeVector: []float32{1, 0}, ProbeTemplate: []byte{0xF0},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.ErrorIs(t, err, domain.ErrComparatorUnavailable)
	})
}

func TestServiceHealth(t *testing.T) {
	svc, reg := newService(t, matcher.NewHammingComparator())
	require.NoError(t, reg.GetOrCreate("s2").Upsert(domain.Fingerprint{
		TenantID: "t1", RID: "r1", FingerIndex: domain.LeftThumb,
		Vector: []float32{0, 1}, Template: []byte{1}, Quality: 10,
	}))

	health := svc.Health()
	assert.Equal(t, "healthy", health.Status)
	require.Len(t, health.Shards, 2)
	assert.Equal(t, "s1", health.Shards[0].ShardID)
	assert.Equal(t, 1, health.Shards[1].Entries)
	assert.Equal(t, []string{"s1", "s2"}, svc.ShardIDs())
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, nil, []string{"s1"})
	assert.Error(t, err)
	_, err = New(shard.NewRegistry(), nil, nil)
	assert.Error(t, err)
}
