package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalematch/internal/domain"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/httputil"
	"scalematch/pkg/testutil"
)

func TestClient(t *testing.T) {
	testutil.Given(t, "a worker answering for the wrong shard", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, MatchResponse{ShardID: "B", Candidates: []domain.Candidate{{TargetRID: "x"}}})
		}))
		defer srv.Close()
		c, err := NewClient("w1", srv.URL)
		require.NoError(t, err)

		testutil.Then(t, "the answer is rejected", func(t *testing.T) {
			_, err := c.Match(context.Background(), MatchRequest{ShardID: "A"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "asked A")
		})
	})

	testutil.Given(t, "a worker failing without an error envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream gone", http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		c, err := NewClient("w1", srv.URL+"/")
		require.NoError(t, err)

		testutil.Then(t, "the status maps to an error code", func(t *testing.T) {
			_, err := c.Match(context.Background(), MatchRequest{ShardID: "A"})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		})
	})

	testutil.Given(t, "a worker slower than the caller's deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)
		c, err := NewClient("w1", srv.URL)
		require.NoError(t, err)

		testutil.When(t, "the context expires", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err := c.Match(ctx, MatchRequest{ShardID: "A"})

			testutil.Then(t, "the call returns the deadline error", func(t *testing.T) {
				assert.True(t, errors.Is(err, context.DeadlineExceeded))
			})
		})
	})

	t.Run("rejects missing identity", func(t *testing.T) {
		_, err := NewClient("", "http://w1")
		assert.Error(t, err)
		_, err = NewClient("w1", "")
		assert.Error(t, err)
	})
}
