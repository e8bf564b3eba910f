package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"scalematch/internal/domain"
	"scalematch/internal/platform/metrics"
	"scalematch/internal/worker/handler/mocks"
	"scalematch/internal/worker/rpc"
	dErrors "scalematch/pkg/domain-errors"
)

// =============================================================================
// Worker Handler Test Suite
// =============================================================================
// Justification for unit tests: the master classifies shard failures from
// status codes and error envelopes, so the mapping from service errors to
// responses is part of the wire contract.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	server  *httptest.Server
	client  *rpc.Client
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, logger, metrics.New(prometheus.NewRegistry())).Register(r)
	s.server = httptest.NewServer(r)

	var err error
	s.client, err = rpc.NewClient("worker-1", s.server.URL)
	s.Require().NoError(err)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestMatch() {
	s.Run("returns candidates", func() {
		s.service.EXPECT().Match(gomock.Any(), rpc.MatchRequest{
			ShardID: "s1", TenantID: "t1", ProbeVector: []float32{0.5}, ProbeTemplate: []byte{7}, TopK: 3,
		}).Return([]domain.Candidate{{TargetRID: "r1", HNNScore: 90, ExactScore: 80, FinalScore: 83}}, nil)

		got, err := s.client.Match(context.Background(), rpc.MatchRequest{
			ShardID: "s1", TenantID: "t1", ProbeVector: []float32{0.5}, ProbeTemplate: []byte{7}, TopK: 3,
		})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("r1", got[0].TargetRID)
	})

	s.Run("empty shard answers an empty list", func() {
		s.service.EXPECT().Match(gomock.Any(), gomock.Any()).Return(nil, nil)

		resp, err := http.Post(s.server.URL+rpc.MatchPath, "application/json", strings.NewReader(`{"shardId":"s1","tenantId":"t1"}`))
		s.Require().NoError(err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.JSONEq(`{"shardId":"s1","candidates":[]}`, string(body))
	})

	s.Run("unavailable comparator maps to 503", func() {
		s.service.EXPECT().Match(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(domain.ErrComparatorUnavailable, dErrors.CodeUnavailable, "comparator unavailable"))

		_, err := s.client.Match(context.Background(), rpc.MatchRequest{ShardID: "s1", TenantID: "t1"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("unknown shard maps to 404", func() {
		s.service.EXPECT().Match(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "shard not served"))

		_, err := s.client.Match(context.Background(), rpc.MatchRequest{ShardID: "zz", TenantID: "t1"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed body is a bad request", func() {
		resp, err := http.Post(s.server.URL+rpc.MatchPath, "application/json", strings.NewReader(`{`))
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("non JSON content type rejected", func() {
		resp, err := http.Post(s.server.URL+rpc.MatchPath, "text/plain", strings.NewReader(`hello`))
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *HandlerSuite) TestHealth() {
	s.service.EXPECT().Health().Return(rpc.HealthResponse{
		Status: "healthy",
		Shards: []rpc.ShardHealth{{ShardID: "s1", Entries: 10, Eligible: 8}},
	})

	got, err := s.client.Health(context.Background())
	s.Require().NoError(err)
	s.Equal("healthy", got.Status)
	s.Equal(8, got.Shards[0].Eligible)
}
