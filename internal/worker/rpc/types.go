// Package rpc defines the master-to-worker wire contract and the HTTP client
// the master uses to call workers.
package rpc

import "scalematch/internal/domain"

const (
	MatchPath  = "/v1/match"
	HealthPath = "/health"
)

// MatchRequest asks one worker to match a probe against one of its shards.
type MatchRequest struct {
	ShardID       string    `json:"shardId"`
	TenantID      string    `json:"tenantId"`
	ProbeVector   []float32 `json:"probeVector"`
	ProbeTemplate []byte    `json:"probeTemplate"`
	TopK          int       `json:"topK,omitempty"`
	MinQuality    int       `json:"minQuality,omitempty"`
}

// MatchResponse carries the shard-local candidate list.
type MatchResponse struct {
	ShardID    string             `json:"shardId"`
	Candidates []domain.Candidate `json:"candidates"`
}

// ShardHealth is the per-shard part of a health report.
type ShardHealth struct {
	ShardID  string `json:"shardId"`
	Entries  int    `json:"entries"`
	Eligible int    `json:"eligible"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string        `json:"status"`
	Shards []ShardHealth `json:"shards"`
}
