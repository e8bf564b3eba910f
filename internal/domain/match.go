package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "scalematch/pkg/domain-errors"
)

// MatchStatus is the overall outcome of one identification.
type MatchStatus string

const (
	StatusMatchFound MatchStatus = "MATCH_FOUND"
	StatusNoMatch    MatchStatus = "NO_MATCH"
	StatusAmbiguous  MatchStatus = "AMBIGUOUS"
	StatusError      MatchStatus = "ERROR"
)

// Candidate is one comparison outcome. FinalScore is derived from HNNScore
// and ExactScore by the combination policy; IsMatch is only ever set by the
// decision step.
type Candidate struct {
	TargetRID   string      `json:"targetRid"`
	FingerIndex FingerIndex `json:"fingerIndex"`
	ShardID     string      `json:"shardId,omitempty"`
	HNNScore    int         `json:"hnnScore"`
	ExactScore  int         `json:"exactScore"`
	FinalScore  int         `json:"finalScore"`
	IsMatch     bool        `json:"isMatch"`
}

// ShardOutcome records how one shard contributed to a result.
type ShardOutcome string

const (
	ShardOK          ShardOutcome = "ok"
	ShardTimeout     ShardOutcome = "timeout"
	ShardError       ShardOutcome = "error"
	ShardCircuitOpen ShardOutcome = "circuit_open"
)

// ShardReport is the per-shard bookkeeping attached to a MatchResult.
type ShardReport struct {
	ShardID    string       `json:"shardId"`
	Outcome    ShardOutcome `json:"outcome"`
	Error      string       `json:"error,omitempty"`
	Candidates int          `json:"candidates"`
	ElapsedMs  int64        `json:"elapsedMs"`
}

// Degraded reports whether the shard failed to contribute.
func (r ShardReport) Degraded() bool {
	return r.Outcome != ShardOK
}

// MatchResult is the outcome of one matching operation, keyed by TraceID on
// publication.
type MatchResult struct {
	ID             uuid.UUID     `json:"id"`
	TenantID       string        `json:"tenantId"`
	ProbeRID       string        `json:"probeRid"`
	Status         MatchStatus   `json:"status"`
	Candidates     []Candidate   `json:"candidates"`
	MatchingTimeMs int64         `json:"matchingTimeMs"`
	TraceID        string        `json:"traceId"`
	CreatedAt      time.Time     `json:"createdAt"`
	Shards         []ShardReport `json:"shards"`
	DegradedShards []string      `json:"degradedShards"`
	Error          string        `json:"error,omitempty"`
}

// Match returns the flagged candidate, if any.
func (r *MatchResult) Match() (Candidate, bool) {
	for _, c := range r.Candidates {
		if c.IsMatch {
			return c, true
		}
	}
	return Candidate{}, false
}

// MatchRequest is one incoming identification request.
type MatchRequest struct {
	TenantID        string      `json:"tenantId"`
	ProbeRID        string      `json:"probeRid"`
	FingerIndex     FingerIndex `json:"fingerIndex"`
	EmbeddingVector []float32   `json:"embeddingVector"`
	BinaryTemplate  []byte      `json:"binaryTemplate"`
	TraceID         string      `json:"traceId"`

	// Optional scoping and overrides.
	ShardIDs   []string `json:"shardIds,omitempty"`
	TopK       int      `json:"topK,omitempty"`
	MinQuality int      `json:"minQuality,omitempty"`
}

// Validate rejects malformed requests before dispatch. dimension <= 0 skips
// the vector length check.
func (r MatchRequest) Validate(dimension int) error {
	if strings.TrimSpace(r.TenantID) == "" {
		return dErrors.New(dErrors.CodeValidation, "tenantId is required")
	}
	if strings.TrimSpace(r.TraceID) == "" {
		return dErrors.New(dErrors.CodeValidation, "traceId is required")
	}
	if !r.FingerIndex.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "fingerIndex %d out of range", int(r.FingerIndex))
	}
	if len(r.EmbeddingVector) == 0 {
		return dErrors.New(dErrors.CodeValidation, "embeddingVector is required")
	}
	if dimension > 0 && len(r.EmbeddingVector) != dimension {
		return dErrors.Newf(dErrors.CodeValidation, "embeddingVector has %d dimensions, expected %d", len(r.EmbeddingVector), dimension)
	}
	if len(r.BinaryTemplate) == 0 {
		return dErrors.New(dErrors.CodeValidation, "binaryTemplate is required")
	}
	if r.TopK < 0 {
		return dErrors.New(dErrors.CodeValidation, "topK must not be negative")
	}
	if r.MinQuality < 0 || r.MinQuality > MaxQuality {
		return dErrors.New(dErrors.CodeValidation, "minQuality must be within 0..100")
	}
	return nil
}
