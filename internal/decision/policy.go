// Package decision turns per-shard candidate lists into one ranked,
// deduplicated decision. Everything here is pure: no I/O, no clocks, no
// shared state, so the same inputs always produce the same MatchResult
// status and candidate order.
package decision

import (
	"cmp"
	"math"
	"slices"

	"scalematch/internal/domain"
	dErrors "scalematch/pkg/domain-errors"
)

const (
	DefaultWeightANN       = 0.3
	DefaultWeightExact     = 0.7
	DefaultMatchThreshold  = 80
	DefaultAmbiguityMargin = 5
	DefaultResponseCap     = 10
)

// Policy holds the combination weights and decision thresholds.
type Policy struct {
	WeightANN       float64
	WeightExact     float64
	MatchThreshold  int
	AmbiguityMargin int
	ResponseCap     int
}

// DefaultPolicy returns the stock 0.3/0.7 policy with threshold 80 and
// margin 5.
func DefaultPolicy() Policy {
	return Policy{
		WeightANN:       DefaultWeightANN,
		WeightExact:     DefaultWeightExact,
		MatchThreshold:  DefaultMatchThreshold,
		AmbiguityMargin: DefaultAmbiguityMargin,
		ResponseCap:     DefaultResponseCap,
	}
}

// Normalized validates p and rescales the weights so they sum to 1.
func (p Policy) Normalized() (Policy, error) {
	if p.WeightANN < 0 || p.WeightExact < 0 {
		return p, dErrors.New(dErrors.CodeValidation, "weights must not be negative")
	}
	sum := p.WeightANN + p.WeightExact
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return p, dErrors.New(dErrors.CodeValidation, "weights must sum to a positive value")
	}
	if p.MatchThreshold < 0 || p.MatchThreshold > 100 {
		return p, dErrors.New(dErrors.CodeValidation, "match threshold must be within 0..100")
	}
	if p.AmbiguityMargin < 0 {
		return p, dErrors.New(dErrors.CodeValidation, "ambiguity margin must not be negative")
	}
	if p.ResponseCap <= 0 {
		return p, dErrors.New(dErrors.CodeValidation, "response cap must be positive")
	}
	p.WeightANN /= sum
	p.WeightExact /= sum
	return p, nil
}

// Combine computes the final score. It depends on nothing but the two input
// scores and the weights.
func (p Policy) Combine(hnn, exact int) int {
	return int(math.Round(p.WeightANN*float64(hnn) + p.WeightExact*float64(exact)))
}

// Score fills FinalScore on c and clears IsMatch.
func (p Policy) Score(c domain.Candidate) domain.Candidate {
	c.FinalScore = p.Combine(c.HNNScore, c.ExactScore)
	c.IsMatch = false
	return c
}

// Merge concatenates shard lists, keeps the best entry per rid and sorts by
// final score descending with ties broken by rid ascending. Nothing is
// dropped, so Decide sees every rival. The result does not depend on the
// order of lists or of their contents.
func (p Policy) Merge(lists ...[]domain.Candidate) []domain.Candidate {
	best := make(map[string]domain.Candidate)
	for _, list := range lists {
		for _, c := range list {
			c.IsMatch = false
			cur, ok := best[c.TargetRID]
			if !ok || better(c, cur) {
				best[c.TargetRID] = c
			}
		}
	}

	out := make([]domain.Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	slices.SortFunc(out, Compare)
	return out
}

// Resolve merges the shard lists, decides on the full ranking and only then
// cuts the answer to the response cap.
func (p Policy) Resolve(lists ...[]domain.Candidate) (domain.MatchStatus, []domain.Candidate) {
	status, ranked := p.Decide(p.Merge(lists...))
	return status, truncate(ranked, p.ResponseCap)
}

// Shortlist merges lists and keeps what a downstream Resolve needs: the
// response cap, but never fewer than the top two, since the runner-up decides
// ambiguity.
func (p Policy) Shortlist(lists ...[]domain.Candidate) []domain.Candidate {
	return truncate(p.Merge(lists...), max(p.ResponseCap, 2))
}

func truncate(sorted []domain.Candidate, n int) []domain.Candidate {
	if n > 0 && len(sorted) > n {
		return sorted[:n]
	}
	return sorted
}

// Decide classifies a merged, sorted list and flags the winner on
// MATCH_FOUND. The second candidate makes the result AMBIGUOUS only if it
// also clears the threshold and sits within the margin of the top.
func (p Policy) Decide(sorted []domain.Candidate) (domain.MatchStatus, []domain.Candidate) {
	if len(sorted) == 0 || sorted[0].FinalScore < p.MatchThreshold {
		return domain.StatusNoMatch, sorted
	}
	if len(sorted) > 1 {
		second := sorted[1]
		if second.FinalScore >= p.MatchThreshold && sorted[0].FinalScore-second.FinalScore <= p.AmbiguityMargin {
			return domain.StatusAmbiguous, sorted
		}
	}
	out := slices.Clone(sorted)
	out[0].IsMatch = true
	return domain.StatusMatchFound, out
}

// Compare orders candidates best first: final score descending, rid
// ascending, then the remaining fields so the order is total.
func Compare(a, b domain.Candidate) int {
	if c := cmp.Compare(b.FinalScore, a.FinalScore); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TargetRID, b.TargetRID); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ExactScore, a.ExactScore); c != 0 {
		return c
	}
	if c := cmp.Compare(a.FingerIndex, b.FingerIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ShardID, b.ShardID)
}

// better reports whether a should replace b as the representative of a rid.
func better(a, b domain.Candidate) bool {
	return Compare(a, b) < 0
}
