package matcher

import (
	"context"
	"math/bits"
	"sync/atomic"

	"scalematch/internal/domain"
)

// HammingComparator scores equal-length templates by the fraction of
// matching bits. Templates of different lengths score 0.
type HammingComparator struct {
	closed atomic.Bool
}

// NewHammingComparator creates a ready comparator.
func NewHammingComparator() *HammingComparator {
	return &HammingComparator{}
}

func (h *HammingComparator) Compare(ctx context.Context, probe, candidate []byte) (int, error) {
	if h == nil || h.closed.Load() {
		return 0, domain.ErrComparatorUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(probe) == 0 || len(probe) != len(candidate) {
		return 0, nil
	}
	diff := 0
	for i := range probe {
		diff += bits.OnesCount8(probe[i] ^ candidate[i])
	}
	total := len(probe) * 8
	return (100*(total-diff) + total/2) / total, nil
}

// Close makes further comparisons fail with domain.ErrComparatorUnavailable.
func (h *HammingComparator) Close() {
	h.closed.Store(true)
}
