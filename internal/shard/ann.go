package shard

import (
	"container/heap"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Neighbor is one ANN hit addressed by index slot.
type Neighbor struct {
	Slot       uint32
	Similarity float32 // cosine similarity in [-1, 1]
}

// ANN ranks stored vectors by similarity to a query. Implementations are not
// required to be safe for concurrent writes; Index serializes Set and Delete
// and only runs Search concurrently with other Searches.
type ANN interface {
	// Set installs or replaces the vector at slot. The vector is already
	// L2-normalized.
	Set(slot uint32, vector []float32)
	// Delete forgets the vector at slot.
	Delete(slot uint32)
	// Search returns up to k neighbors restricted to the slots in allow,
	// most similar first.
	Search(query []float32, k int, allow *roaring.Bitmap) []Neighbor
}

// FlatANN is an exhaustive scan over the allowed slots. It is exact, so its
// recall is the ceiling any graph index can reach.
type FlatANN struct {
	vectors [][]float32
}

// NewFlatANN creates an empty flat index.
func NewFlatANN() *FlatANN {
	return &FlatANN{}
}

func (f *FlatANN) Set(slot uint32, vector []float32) {
	for int(slot) >= len(f.vectors) {
		f.vectors = append(f.vectors, nil)
	}
	f.vectors[slot] = vector
}

func (f *FlatANN) Delete(slot uint32) {
	if int(slot) < len(f.vectors) {
		f.vectors[slot] = nil
	}
}

func (f *FlatANN) Search(query []float32, k int, allow *roaring.Bitmap) []Neighbor {
	if k <= 0 || allow == nil || allow.IsEmpty() {
		return nil
	}

	if n := allow.GetCardinality(); uint64(k) > n {
		k = int(n)
	}
	h := make(neighborHeap, 0, k)
	it := allow.Iterator()
	for it.HasNext() {
		slot := it.Next()
		if int(slot) >= len(f.vectors) {
			continue
		}
		v := f.vectors[slot]
		if v == nil {
			continue
		}
		n := Neighbor{Slot: slot, Similarity: dot(query, v)}
		if len(h) < k {
			heap.Push(&h, n)
			continue
		}
		if worse(h[0], n) {
			h[0] = n
			heap.Fix(&h, 0)
		}
	}

	out := make([]Neighbor, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Neighbor)
	}
	return out
}

// neighborHeap is a min-heap on similarity so the weakest kept hit is at the
// root.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *neighborHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// worse orders by similarity, then prefers the lower slot so results are
// deterministic under ties.
func worse(a, b Neighbor) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity < b.Similarity
	}
	return a.Slot > b.Slot
}

func dot(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns an L2-normalized copy of v, or false for a zero vector.
func normalize(v []float32) ([]float32, bool) {
	var norm2 float64
	for _, x := range v {
		norm2 += float64(x) * float64(x)
	}
	if norm2 == 0 {
		return nil, false
	}
	inv := float32(1 / math.Sqrt(norm2))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out, true
}

// SimilarityScore maps cosine similarity onto 0..100, monotonic in inverse
// angular distance.
func SimilarityScore(cos float32) int {
	s := int(math.Round(50 * (1 + float64(cos))))
	return max(0, min(100, s))
}
