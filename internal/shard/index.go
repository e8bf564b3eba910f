// Package shard implements the worker-local shard index: an ANN structure over
// embedding vectors plus a template cache, keyed by (tenant, rid, finger).
//
// An Index is mutated by a single writer (the template-event consumer) and
// read by many concurrent matches. Writes hold the lock only long enough to
// update one slot, so queries never wait on more than one entry update.
package shard

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"scalematch/internal/domain"
	dErrors "scalematch/pkg/domain-errors"
)

// Hit is one ANN result with its 0..100 similarity score.
type Hit struct {
	Key     domain.EntryKey
	Score   int
	Quality int
}

// Stats summarizes index contents for health reporting.
type Stats struct {
	ShardID  string `json:"shardId"`
	Entries  int    `json:"entries"`
	Eligible int    `json:"eligible"`
	Removed  uint64 `json:"removed"`
	Upserts  uint64 `json:"upserts"`
}

type entry struct {
	key      domain.EntryKey
	template []byte
	quality  int
	status   domain.FingerprintStatus
	vector   []float32 // normalized; kept for snapshots
}

// Index is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	shardID      string
	dimension    int
	qualityFloor int
	ann          ANN

	slots    []*entry
	byKey    map[domain.EntryKey]uint32
	free     []uint32
	eligible map[string]*roaring.Bitmap // tenant -> eligible slots
	closed   bool

	removed uint64
	upserts uint64
}

// Option configures an Index.
type Option func(*Index)

// WithDimension fixes the vector dimension. Zero accepts the dimension of the
// first upserted vector.
func WithDimension(d int) Option {
	return func(i *Index) {
		if d > 0 {
			i.dimension = d
		}
	}
}

// WithQualityFloor sets the minimum quality for an entry to be searchable.
func WithQualityFloor(q int) Option {
	return func(i *Index) {
		i.qualityFloor = max(0, min(domain.MaxQuality, q))
	}
}

// WithANN swaps the nearest-neighbor backend.
func WithANN(ann ANN) Option {
	return func(i *Index) {
		if ann != nil {
			i.ann = ann
		}
	}
}

// New creates an empty index for one shard.
func New(shardID string, opts ...Option) *Index {
	idx := &Index{
		shardID:  shardID,
		ann:      NewFlatANN(),
		byKey:    make(map[domain.EntryKey]uint32),
		eligible: make(map[string]*roaring.Bitmap),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// ShardID returns the shard the index serves.
func (i *Index) ShardID() string {
	return i.shardID
}

// QualityFloor returns the configured minimum quality.
func (i *Index) QualityFloor() int {
	return i.qualityFloor
}

// Upsert installs or replaces one fingerprint. Applying the same fingerprint
// twice leaves the index in the same queryable state as applying it once.
func (i *Index) Upsert(fp domain.Fingerprint) error {
	if fp.TenantID == "" || fp.RID == "" {
		return dErrors.New(dErrors.CodeValidation, "tenant and rid are required")
	}
	if !fp.FingerIndex.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "finger index %d out of range", int(fp.FingerIndex))
	}
	if len(fp.Template) == 0 {
		return dErrors.New(dErrors.CodeValidation, "template is required")
	}
	vec, ok := normalize(fp.Vector)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "vector must be non-zero")
	}
	if fp.Status == "" {
		fp.Status = domain.FingerprintActive
	}
	e := &entry{
		key:      domain.EntryKey{TenantID: fp.TenantID, RID: fp.RID, FingerIndex: fp.FingerIndex},
		template: slices.Clone(fp.Template),
		quality:  fp.Quality,
		status:   fp.Status,
		vector:   vec,
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrIndexUnavailable
	}
	if i.dimension == 0 {
		i.dimension = len(vec)
	}
	if len(vec) != i.dimension {
		return dErrors.Newf(dErrors.CodeValidation, "vector has %d dimensions, index expects %d", len(vec), i.dimension)
	}

	slot, exists := i.byKey[e.key]
	if !exists {
		slot = i.allocSlot()
		i.byKey[e.key] = slot
	}
	i.slots[slot] = e
	i.ann.Set(slot, vec)

	bm := i.tenantBitmap(e.key.TenantID)
	if fp.Eligible(i.qualityFloor) {
		bm.Add(slot)
	} else {
		bm.Remove(slot)
	}
	i.upserts++
	return nil
}

// Remove tombstones one fingerprint. Removing an unknown key is a no-op.
func (i *Index) Remove(key domain.EntryKey) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrIndexUnavailable
	}
	slot, ok := i.byKey[key]
	if !ok {
		return nil
	}
	delete(i.byKey, key)
	i.slots[slot] = nil
	i.ann.Delete(slot)
	if bm, ok := i.eligible[key.TenantID]; ok {
		bm.Remove(slot)
		if bm.IsEmpty() {
			delete(i.eligible, key.TenantID)
		}
	}
	i.free = append(i.free, slot)
	i.removed++
	return nil
}

// QueryANN returns up to k eligible entries of tenantID nearest to vector,
// best first, ties broken by key. minQuality raises the configured floor for
// this query only.
func (i *Index) QueryANN(tenantID string, vector []float32, k, minQuality int) ([]Hit, error) {
	query, ok := normalize(vector)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "probe vector must be non-zero")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrIndexUnavailable
	}
	if i.dimension != 0 && len(query) != i.dimension {
		return nil, dErrors.Newf(dErrors.CodeValidation, "probe vector has %d dimensions, index expects %d", len(query), i.dimension)
	}
	allow := i.eligible[tenantID]
	if allow == nil || allow.IsEmpty() || k <= 0 {
		return nil, nil
	}
	if minQuality > i.qualityFloor {
		allow = i.filterQuality(allow, minQuality)
	}

	neighbors := i.ann.Search(query, k, allow)
	hits := make([]Hit, 0, len(neighbors))
	for _, n := range neighbors {
		e := i.slots[n.Slot]
		if e == nil {
			continue
		}
		hits = append(hits, Hit{Key: e.key, Score: SimilarityScore(n.Similarity), Quality: e.quality})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return compareKeys(a.Key, b.Key)
	})
	return hits, nil
}

// FetchTemplate returns the cached template for key or domain.ErrNotFound.
func (i *Index) FetchTemplate(key domain.EntryKey) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrIndexUnavailable
	}
	slot, ok := i.byKey[key]
	if !ok || i.slots[slot] == nil {
		return nil, fmt.Errorf("template %s: %w", key, domain.ErrNotFound)
	}
	return i.slots[slot].template, nil
}

// Eligible returns the number of searchable entries for tenantID.
func (i *Index) Eligible(tenantID string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if bm := i.eligible[tenantID]; bm != nil {
		return int(bm.GetCardinality())
	}
	return 0
}

// Stats returns a snapshot of index counters.
func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	eligible := 0
	for _, bm := range i.eligible {
		eligible += int(bm.GetCardinality())
	}
	return Stats{
		ShardID:  i.shardID,
		Entries:  len(i.byKey),
		Eligible: eligible,
		Removed:  i.removed,
		Upserts:  i.upserts,
	}
}

// Close makes every further operation fail with domain.ErrIndexUnavailable.
func (i *Index) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
}

// allocSlot reuses a tombstoned slot when one is available.
// Must be called while holding i.mu.
func (i *Index) allocSlot() uint32 {
	if n := len(i.free); n > 0 {
		slot := i.free[n-1]
		i.free = i.free[:n-1]
		return slot
	}
	i.slots = append(i.slots, nil)
	return uint32(len(i.slots) - 1)
}

func (i *Index) tenantBitmap(tenantID string) *roaring.Bitmap {
	bm, ok := i.eligible[tenantID]
	if !ok {
		bm = roaring.New()
		i.eligible[tenantID] = bm
	}
	return bm
}

func (i *Index) filterQuality(allow *roaring.Bitmap, minQuality int) *roaring.Bitmap {
	out := roaring.New()
	it := allow.Iterator()
	for it.HasNext() {
		slot := it.Next()
		if e := i.slots[slot]; e != nil && e.quality >= minQuality {
			out.Add(slot)
		}
	}
	return out
}

func compareKeys(a, b domain.EntryKey) int {
	if c := strings.Compare(a.RID, b.RID); c != 0 {
		return c
	}
	if a.FingerIndex != b.FingerIndex {
		return int(a.FingerIndex) - int(b.FingerIndex)
	}
	return strings.Compare(a.TenantID, b.TenantID)
}
