package shard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const snapshotExt = ".snap"

// Registry owns the indexes hosted by one worker process, one per shard id.
// Indexes never share state; the registry only hands out references.
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]*Index
	opts    []Option
}

// NewRegistry creates an empty registry. opts are applied to every index it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		indexes: make(map[string]*Index),
		opts:    opts,
	}
}

// Get returns the index for shardID if it exists.
func (r *Registry) Get(shardID string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[shardID]
	return idx, ok
}

// GetOrCreate returns the index for shardID, creating it on first use.
func (r *Registry) GetOrCreate(shardID string) *Index {
	if idx, ok := r.Get(shardID); ok {
		return idx
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indexes[shardID]; ok {
		return idx
	}
	idx := New(shardID, r.opts...)
	r.indexes[shardID] = idx
	return idx
}

// ShardIDs lists hosted shards in sorted order.
func (r *Registry) ShardIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.indexes))
	for id := range r.indexes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close closes every hosted index.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, idx := range r.indexes {
		idx.Close()
	}
}

// SaveSnapshots writes one snapshot file per hosted shard into dir. Each file
// is written to a temporary name first and renamed into place.
func (r *Registry) SaveSnapshots(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	var errs []error
	for _, id := range r.ShardIDs() {
		idx, _ := r.Get(id)
		if err := saveSnapshot(dir, idx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func saveSnapshot(dir string, idx *Index) error {
	tmp, err := os.CreateTemp(dir, idx.ShardID()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", idx.ShardID(), err)
	}
	defer os.Remove(tmp.Name())

	if err := idx.WriteSnapshot(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot %s: %w", idx.ShardID(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot %s: %w", idx.ShardID(), err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, idx.ShardID()+snapshotExt))
}

// LoadSnapshots restores shardIDs from dir and returns the number of entries
// loaded per shard. A shard without a snapshot file starts empty.
func (r *Registry) LoadSnapshots(dir string, shardIDs []string) (map[string]int, error) {
	loaded := make(map[string]int, len(shardIDs))
	for _, id := range shardIDs {
		f, err := os.Open(filepath.Join(dir, id+snapshotExt))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("open snapshot %s: %w", id, err)
		}
		n, err := r.GetOrCreate(id).ReadSnapshot(f)
		_ = f.Close()
		if err != nil {
			return loaded, fmt.Errorf("restore snapshot %s: %w", id, err)
		}
		loaded[id] = n
	}
	return loaded, nil
}
