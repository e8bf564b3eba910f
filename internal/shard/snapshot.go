package shard

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"scalematch/internal/domain"
)

// snapshotVersion guards against loading a dump written by an incompatible
// build.
const snapshotVersion = 1

type snapshotHeader struct {
	Version   int
	ShardID   string
	Dimension int
	Count     int
}

type snapshotEntry struct {
	TenantID    string
	RID         string
	FingerIndex int
	Vector      []float32
	Template    []byte
	Quality     int
	Status      string
}

// WriteSnapshot dumps every live entry, zstd-compressed, so a restarted worker
// can serve queries before the event topic has been replayed.
func (i *Index) WriteSnapshot(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open zstd writer: %w", err)
	}

	i.mu.RLock()
	entries := make([]snapshotEntry, 0, len(i.byKey))
	for _, slot := range i.byKey {
		e := i.slots[slot]
		entries = append(entries, snapshotEntry{
			TenantID:    e.key.TenantID,
			RID:         e.key.RID,
			FingerIndex: int(e.key.FingerIndex),
			Vector:      e.vector,
			Template:    e.template,
			Quality:     e.quality,
			Status:      string(e.status),
		})
	}
	header := snapshotHeader{
		Version:   snapshotVersion,
		ShardID:   i.shardID,
		Dimension: i.dimension,
		Count:     len(entries),
	}
	i.mu.RUnlock()

	enc := gob.NewEncoder(zw)
	if err := enc.Encode(header); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = zw.Close()
			return fmt.Errorf("encode snapshot entry: %w", err)
		}
	}
	return zw.Close()
}

// ReadSnapshot upserts every entry from a dump written by WriteSnapshot and
// returns how many were loaded. Entries already present are replaced.
func (i *Index) ReadSnapshot(r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("open zstd reader: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return 0, fmt.Errorf("decode snapshot header: %w", err)
	}
	if header.Version != snapshotVersion {
		return 0, fmt.Errorf("snapshot version %d not supported", header.Version)
	}
	if header.ShardID != i.shardID {
		return 0, fmt.Errorf("snapshot belongs to shard %q, index serves %q", header.ShardID, i.shardID)
	}

	loaded := 0
	for range header.Count {
		var e snapshotEntry
		if err := dec.Decode(&e); err != nil {
			return loaded, fmt.Errorf("decode snapshot entry %d: %w", loaded, err)
		}
		err := i.Upsert(domain.Fingerprint{
			TenantID:    e.TenantID,
			RID:         e.RID,
			FingerIndex: domain.FingerIndex(e.FingerIndex),
			Vector:      e.Vector,
			Template:    e.Template,
			Quality:     e.Quality,
			Status:      domain.FingerprintStatus(e.Status),
		})
		if err != nil {
			return loaded, fmt.Errorf("restore %s/%s: %w", e.TenantID, e.RID, err)
		}
		loaded++
	}
	return loaded, nil
}
