package domain

import (
	"errors"

	"scalematch/pkg/platform/sentinel"
)

// Matching failure taxonomy. Shard-local failures are absorbed by the
// orchestrator into degraded-shard bookkeeping; only ErrAllShardsFailed turns
// into an ERROR result.
var (
	// ErrNotFound: template or vector absent for a queried target. The
	// candidate is dropped.
	ErrNotFound = sentinel.ErrNotFound

	// ErrComparatorUnavailable: the exact comparator cannot be invoked.
	ErrComparatorUnavailable = errors.New("comparator unavailable")

	// ErrIndexUnavailable: the shard index cannot serve queries.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrWorkerUnavailable: the worker's circuit is open; the call was
	// never attempted.
	ErrWorkerUnavailable = errors.New("worker unavailable")

	// ErrDeadlineExceeded: the shard did not answer before the request
	// deadline.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrAllShardsFailed: no shard produced a usable response.
	ErrAllShardsFailed = errors.New("all shards failed")

	// ErrInvalidEvent: a template-update event is malformed and is discarded.
	ErrInvalidEvent = errors.New("invalid event")
)
