package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"scalematch/internal/domain"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/circuit"
)

// ShardError is a classified per-shard failure. It never escapes Identify;
// it becomes a degraded entry in the result's shard report.
type ShardError struct {
	ShardID string
	Kind    domain.ShardOutcome
	Err     error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %s %s: %v", e.ShardID, e.Kind, e.Err)
}

func (e *ShardError) Unwrap() error {
	return e.Err
}

// classify maps a worker call error to a shard outcome. reqCtx is the
// request-scoped context so that a blown request deadline counts as a timeout
// even when the transport reports it differently.
func classify(reqCtx context.Context, shardID string, err error) *ShardError {
	kind := domain.ShardError
	switch {
	case errors.Is(err, circuit.ErrOpen), errors.Is(err, domain.ErrWorkerUnavailable):
		kind = domain.ShardCircuitOpen
		err = fmt.Errorf("%w: %w", domain.ErrWorkerUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domain.ErrDeadlineExceeded),
		errors.Is(reqCtx.Err(), context.DeadlineExceeded),
		dErrors.HasCode(err, dErrors.CodeTimeout):
		kind = domain.ShardTimeout
		if !errors.Is(err, domain.ErrDeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrDeadlineExceeded, err)
		}
	}
	return &ShardError{ShardID: shardID, Kind: kind, Err: err}
}

// countsAsFailure reports whether err should trip the worker's breaker. A
// request the worker rejected as malformed says nothing about its health.
func countsAsFailure(err error) bool {
	return !dErrors.HasCode(err, dErrors.CodeValidation) && !dErrors.HasCode(err, dErrors.CodeBadRequest)
}
