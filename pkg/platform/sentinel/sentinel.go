package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, indexes and transport
// clients return these (optionally wrapped) so services can translate them
// into domain outcomes.
//
//   - ErrNotFound: entry does not exist in the store or index
//   - ErrConflict: conditional write lost to another writer
//   - ErrExpired: lease or entry is past its TTL
//   - ErrUnavailable: dependency temporarily unavailable
//   - ErrClosed: component has been shut down
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
