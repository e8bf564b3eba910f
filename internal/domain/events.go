package domain

import (
	"fmt"
	"strings"
)

// EventOp is the kind of template-update event.
type EventOp string

const (
	OpUpsert EventOp = "UPSERT"
	OpRemove EventOp = "REMOVE"
)

// TemplateEvent installs or tombstones one fingerprint in a shard index.
// Vector and Template are required for UPSERT only.
type TemplateEvent struct {
	Op          EventOp           `json:"op"`
	TenantID    string            `json:"tenantId"`
	RID         string            `json:"rid"`
	FingerIndex FingerIndex       `json:"fingerIndex"`
	Vector      []float32         `json:"vector,omitempty"`
	Template    []byte            `json:"template,omitempty"`
	Quality     *int              `json:"quality,omitempty"`
	Status      FingerprintStatus `json:"status,omitempty"`
}

// Key returns the index key the event targets.
func (e TemplateEvent) Key() EntryKey {
	return EntryKey{TenantID: e.TenantID, RID: e.RID, FingerIndex: e.FingerIndex}
}

// Validate returns an error wrapping ErrInvalidEvent when the event cannot be
// applied.
func (e TemplateEvent) Validate() error {
	if strings.TrimSpace(e.TenantID) == "" {
		return invalidEvent("tenantId is required")
	}
	if strings.TrimSpace(e.RID) == "" {
		return invalidEvent("rid is required")
	}
	if !e.FingerIndex.IsValid() {
		return invalidEvent(fmt.Sprintf("fingerIndex %d out of range", int(e.FingerIndex)))
	}
	switch e.Op {
	case OpRemove:
		return nil
	case OpUpsert:
		if len(e.Vector) == 0 {
			return invalidEvent("UPSERT requires a vector")
		}
		if len(e.Template) == 0 {
			return invalidEvent("UPSERT requires a template")
		}
		if e.Quality != nil && (*e.Quality < 0 || *e.Quality > MaxQuality) {
			return invalidEvent("quality must be within 0..100")
		}
		if e.Status != "" && !e.Status.IsValid() {
			return invalidEvent(fmt.Sprintf("unknown status %q", e.Status))
		}
		return nil
	default:
		return invalidEvent(fmt.Sprintf("unknown op %q", e.Op))
	}
}

// Fingerprint builds the sample an UPSERT describes. An unrated sample gets
// quality 0, so it is stored but stays below any positive floor. Missing
// status means ACTIVE.
func (e TemplateEvent) Fingerprint() Fingerprint {
	var quality int
	if e.Quality != nil {
		quality = *e.Quality
	}
	status := e.Status
	if status == "" {
		status = FingerprintActive
	}
	return Fingerprint{
		TenantID:    e.TenantID,
		RID:         e.RID,
		FingerIndex: e.FingerIndex,
		Template:    e.Template,
		Vector:      e.Vector,
		Quality:     quality,
		Status:      status,
	}
}

func invalidEvent(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, reason)
}
