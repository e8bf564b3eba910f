package domain

import (
	"fmt"
	"time"
)

// FingerIndex is one of the ten canonical finger positions.
type FingerIndex int

const (
	RightThumb FingerIndex = iota
	RightIndex
	RightMiddle
	RightRing
	RightPinky
	LeftThumb
	LeftIndex
	LeftMiddle
	LeftRing
	LeftPinky
)

var fingerNames = [...]string{
	"RIGHT_THUMB", "RIGHT_INDEX", "RIGHT_MIDDLE", "RIGHT_RING", "RIGHT_PINKY",
	"LEFT_THUMB", "LEFT_INDEX", "LEFT_MIDDLE", "LEFT_RING", "LEFT_PINKY",
}

// IsValid checks the position is within 0..9.
func (f FingerIndex) IsValid() bool {
	return f >= RightThumb && f <= LeftPinky
}

func (f FingerIndex) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("FINGER(%d)", int(f))
	}
	return fingerNames[f]
}

// FingerprintStatus is the lifecycle state of one biometric sample.
type FingerprintStatus string

const (
	FingerprintActive   FingerprintStatus = "ACTIVE"
	FingerprintArchived FingerprintStatus = "ARCHIVED"
	FingerprintDeleted  FingerprintStatus = "DELETED"
)

// IsValid checks the status is one of the known values.
func (s FingerprintStatus) IsValid() bool {
	switch s {
	case FingerprintActive, FingerprintArchived, FingerprintDeleted:
		return true
	}
	return false
}

// MaxQuality is the top of the quality scale.
const MaxQuality = 100

// Fingerprint is one enrolled sample. Template is opaque and only read by the
// exact comparator; Vector is only read by the ANN index.
type Fingerprint struct {
	TenantID    string            `json:"tenantId"`
	RID         string            `json:"rid"`
	FingerIndex FingerIndex       `json:"fingerIndex"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Template    []byte            `json:"template"`
	Vector      []float32         `json:"vector"`
	Quality     int               `json:"quality"`
	Status      FingerprintStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Eligible reports whether the sample may contribute to matching given a
// quality floor.
func (f Fingerprint) Eligible(qualityFloor int) bool {
	return f.Status == FingerprintActive && f.Quality >= qualityFloor
}

// EntryKey addresses one fingerprint within a shard. RIDs are only unique
// per tenant, so the tenant is part of the key.
type EntryKey struct {
	TenantID    string
	RID         string
	FingerIndex FingerIndex
}

func (k EntryKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.TenantID, k.RID, int(k.FingerIndex))
}
