// Package domain holds the biometric reference types shared by the master and
// the workers. Identity and Fingerprint are owned by upstream services and are
// read-only here; MatchRequest, MatchResult and Candidate are request-scoped.
package domain

import (
	"encoding/json"
	"time"
)

// IdentityStatus is the lifecycle state of a registered person.
type IdentityStatus string

const (
	IdentityActive    IdentityStatus = "ACTIVE"
	IdentityInactive  IdentityStatus = "INACTIVE"
	IdentitySuspended IdentityStatus = "SUSPENDED"
	IdentityDeleted   IdentityStatus = "DELETED"
)

// IsValid checks the status is one of the known values.
func (s IdentityStatus) IsValid() bool {
	switch s {
	case IdentityActive, IdentityInactive, IdentitySuspended, IdentityDeleted:
		return true
	}
	return false
}

// Identity is a registered person, unique per tenant by RID.
type Identity struct {
	TenantID    string          `json:"tenantId"`
	RID         string          `json:"rid"`
	FirstName   string          `json:"firstName,omitempty"`
	LastName    string          `json:"lastName,omitempty"`
	Email       string          `json:"email,omitempty"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
	Status      IdentityStatus  `json:"status"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
