package emergency

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the access window lifecycle. Granted records become
// active on first data access; expiry and termination are terminal.
type Status string

const (
	StatusGranted    Status = "granted"
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusTerminated Status = "terminated"
)

// Access is a time-boxed consent bypass for a single patient. Every
// read through it is counted and audited.
type Access struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	TriggeredBy       string     `db:"triggered_by" json:"triggered_by"`
	TriggerReason     string     `db:"trigger_reason" json:"trigger_reason"`
	TriggerKeyword    *string    `db:"trigger_keyword" json:"trigger_keyword,omitempty"`
	Status            Status     `db:"status" json:"status"`
	GrantedAt         time.Time  `db:"granted_at" json:"granted_at"`
	ExpiresAt         time.Time  `db:"expires_at" json:"expires_at"`
	TerminatedAt      *time.Time `db:"terminated_at" json:"terminated_at,omitempty"`
	TerminatedBy      *string    `db:"terminated_by" json:"terminated_by,omitempty"`
	TerminationReason *string    `db:"termination_reason" json:"termination_reason,omitempty"`
	HospitalNotified  bool       `db:"hospital_notified" json:"hospital_notified"`
	NotifiedAt        *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	AccessCount       int        `db:"access_count" json:"access_count"`
	LastAccessedAt    *time.Time `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// HasExpired reports whether the window has passed. Expiry is decided
// lazily against the clock, never by a background job.
func (a *Access) HasExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Usable reports whether the record still admits data access at the
// given instant.
func (a *Access) Usable(now time.Time) bool {
	if a.Status == StatusTerminated || a.Status == StatusExpired {
		return false
	}
	return !a.HasExpired(now)
}
