package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies what an audit entry records. New actions are added
// here as features grow; entries are never rewritten.
const (
	ActionConsentGranted      = "consent_granted"
	ActionConsentRevoked      = "consent_revoked"
	ActionVitalUploaded       = "vital_uploaded"
	ActionVitalDeleted        = "vital_deleted"
	ActionBatchUpload         = "batch_upload"
	ActionDeviceIngestion     = "device_ingestion"
	ActionDeviceRegistered    = "device_registered"
	ActionDeviceDeactivated   = "device_deactivated"
	ActionAlertAcknowledged   = "alert_acknowledged"
	ActionEmergencyTriggered  = "emergency_triggered"
	ActionEmergencyAccess     = "emergency_access"
	ActionEmergencyTerminated = "emergency_terminated"
	ActionNoteCreated         = "note_created"
	ActionNoteViewed          = "note_viewed"
	ActionReportUploaded      = "report_uploaded"
	ActionPatientCreated      = "patient_created"
	ActionPatientUpdated      = "patient_updated"
)

// Entry is one immutable audit record. The log is append-only; there
// are no update or delete operations on individual entries.
type Entry struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	ActorID      string         `db:"actor_id" json:"actor_id"`
	ActorRole    string         `db:"actor_role" json:"actor_role,omitempty"`
	Action       string         `db:"action" json:"action"`
	ResourceType string         `db:"resource_type" json:"resource_type"`
	ResourceID   string         `db:"resource_id" json:"resource_id"`
	PatientID    *uuid.UUID     `db:"patient_id" json:"patient_id,omitempty"`
	Description  string         `db:"description" json:"description,omitempty"`
	Details      map[string]any `db:"details" json:"details,omitempty"`
	Success      bool           `db:"success" json:"success"`
	IPAddress    *string        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    *string        `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
