package device

import (
	"time"

	"github.com/google/uuid"
)

// Device is a registered ingestion source, a bedside monitor or a
// wearable paired to one patient. The API key is stored only as a
// bcrypt hash; the plaintext is shown once at registration.
type Device struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	DeviceID     string     `db:"device_id" json:"device_id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	DeviceType   string     `db:"device_type" json:"device_type"`
	Manufacturer *string    `db:"manufacturer" json:"manufacturer,omitempty"`
	ModelName    *string    `db:"model_name" json:"model_name,omitempty"`
	APIKeyHash   string     `db:"api_key_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	RegisteredBy string     `db:"registered_by" json:"registered_by"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	LastSeenAt   *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
}

// Known device types. The list is advisory; unknown types are stored
// as-is so new hardware does not need a code change.
const (
	TypeGlucometer    = "glucometer"
	TypeBPMonitor     = "bp_monitor"
	TypePulseOximeter = "pulse_oximeter"
	TypeSmartwatch    = "smartwatch"
	TypeThermometer   = "thermometer"
	TypeECGPatch      = "ecg_patch"
)
