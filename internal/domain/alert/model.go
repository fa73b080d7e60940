package alert

import (
	"time"

	"github.com/google/uuid"
)

// Severity orders alert urgency from low to critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Type classifies what condition an alert describes.
type Type string

const (
	TypeDiabetesHigh        Type = "diabetes_high"
	TypeDiabetesLow         Type = "diabetes_low"
	TypeAbnormalHeartRate   Type = "abnormal_heart_rate"
	TypeLowOxygen           Type = "low_oxygen"
	TypeHighBloodPressure   Type = "high_blood_pressure"
	TypeLowBloodPressure    Type = "low_blood_pressure"
	TypeAbnormalTemperature Type = "abnormal_temperature"
)

// Alert is a derived entity created only by the engine. After creation
// it is mutated only via acknowledge and resolve.
type Alert struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AlertType      Type       `db:"alert_type" json:"alert_type"`
	Severity       Severity   `db:"severity" json:"severity"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	VitalID        *uuid.UUID `db:"vital_id" json:"vital_id,omitempty"`
	TriggerValue   float64    `db:"trigger_value" json:"trigger_value"`
	Acknowledged   bool       `db:"acknowledged" json:"acknowledged"`
	AcknowledgedBy *string    `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	Resolved       bool       `db:"resolved" json:"resolved"`
	ResolvedBy     *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Reading is the engine's input: one point-in-time vital measurement.
// It is deliberately decoupled from the vitals storage model so that
// any caller holding a value can ask for an evaluation.
type Reading struct {
	VitalID   uuid.UUID
	PatientID uuid.UUID
	VitalType string
	Value     float64
}
