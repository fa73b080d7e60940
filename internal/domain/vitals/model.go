package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies who or what recorded a reading.
type Source string

const (
	SourceDoctor   Source = "doctor"
	SourceDevice   Source = "device"
	SourceWearable Source = "wearable"
	SourceManual   Source = "manual"
	SourceExternal Source = "external"
	SourceLab      Source = "lab"
)

// VitalUnits maps each known vital type to its canonical unit. The map
// doubles as the registry of accepted vital types.
var VitalUnits = map[string]string{
	"heart_rate":       "bpm",
	"bp_systolic":      "mmHg",
	"bp_diastolic":     "mmHg",
	"spo2":             "%",
	"temperature":      "°C",
	"glucose":          "mg/dL",
	"weight":           "kg",
	"height":           "cm",
	"bmi":              "kg/m²",
	"respiratory_rate": "breaths/min",
	"steps":            "count",
	"sleep_hours":      "hours",
	"calories":         "kcal",
}

// Vital is an immutable point-in-time reading. Never updated after
// insert; only insertion and admin hard-delete.
type Vital struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	VitalType  string     `db:"vital_type" json:"vital_type"`
	Value      float64    `db:"value" json:"value"`
	Unit       string     `db:"unit" json:"unit"`
	Source     Source     `db:"source" json:"source"`
	SourceID   *string    `db:"source_id" json:"source_id,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
	Checksum   *string    `db:"checksum" json:"checksum,omitempty"`
	BatchID    *string    `db:"batch_id" json:"batch_id,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	UploadedAt time.Time  `db:"uploaded_at" json:"uploaded_at"`
	UploadedBy *string    `db:"uploaded_by" json:"uploaded_by,omitempty"`
}

// MedicalTest is a discrete diagnostic result, separate from the
// continuous vitals stream.
type MedicalTest struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	TestType     string    `db:"test_type" json:"test_type"`
	Result       string    `db:"result" json:"result"`
	NumericValue *float64  `db:"numeric_value" json:"numeric_value,omitempty"`
	Unit         *string   `db:"unit" json:"unit,omitempty"`
	Source       Source    `db:"source" json:"source"`
	SourceID     *string   `db:"source_id" json:"source_id,omitempty"`
	PerformedAt  time.Time `db:"performed_at" json:"performed_at"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	BatchID      *string   `db:"batch_id" json:"batch_id,omitempty"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
	UploadedBy   *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
}

// Known test result values. Numeric results carry their value in
// NumericValue with Result set to "numeric".
const (
	ResultPositive     = "positive"
	ResultNegative     = "negative"
	ResultInconclusive = "inconclusive"
	ResultNumeric      = "numeric"
)
