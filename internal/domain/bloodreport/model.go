package bloodreport

import (
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/platform/reportparse"
)

// Report is one uploaded lab report with its extracted values. The raw
// document is not stored; only its hash, for duplicate detection.
type Report struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	PatientID  uuid.UUID              `db:"patient_id" json:"patient_id"`
	FileName   string                 `db:"file_name" json:"file_name"`
	FileHash   string                 `db:"file_hash" json:"file_hash"`
	ReportType reportparse.ReportType `db:"report_type" json:"report_type"`
	Values     map[string]float64     `db:"values" json:"values"`
	Confidence float64                `db:"confidence" json:"confidence"`
	ReportDate *time.Time             `db:"report_date" json:"report_date,omitempty"`
	LabName    *string                `db:"lab_name" json:"lab_name,omitempty"`
	UploadedBy string                 `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time              `db:"uploaded_at" json:"uploaded_at"`
}
