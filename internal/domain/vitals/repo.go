package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Vital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vital, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, vitalType string, limit, offset int) ([]*Vital, int, error)
	// ExistsDuplicate reports whether a reading with the same patient,
	// type, value and recorded_at is already stored.
	ExistsDuplicate(ctx context.Context, patientID uuid.UUID, vitalType string, value float64, recordedAt time.Time) (bool, error)

	CreateTest(ctx context.Context, t *MedicalTest) error
	GetTestByID(ctx context.Context, id uuid.UUID) (*MedicalTest, error)
	DeleteTest(ctx context.Context, id uuid.UUID) error
	ListTestsByPatient(ctx context.Context, patientID uuid.UUID, testType string, limit, offset int) ([]*MedicalTest, int, error)
}
