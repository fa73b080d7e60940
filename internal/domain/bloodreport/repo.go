package bloodreport

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// GetByHash finds an earlier upload of the same document for a
	// patient, nil when this is the first.
	GetByHash(ctx context.Context, patientID uuid.UUID, fileHash string) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
}
