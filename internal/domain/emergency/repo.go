package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Access) error
	GetByID(ctx context.Context, id uuid.UUID) (*Access, error)
	Update(ctx context.Context, a *Access) error
	// RecordAccess bumps access_count and last_accessed_at in one
	// statement and flips a granted record to active. Concurrent reads
	// through the same window must each land exactly one increment.
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) (*Access, error)
	// ListOpen returns records whose stored status is granted or
	// active. Callers still apply the expiry clock.
	ListOpen(ctx context.Context) ([]*Access, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Access, int, error)
}
