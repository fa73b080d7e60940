package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*Entry, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error)
	// PurgeBefore removes entries past the retention horizon. This is the
	// only deletion path and is driven by the retention policy, never by
	// request handlers.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
