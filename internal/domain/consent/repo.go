package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consent) error
	Update(ctx context.Context, c *Consent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consent, error)
	// FindGranted returns the newest still-granted record for the exact
	// (patient, purpose, grantee) tuple, or nil when none exists.
	FindGranted(ctx context.Context, patientID uuid.UUID, purpose Purpose, grantee *string) (*Consent, error)
	// FindActiveFor returns granted records matching the requester: the
	// requester's own grants plus wildcard (nil grantee) grants.
	FindActiveFor(ctx context.Context, patientID uuid.UUID, purpose Purpose, requester *string) ([]*Consent, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consent, int, error)
}
