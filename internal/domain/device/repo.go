package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*Device, error)
	// GetByDeviceID looks a device up by its external identifier, the
	// one devices present when authenticating.
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Device, int, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
