package device

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevault/carevault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type deviceRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &deviceRepoPG{pool: pool}
}

func (r *deviceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const deviceCols = `id, device_id, patient_id, device_type, manufacturer, model_name,
	api_key_hash, is_active, registered_by, registered_at, last_seen_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.DeviceID, &d.PatientID, &d.DeviceType, &d.Manufacturer,
		&d.ModelName, &d.APIKeyHash, &d.IsActive, &d.RegisteredBy, &d.RegisteredAt, &d.LastSeenAt)
	return &d, err
}

func (r *deviceRepoPG) Create(ctx context.Context, d *Device) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO devices (id, device_id, patient_id, device_type, manufacturer,
			model_name, api_key_hash, is_active, registered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.DeviceID, d.PatientID, d.DeviceType, d.Manufacturer,
		d.ModelName, d.APIKeyHash, d.IsActive, d.RegisteredBy)
	return err
}

func (r *deviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Device, error) {
	return scanDevice(r.conn(ctx).QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE id = $1`, id))
}

func (r *deviceRepoPG) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	return scanDevice(r.conn(ctx).QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE device_id = $1`, deviceID))
}

func (r *deviceRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Device, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+deviceCols+` FROM devices
		WHERE patient_id = $1
		ORDER BY registered_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *deviceRepoPG) TouchLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE devices SET last_seen_at = $2 WHERE id = $1`, id, seenAt)
	return err
}

func (r *deviceRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE devices SET is_active = $2 WHERE id = $1`, id, active)
	return err
}
