package emergency

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

type emergencyRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &emergencyRepoPG{pool: pool}
}

func (r *emergencyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const accessCols = `id, patient_id, triggered_by, trigger_reason, trigger_keyword, status,
	granted_at, expires_at, terminated_at, terminated_by, termination_reason,
	hospital_notified, notified_at, access_count, last_accessed_at, created_at`

func scanAccess(row pgx.Row) (*Access, error) {
	var a Access
	err := row.Scan(&a.ID, &a.PatientID, &a.TriggeredBy, &a.TriggerReason, &a.TriggerKeyword,
		&a.Status, &a.GrantedAt, &a.ExpiresAt, &a.TerminatedAt, &a.TerminatedBy,
		&a.TerminationReason, &a.HospitalNotified, &a.NotifiedAt, &a.AccessCount,
		&a.LastAccessedAt, &a.CreatedAt)
	return &a, err
}

func (r *emergencyRepoPG) Create(ctx context.Context, a *Access) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_access (id, patient_id, triggered_by, trigger_reason,
			trigger_keyword, status, granted_at, expires_at, hospital_notified, notified_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.PatientID, a.TriggeredBy, a.TriggerReason, a.TriggerKeyword,
		a.Status, a.GrantedAt, a.ExpiresAt, a.HospitalNotified, a.NotifiedAt)
	return err
}

func (r *emergencyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Access, error) {
	return scanAccess(r.conn(ctx).QueryRow(ctx, `SELECT `+accessCols+` FROM emergency_access WHERE id = $1`, id))
}

func (r *emergencyRepoPG) Update(ctx context.Context, a *Access) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_access
		SET status = $2, terminated_at = $3, terminated_by = $4, termination_reason = $5,
			hospital_notified = $6, notified_at = $7
		WHERE id = $1`,
		a.ID, a.Status, a.TerminatedAt, a.TerminatedBy, a.TerminationReason,
		a.HospitalNotified, a.NotifiedAt)
	return err
}

func (r *emergencyRepoPG) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) (*Access, error) {
	return scanAccess(r.conn(ctx).QueryRow(ctx, `
		UPDATE emergency_access
		SET access_count = access_count + 1,
			last_accessed_at = $2,
			status = 'active'
		WHERE id = $1
		RETURNING `+accessCols, id, at))
}

func (r *emergencyRepoPG) ListOpen(ctx context.Context) ([]*Access, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+accessCols+` FROM emergency_access
		WHERE status IN ('granted', 'active')
		ORDER BY granted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Access
	for rows.Next() {
		a, err := scanAccess(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *emergencyRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Access, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM emergency_access WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+accessCols+` FROM emergency_access
		WHERE patient_id = $1
		ORDER BY granted_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Access
	for rows.Next() {
		a, err := scanAccess(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}
