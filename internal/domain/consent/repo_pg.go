package consent

import (
	"context"
	"errors"

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

type consentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &consentRepoPG{pool: pool}
}

func (r *consentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const consentCols = `id, patient_id, purpose, granted, granted_at, granted_by, granted_to,
	revoked_at, revoked_by, consent_text, expiry_date, created_at, updated_at`

func (r *consentRepoPG) scanConsent(row pgx.Row) (*Consent, error) {
	var c Consent
	err := row.Scan(&c.ID, &c.PatientID, &c.Purpose, &c.Granted, &c.GrantedAt,
		&c.GrantedBy, &c.GrantedTo, &c.RevokedAt, &c.RevokedBy,
		&c.ConsentText, &c.ExpiryDate, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *consentRepoPG) Create(ctx context.Context, c *Consent) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consents (id, patient_id, purpose, granted, granted_at, granted_by,
			granted_to, consent_text, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.PatientID, c.Purpose, c.Granted, c.GrantedAt, c.GrantedBy,
		c.GrantedTo, c.ConsentText, c.ExpiryDate)
	return err
}

func (r *consentRepoPG) Update(ctx context.Context, c *Consent) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE consents SET granted=$2, revoked_at=$3, revoked_by=$4, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Granted, c.RevokedAt, c.RevokedBy)
	return err
}

func (r *consentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consent, error) {
	return r.scanConsent(r.conn(ctx).QueryRow(ctx, `SELECT `+consentCols+` FROM consents WHERE id = $1`, id))
}

func (r *consentRepoPG) FindGranted(ctx context.Context, patientID uuid.UUID, purpose Purpose, grantee *string) (*Consent, error) {
	c, err := r.scanConsent(r.conn(ctx).QueryRow(ctx, `
		SELECT `+consentCols+` FROM consents
		WHERE patient_id = $1 AND purpose = $2 AND granted
		  AND granted_to IS NOT DISTINCT FROM $3
		ORDER BY created_at DESC
		LIMIT 1`, patientID, purpose, grantee))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *consentRepoPG) FindActiveFor(ctx context.Context, patientID uuid.UUID, purpose Purpose, requester *string) ([]*Consent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+consentCols+` FROM consents
		WHERE patient_id = $1 AND purpose = $2 AND granted
		  AND (granted_to IS NULL OR granted_to = $3)
		ORDER BY created_at DESC`, patientID, purpose, requester)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consent
	for rows.Next() {
		c, err := r.scanConsent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

func (r *consentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consents WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+consentCols+` FROM consents WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Consent
	for rows.Next() {
		c, err := r.scanConsent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}
