package patient

import (
	"context"
	"fmt"

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

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, date_of_birth, gender, blood_group,
	email, phone, address, city, state, country, postal_code,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
	registered_by, is_active, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.BloodGroup, &p.Email, &p.Phone, &p.Address, &p.City, &p.State,
		&p.Country, &p.PostalCode, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.EmergencyContactRelationship, &p.RegisteredBy, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, date_of_birth, gender, blood_group,
			email, phone, address, city, state, country, postal_code,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
			registered_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.BloodGroup,
		p.Email, p.Phone, p.Address, p.City, p.State, p.Country, p.PostalCode,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelationship,
		p.RegisteredBy, true)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, gender=$4, blood_group=$5,
			email=$6, phone=$7, address=$8, city=$9, state=$10, country=$11,
			postal_code=$12, emergency_contact_name=$13, emergency_contact_phone=$14,
			emergency_contact_relationship=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Gender, p.BloodGroup,
		p.Email, p.Phone, p.Address, p.City, p.State, p.Country,
		p.PostalCode, p.EmergencyContactName, p.EmergencyContactPhone,
		p.EmergencyContactRelationship)
	return err
}

func (r *patientRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patients SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients WHERE is_active ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patients WHERE is_active`
	countQuery := `SELECT COUNT(*) FROM patients WHERE is_active`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		clause := fmt.Sprintf(` AND (first_name ILIKE '%%' || $%d || '%%' OR last_name ILIKE '%%' || $%d || '%%')`, idx, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}
	if p, ok := params["city"]; ok {
		query += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["blood_group"]; ok {
		query += fmt.Sprintf(` AND blood_group = $%d`, idx)
		countQuery += fmt.Sprintf(` AND blood_group = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *patientRepoPG) LinkBiometric(ctx context.Context, b *BiometricHash) error {
	b.ID = uuid.New()
	if b.HashAlgorithm == "" {
		b.HashAlgorithm = "SHA256"
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO biometric_hashes (id, patient_id, fingerprint_hash, hash_algorithm)
		VALUES ($1,$2,$3,$4)`,
		b.ID, b.PatientID, b.FingerprintHash, b.HashAlgorithm)
	return err
}

func (r *patientRepoPG) GetByFingerprint(ctx context.Context, fingerprintHash string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+prefixCols("p")+` FROM patients p
		JOIN biometric_hashes b ON b.patient_id = p.id
		WHERE b.fingerprint_hash = $1 AND p.is_active`, fingerprintHash))
}

func prefixCols(alias string) string {
	return alias + `.id, ` + alias + `.first_name, ` + alias + `.last_name, ` +
		alias + `.date_of_birth, ` + alias + `.gender, ` + alias + `.blood_group, ` +
		alias + `.email, ` + alias + `.phone, ` + alias + `.address, ` + alias + `.city, ` +
		alias + `.state, ` + alias + `.country, ` + alias + `.postal_code, ` +
		alias + `.emergency_contact_name, ` + alias + `.emergency_contact_phone, ` +
		alias + `.emergency_contact_relationship, ` + alias + `.registered_by, ` +
		alias + `.is_active, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func (r *patientRepoPG) collect(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
