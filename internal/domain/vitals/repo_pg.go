package vitals

import (
	"context"
	"fmt"
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

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &vitalsRepoPG{pool: pool}
}

func (r *vitalsRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vitalCols = `id, patient_id, vital_type, value, unit, source, source_id,
	recorded_at, checksum, batch_id, notes, uploaded_at, uploaded_by`

func (r *vitalsRepoPG) scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	err := row.Scan(&v.ID, &v.PatientID, &v.VitalType, &v.Value, &v.Unit,
		&v.Source, &v.SourceID, &v.RecordedAt, &v.Checksum, &v.BatchID,
		&v.Notes, &v.UploadedAt, &v.UploadedBy)
	return &v, err
}

func (r *vitalsRepoPG) Create(ctx context.Context, v *Vital) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals (id, patient_id, vital_type, value, unit, source, source_id,
			recorded_at, checksum, batch_id, notes, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.PatientID, v.VitalType, v.Value, v.Unit, v.Source, v.SourceID,
		v.RecordedAt, v.Checksum, v.BatchID, v.Notes, v.UploadedBy)
	return err
}

func (r *vitalsRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vital, error) {
	return r.scanVital(r.conn(ctx).QueryRow(ctx, `SELECT `+vitalCols+` FROM vitals WHERE id = $1`, id))
}

func (r *vitalsRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM vitals WHERE id = $1`, id)
	return err
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, vitalType string, limit, offset int) ([]*Vital, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2
	if vitalType != "" {
		where += fmt.Sprintf(` AND vital_type = $%d`, idx)
		args = append(args, vitalType)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vitals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + vitalCols + ` FROM vitals` + where +
		fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Vital
	for rows.Next() {
		v, err := r.scanVital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

func (r *vitalsRepoPG) ExistsDuplicate(ctx context.Context, patientID uuid.UUID, vitalType string, value float64, recordedAt time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vitals
			WHERE patient_id = $1 AND vital_type = $2 AND value = $3 AND recorded_at = $4
		)`, patientID, vitalType, value, recordedAt).Scan(&exists)
	return exists, err
}

const testCols = `id, patient_id, test_type, result, numeric_value, unit, source, source_id,
	performed_at, notes, batch_id, uploaded_at, uploaded_by`

func (r *vitalsRepoPG) scanTest(row pgx.Row) (*MedicalTest, error) {
	var t MedicalTest
	err := row.Scan(&t.ID, &t.PatientID, &t.TestType, &t.Result, &t.NumericValue,
		&t.Unit, &t.Source, &t.SourceID, &t.PerformedAt, &t.Notes, &t.BatchID,
		&t.UploadedAt, &t.UploadedBy)
	return &t, err
}

func (r *vitalsRepoPG) CreateTest(ctx context.Context, t *MedicalTest) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_tests (id, patient_id, test_type, result, numeric_value, unit,
			source, source_id, performed_at, notes, batch_id, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.PatientID, t.TestType, t.Result, t.NumericValue, t.Unit,
		t.Source, t.SourceID, t.PerformedAt, t.Notes, t.BatchID, t.UploadedBy)
	return err
}

func (r *vitalsRepoPG) GetTestByID(ctx context.Context, id uuid.UUID) (*MedicalTest, error) {
	return r.scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM medical_tests WHERE id = $1`, id))
}

func (r *vitalsRepoPG) DeleteTest(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_tests WHERE id = $1`, id)
	return err
}

func (r *vitalsRepoPG) ListTestsByPatient(ctx context.Context, patientID uuid.UUID, testType string, limit, offset int) ([]*MedicalTest, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2
	if testType != "" {
		where += fmt.Sprintf(` AND test_type = $%d`, idx)
		args = append(args, testType)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_tests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + testCols + ` FROM medical_tests` + where +
		fmt.Sprintf(` ORDER BY performed_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalTest
	for rows.Next() {
		t, err := r.scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}
