package alert

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

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &alertRepoPG{pool: pool}
}

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const alertCols = `id, patient_id, alert_type, severity, title, description, vital_id,
	trigger_value, acknowledged, acknowledged_by, acknowledged_at,
	resolved, resolved_by, resolved_at, created_at`

func (r *alertRepoPG) scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.PatientID, &a.AlertType, &a.Severity, &a.Title,
		&a.Description, &a.VitalID, &a.TriggerValue, &a.Acknowledged,
		&a.AcknowledgedBy, &a.AcknowledgedAt, &a.Resolved, &a.ResolvedBy,
		&a.ResolvedAt, &a.CreatedAt)
	return &a, err
}

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO alerts (id, patient_id, alert_type, severity, title, description,
			vital_id, trigger_value)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.PatientID, a.AlertType, a.Severity, a.Title, a.Description,
		a.VitalID, a.TriggerValue)
	return err
}

func (r *alertRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return r.scanAlert(r.conn(ctx).QueryRow(ctx, `SELECT `+alertCols+` FROM alerts WHERE id = $1`, id))
}

func (r *alertRepoPG) Update(ctx context.Context, a *Alert) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE alerts SET acknowledged=$2, acknowledged_by=$3, acknowledged_at=$4,
			resolved=$5, resolved_by=$6, resolved_at=$7
		WHERE id = $1`,
		a.ID, a.Acknowledged, a.AcknowledgedBy, a.AcknowledgedAt,
		a.Resolved, a.ResolvedBy, a.ResolvedAt)
	return err
}

func (r *alertRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+alertCols+` FROM alerts WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *alertRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Alert, int, error) {
	query := `SELECT ` + alertCols + ` FROM alerts WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM alerts WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["patient"]; ok {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["severity"]; ok {
		query += fmt.Sprintf(` AND severity = $%d`, idx)
		countQuery += fmt.Sprintf(` AND severity = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["acknowledged"]; ok {
		query += fmt.Sprintf(` AND acknowledged = $%d`, idx)
		countQuery += fmt.Sprintf(` AND acknowledged = $%d`, idx)
		args = append(args, p == "true")
		idx++
	}
	if p, ok := params["resolved"]; ok {
		query += fmt.Sprintf(` AND resolved = $%d`, idx)
		countQuery += fmt.Sprintf(` AND resolved = $%d`, idx)
		args = append(args, p == "true")
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

func (r *alertRepoPG) collect(rows pgx.Rows, total int) ([]*Alert, int, error) {
	var items []*Alert
	for rows.Next() {
		a, err := r.scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}
