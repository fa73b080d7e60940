package vitals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/alert"
	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/auth"
)

var (
	ErrUnknownVitalType   = errors.New("unknown vital type")
	ErrChecksumMismatch   = errors.New("checksum does not match reading")
	ErrNoTreatmentConsent = errors.New("no active treatment consent for patient")
)

type patientGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	vitals   Repository
	patients patientGetter
	consents *consent.Service
	alerts   *alert.Service
	auditor  *audit.Service
	inTx     consent.TxRunner
	log      zerolog.Logger
}

func NewService(vitals Repository, patients patientGetter, consents *consent.Service, alerts *alert.Service, auditor *audit.Service, inTx consent.TxRunner, log zerolog.Logger) *Service {
	if inTx == nil {
		inTx = consent.PassthroughTx
	}
	return &Service{
		vitals:   vitals,
		patients: patients,
		consents: consents,
		alerts:   alerts,
		auditor:  auditor,
		inTx:     inTx,
		log:      log.With().Str("component", "vitals").Logger(),
	}
}

// authorize checks that the actor may touch this patient's record.
// Admins pass, patients pass for their own record, doctors need an
// active treatment consent.
func (s *Service) authorize(ctx context.Context, patientID uuid.UUID, actorID string, role auth.Role) error {
	switch role {
	case auth.RoleAdmin:
		return nil
	case auth.RolePatient:
		if actorID == patientID.String() {
			return nil
		}
		return ErrNoTreatmentConsent
	}
	active, err := s.consents.IsActive(ctx, patientID, consent.PurposeTreatment, &actorID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNoTreatmentConsent
	}
	return nil
}

// UploadVital stores a single reading, runs it through the alert rules
// and writes an audit entry. The unit is always taken from the vital
// type registry so stored readings stay comparable.
func (s *Service) UploadVital(ctx context.Context, v *Vital, actorID string, role auth.Role) (*Vital, *alert.Alert, error) {
	unit, ok := VitalUnits[v.VitalType]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownVitalType, v.VitalType)
	}
	v.Unit = unit
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	if v.Source == "" {
		v.Source = SourceManual
	}
	if _, err := s.patients.GetByID(ctx, v.PatientID); err != nil {
		return nil, nil, fmt.Errorf("patient %s: %w", v.PatientID, err)
	}
	if err := s.authorize(ctx, v.PatientID, actorID, role); err != nil {
		return nil, nil, err
	}
	if v.Checksum != nil {
		want := Checksum(v.PatientID, v.VitalType, v.Value, v.RecordedAt)
		if *v.Checksum != want {
			return nil, nil, ErrChecksumMismatch
		}
	}
	v.UploadedBy = &actorID
	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, nil, fmt.Errorf("store vital: %w", err)
	}

	a, err := s.alerts.Evaluate(ctx, alert.Reading{
		VitalID:   v.ID,
		PatientID: v.PatientID,
		VitalType: v.VitalType,
		Value:     v.Value,
	})
	if err != nil {
		s.log.Error().Err(err).Str("vital_id", v.ID.String()).Msg("alert evaluation failed")
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		ActorRole:    string(role),
		Action:       audit.ActionVitalUploaded,
		ResourceType: "vital",
		ResourceID:   v.ID.String(),
		PatientID:    &v.PatientID,
		Description:  fmt.Sprintf("Vital %s recorded", v.VitalType),
		Success:      true,
		Details:      map[string]any{"vital_type": v.VitalType, "value": v.Value},
	})
	return v, a, nil
}

// BatchItem is one reading inside a batch upload.
type BatchItem struct {
	VitalType  string     `json:"vital_type"`
	Value      float64    `json:"value"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	Checksum   *string    `json:"checksum,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// BatchResult summarizes a batch upload. Errors holds one message per
// rejected item, indexed messages so callers can map them back.
type BatchResult struct {
	BatchID  string   `json:"batch_id"`
	Uploaded int      `json:"uploaded"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Alerts   int      `json:"alerts_generated"`
}

// BatchUpload validates every item, skips exact duplicates, then
// commits all accepted readings in a single transaction. Either every
// accepted reading lands or none do.
func (s *Service) BatchUpload(ctx context.Context, patientID uuid.UUID, items []BatchItem, source Source, actorID string, role auth.Role) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	if err := s.authorize(ctx, patientID, actorID, role); err != nil {
		return nil, err
	}
	if source == "" {
		source = SourceDevice
	}

	batchID := uuid.NewString()
	res := &BatchResult{BatchID: batchID}
	accepted := make([]*Vital, 0, len(items))

	for i, it := range items {
		unit, ok := VitalUnits[it.VitalType]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("item %d: unknown vital type %q", i, it.VitalType))
			continue
		}
		recordedAt := time.Now().UTC()
		if it.RecordedAt != nil {
			recordedAt = *it.RecordedAt
		}
		if it.Checksum != nil {
			want := Checksum(patientID, it.VitalType, it.Value, recordedAt)
			if *it.Checksum != want {
				res.Errors = append(res.Errors, fmt.Sprintf("item %d: checksum mismatch", i))
				continue
			}
		}
		dup, err := s.vitals.ExistsDuplicate(ctx, patientID, it.VitalType, it.Value, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if dup {
			res.Skipped++
			continue
		}
		accepted = append(accepted, &Vital{
			PatientID:  patientID,
			VitalType:  it.VitalType,
			Value:      it.Value,
			Unit:       unit,
			Source:     source,
			RecordedAt: recordedAt,
			Checksum:   it.Checksum,
			BatchID:    &batchID,
			Notes:      it.Notes,
			UploadedBy: &actorID,
		})
	}

	// Readings within the batch can duplicate each other too, not just
	// what is already stored.
	seen := make(map[string]bool, len(accepted))
	deduped := accepted[:0]
	for _, v := range accepted {
		key := Checksum(v.PatientID, v.VitalType, v.Value, v.RecordedAt)
		if seen[key] {
			res.Skipped++
			continue
		}
		seen[key] = true
		deduped = append(deduped, v)
	}
	accepted = deduped

	err := s.inTx(ctx, func(ctx context.Context) error {
		for _, v := range accepted {
			if err := s.vitals.Create(ctx, v); err != nil {
				return fmt.Errorf("store vital %s: %w", v.VitalType, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Uploaded = len(accepted)

	readings := make([]alert.Reading, 0, len(accepted))
	for _, v := range accepted {
		readings = append(readings, alert.Reading{
			VitalID:   v.ID,
			PatientID: v.PatientID,
			VitalType: v.VitalType,
			Value:     v.Value,
		})
	}
	res.Alerts = len(s.alerts.EvaluateBatch(ctx, readings))

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		ActorRole:    string(role),
		Action:       audit.ActionBatchUpload,
		ResourceType: "vital_batch",
		ResourceID:   batchID,
		PatientID:    &patientID,
		Description:  fmt.Sprintf("Batch upload: %d stored, %d skipped", res.Uploaded, res.Skipped),
		Success:      true,
		Details: map[string]any{
			"uploaded": res.Uploaded,
			"skipped":  res.Skipped,
			"errors":   len(res.Errors),
		},
	})
	return res, nil
}

func (s *Service) GetVital(ctx context.Context, id uuid.UUID, actorID string, role auth.Role) (*Vital, error) {
	v, err := s.vitals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, v.PatientID, actorID, role); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, vitalType string, limit, offset int, actorID string, role auth.Role) ([]*Vital, int, error) {
	if err := s.authorize(ctx, patientID, actorID, role); err != nil {
		return nil, 0, err
	}
	return s.vitals.ListByPatient(ctx, patientID, vitalType, limit, offset)
}

// DeleteVital hard-deletes a reading. Admin only, enforced at the
// route level; the service just records who did it.
func (s *Service) DeleteVital(ctx context.Context, id uuid.UUID, actorID string) error {
	v, err := s.vitals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.vitals.Delete(ctx, id); err != nil {
		return err
	}
	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionVitalDeleted,
		ResourceType: "vital",
		ResourceID:   id.String(),
		PatientID:    &v.PatientID,
		Description:  fmt.Sprintf("Vital %s deleted", v.VitalType),
		Success:      true,
		Details:      map[string]any{"deleted": true, "vital_type": v.VitalType},
	})
	return nil
}

func (s *Service) RecordTest(ctx context.Context, t *MedicalTest, actorID string, role auth.Role) (*MedicalTest, error) {
	if t.TestType == "" {
		return nil, fmt.Errorf("test_type is required")
	}
	switch t.Result {
	case ResultPositive, ResultNegative, ResultInconclusive:
	case ResultNumeric:
		if t.NumericValue == nil {
			return nil, fmt.Errorf("numeric result requires numeric_value")
		}
	default:
		return nil, fmt.Errorf("invalid result %q", t.Result)
	}
	if t.PerformedAt.IsZero() {
		t.PerformedAt = time.Now().UTC()
	}
	if t.Source == "" {
		t.Source = SourceLab
	}
	if _, err := s.patients.GetByID(ctx, t.PatientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", t.PatientID, err)
	}
	if err := s.authorize(ctx, t.PatientID, actorID, role); err != nil {
		return nil, err
	}
	t.UploadedBy = &actorID
	if err := s.vitals.CreateTest(ctx, t); err != nil {
		return nil, fmt.Errorf("store test: %w", err)
	}
	return t, nil
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID, actorID string, role auth.Role) (*MedicalTest, error) {
	t, err := s.vitals.GetTestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, t.PatientID, actorID, role); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTestsByPatient(ctx context.Context, patientID uuid.UUID, testType string, limit, offset int, actorID string, role auth.Role) ([]*MedicalTest, int, error) {
	if err := s.authorize(ctx, patientID, actorID, role); err != nil {
		return nil, 0, err
	}
	return s.vitals.ListTestsByPatient(ctx, patientID, testType, limit, offset)
}
