package bloodreport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/reportparse"
)

var (
	ErrDuplicateReport = errors.New("this document was already uploaded for the patient")
	ErrNothingFound    = errors.New("no recognizable lab values in document")
	ErrAccessDenied    = errors.New("no active consent covers this request")
)

type Service struct {
	reports  Repository
	consents *consent.Service
	auditor  *audit.Service
}

func NewService(reports Repository, consents *consent.Service, auditor *audit.Service) *Service {
	return &Service{reports: reports, consents: consents, auditor: auditor}
}

// Upload parses a lab document's text, rejects re-uploads of the same
// content and stores the extracted values.
func (s *Service) Upload(ctx context.Context, patientID uuid.UUID, fileName string, content []byte, reportDate *time.Time, labName *string, actorID string) (*Report, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	hash := reportparse.FileHash(content)
	if existing, err := s.reports.GetByHash(ctx, patientID, hash); err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	} else if existing != nil {
		return existing, ErrDuplicateReport
	}

	parsed := reportparse.Parse(string(content))
	if len(parsed.Values) == 0 {
		return nil, ErrNothingFound
	}

	rep := &Report{
		PatientID:  patientID,
		FileName:   fileName,
		FileHash:   hash,
		ReportType: parsed.ReportType,
		Values:     parsed.Values,
		Confidence: parsed.Confidence,
		ReportDate: reportDate,
		LabName:    labName,
		UploadedBy: actorID,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionReportUploaded,
		ResourceType: "blood_report",
		ResourceID:   rep.ID.String(),
		PatientID:    &patientID,
		Description:  fmt.Sprintf("Blood report %s uploaded with %d parsed values", fileName, len(rep.Values)),
		Success:      true,
		Details: map[string]any{
			"report_type": string(rep.ReportType),
			"fields":      len(rep.Values),
		},
	})
	return rep, nil
}

// authorize mirrors the vitals access rule: admins pass, patients read
// their own reports, doctors need treatment consent.
func (s *Service) authorize(ctx context.Context, patientID uuid.UUID, actorID string, role auth.Role) error {
	switch role {
	case auth.RoleAdmin:
		return nil
	case auth.RolePatient:
		if actorID == patientID.String() {
			return nil
		}
		return ErrAccessDenied
	}
	active, err := s.consents.IsActive(ctx, patientID, consent.PurposeTreatment, &actorID)
	if err != nil {
		return err
	}
	if !active {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actorID string, role auth.Role) (*Report, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, rep.PatientID, actorID, role); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int, actorID string, role auth.Role) ([]*Report, int, error) {
	if err := s.authorize(ctx, patientID, actorID, role); err != nil {
		return nil, 0, err
	}
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}
