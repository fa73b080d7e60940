package bloodreport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/reportparse"
)

const sampleReport = `
COMPLETE BLOOD COUNT
Hemoglobin: 13.2 g/dL
RBC: 4.8 million/uL
WBC: 6.7 thousand/uL
Platelet: 250 thousand/uL
Hematocrit: 41 %
`

type mockReportRepo struct {
	reports []*Report
}

func (m *mockReportRepo) Create(_ context.Context, r *Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.UploadedAt = time.Now().UTC()
	cp := *r
	m.reports = append(m.reports, &cp)
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("report not found")
}

func (m *mockReportRepo) GetByHash(_ context.Context, patientID uuid.UUID, fileHash string) (*Report, error) {
	for _, r := range m.reports {
		if r.PatientID == patientID && r.FileHash == fileHash {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockReportRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Report, int, error) {
	var out []*Report
	for _, r := range m.reports {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type allowedConsentRepo struct {
	allowed map[uuid.UUID][]string
}

func (m *allowedConsentRepo) Create(_ context.Context, _ *consent.Consent) error { return nil }
func (m *allowedConsentRepo) Update(_ context.Context, _ *consent.Consent) error { return nil }
func (m *allowedConsentRepo) GetByID(_ context.Context, _ uuid.UUID) (*consent.Consent, error) {
	return nil, errors.New("not found")
}

func (m *allowedConsentRepo) FindGranted(_ context.Context, _ uuid.UUID, _ consent.Purpose, _ *string) (*consent.Consent, error) {
	return nil, nil
}

func (m *allowedConsentRepo) FindActiveFor(_ context.Context, patientID uuid.UUID, purpose consent.Purpose, requester *string) ([]*consent.Consent, error) {
	if purpose != consent.PurposeTreatment || requester == nil {
		return nil, nil
	}
	for _, id := range m.allowed[patientID] {
		if id == *requester {
			return []*consent.Consent{{Granted: true}}, nil
		}
	}
	return nil, nil
}

func (m *allowedConsentRepo) ListByPatient(_ context.Context, _ uuid.UUID, _, _ int) ([]*consent.Consent, int, error) {
	return nil, 0, nil
}

type recordingAuditRepo struct {
	entries []*audit.Entry
}

func (m *recordingAuditRepo) Create(_ context.Context, e *audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *recordingAuditRepo) GetByID(_ context.Context, _ uuid.UUID) (*audit.Entry, error) {
	return nil, errors.New("not found")
}

func (m *recordingAuditRepo) ListByPatient(_ context.Context, _ uuid.UUID, _, _ int) ([]*audit.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *recordingAuditRepo) ListByActor(_ context.Context, _ string, _, _ int) ([]*audit.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *recordingAuditRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*audit.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *recordingAuditRepo) PurgeBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService(patientID uuid.UUID, allowedDoctors ...string) (*Service, *mockReportRepo, *recordingAuditRepo) {
	repo := &mockReportRepo{}
	audits := &recordingAuditRepo{}
	consents := &allowedConsentRepo{allowed: map[uuid.UUID][]string{patientID: allowedDoctors}}
	svc := NewService(repo, consent.NewService(consents, nil), audit.NewService(audits, zerolog.Nop(), 0))
	return svc, repo, audits
}

func TestUpload_ParsesAndStores(t *testing.T) {
	patientID := uuid.New()
	svc, repo, audits := newTestService(patientID, "doc-1")

	rep, err := svc.Upload(context.Background(), patientID, "cbc.txt", []byte(sampleReport), nil, nil, "doc-1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rep.ReportType != reportparse.TypeCBC {
		t.Errorf("report_type = %s, want cbc", rep.ReportType)
	}
	if got := rep.Values["hemoglobin"]; got != 13.2 {
		t.Errorf("hemoglobin = %v, want 13.2", got)
	}
	if rep.Confidence <= 0 {
		t.Error("confidence should be positive")
	}
	if rep.FileHash != reportparse.FileHash([]byte(sampleReport)) {
		t.Error("file hash mismatch")
	}
	if len(repo.reports) != 1 {
		t.Fatalf("stored %d reports, want 1", len(repo.reports))
	}
	if len(audits.entries) != 1 || audits.entries[0].Action != audit.ActionReportUploaded {
		t.Error("expected a report_uploaded audit entry")
	}
}

func TestUpload_DuplicateDetected(t *testing.T) {
	patientID := uuid.New()
	svc, repo, _ := newTestService(patientID, "doc-1")

	first, err := svc.Upload(context.Background(), patientID, "cbc.txt", []byte(sampleReport), nil, nil, "doc-1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	existing, err := svc.Upload(context.Background(), patientID, "cbc-copy.txt", []byte(sampleReport), nil, nil, "doc-1")
	if !errors.Is(err, ErrDuplicateReport) {
		t.Fatalf("err = %v, want ErrDuplicateReport", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Error("duplicate upload should surface the original report")
	}
	if len(repo.reports) != 1 {
		t.Fatalf("stored %d reports, want 1", len(repo.reports))
	}
}

func TestUpload_UnparseableRejected(t *testing.T) {
	patientID := uuid.New()
	svc, _, _ := newTestService(patientID, "doc-1")

	_, err := svc.Upload(context.Background(), patientID, "note.txt", []byte("see attached, thanks"), nil, nil, "doc-1")
	if !errors.Is(err, ErrNothingFound) {
		t.Fatalf("err = %v, want ErrNothingFound", err)
	}
	if _, err := svc.Upload(context.Background(), patientID, "empty.txt", nil, nil, nil, "doc-1"); err == nil {
		t.Error("empty document must be rejected")
	}
}

func TestGet_ConsentGated(t *testing.T) {
	patientID := uuid.New()
	svc, _, _ := newTestService(patientID, "doc-1")

	rep, err := svc.Upload(context.Background(), patientID, "cbc.txt", []byte(sampleReport), nil, nil, "doc-1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, err := svc.Get(context.Background(), rep.ID, "doc-1", auth.RoleDoctor); err != nil {
		t.Errorf("consented doctor read: %v", err)
	}
	if _, err := svc.Get(context.Background(), rep.ID, "doc-2", auth.RoleDoctor); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("unconsented doctor: err = %v, want ErrAccessDenied", err)
	}
	if _, err := svc.Get(context.Background(), rep.ID, patientID.String(), auth.RolePatient); err != nil {
		t.Errorf("patient reading own report: %v", err)
	}
	if _, err := svc.Get(context.Background(), rep.ID, "admin-1", auth.RoleAdmin); err != nil {
		t.Errorf("admin read: %v", err)
	}
}
