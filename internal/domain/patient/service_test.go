package patient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/audit"
)

// -- Mock Repositories --

type mockPatientRepo struct {
	store      map[uuid.UUID]*Patient
	biometrics map[string]uuid.UUID
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		store:      make(map[uuid.UUID]*Patient),
		biometrics: make(map[string]uuid.UUID),
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.IsActive = true
	m.store[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := m.store[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	p.IsActive = false
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var r []*Patient
	for _, p := range m.store {
		if p.IsActive {
			r = append(r, p)
		}
	}
	return r, len(r), nil
}

func (m *mockPatientRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return m.List(nil, limit, offset)
}

func (m *mockPatientRepo) LinkBiometric(_ context.Context, b *BiometricHash) error {
	if _, exists := m.biometrics[b.FingerprintHash]; exists {
		return fmt.Errorf("duplicate fingerprint hash")
	}
	b.ID = uuid.New()
	m.biometrics[b.FingerprintHash] = b.PatientID
	return nil
}

func (m *mockPatientRepo) GetByFingerprint(_ context.Context, hash string) (*Patient, error) {
	pid, ok := m.biometrics[hash]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return m.GetByID(nil, pid)
}

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *audit.Entry) error { return nil }
func (nopAuditRepo) GetByID(context.Context, uuid.UUID) (*audit.Entry, error) {
	return nil, fmt.Errorf("not found")
}
func (nopAuditRepo) ListByPatient(context.Context, uuid.UUID, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}
func (nopAuditRepo) ListByActor(context.Context, string, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}
func (nopAuditRepo) Search(context.Context, map[string]string, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}
func (nopAuditRepo) PurgeBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func newTestService(repo *mockPatientRepo) *Service {
	auditor := audit.NewService(nopAuditRepo{}, zerolog.Nop(), 0)
	return NewService(repo, auditor)
}

// -- Service Tests --

func TestCreatePatient_Success(t *testing.T) {
	svc := newTestService(newMockPatientRepo())
	p := &Patient{
		FirstName:   "Asha",
		LastName:    "Verma",
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	}
	if err := svc.CreatePatient(context.Background(), p, "doctor-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.RegisteredBy != "doctor-1" {
		t.Errorf("expected registered_by doctor-1, got %q", p.RegisteredBy)
	}
	if p.Country != "India" {
		t.Errorf("expected default country, got %q", p.Country)
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := newTestService(newMockPatientRepo())
	ctx := context.Background()

	if err := svc.CreatePatient(ctx, &Patient{LastName: "X", DateOfBirth: time.Now().AddDate(-20, 0, 0)}, "d1"); err == nil {
		t.Error("expected error for missing first_name")
	}
	if err := svc.CreatePatient(ctx, &Patient{FirstName: "A", LastName: "B"}, "d1"); err == nil {
		t.Error("expected error for missing date_of_birth")
	}
	future := &Patient{FirstName: "A", LastName: "B", DateOfBirth: time.Now().AddDate(1, 0, 0)}
	if err := svc.CreatePatient(ctx, future, "d1"); err == nil {
		t.Error("expected error for future date_of_birth")
	}
}

func TestLinkBiometric_AndIdentify(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p := &Patient{FirstName: "Ravi", LastName: "Nair", DateOfBirth: time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := svc.CreatePatient(ctx, p, "doctor-1"); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	hash := HashFingerprint([]byte("fingerprint-template"))
	if _, err := svc.LinkBiometric(ctx, p.ID, hash); err != nil {
		t.Fatalf("link biometric: %v", err)
	}

	found, err := svc.IdentifyByFingerprint(ctx, hash)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if found.ID != p.ID {
		t.Errorf("expected patient %s, got %s", p.ID, found.ID)
	}
}

func TestLinkBiometric_DuplicateHash(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p1 := &Patient{FirstName: "A", LastName: "B", DateOfBirth: time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)}
	p2 := &Patient{FirstName: "C", LastName: "D", DateOfBirth: time.Date(1986, 1, 1, 0, 0, 0, 0, time.UTC)}
	_ = svc.CreatePatient(ctx, p1, "d1")
	_ = svc.CreatePatient(ctx, p2, "d1")

	hash := HashFingerprint([]byte("same-print"))
	if _, err := svc.LinkBiometric(ctx, p1.ID, hash); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if _, err := svc.LinkBiometric(ctx, p2.ID, hash); err == nil {
		t.Error("expected error linking same fingerprint to second patient")
	}
}

func TestLinkBiometric_UnknownPatient(t *testing.T) {
	svc := newTestService(newMockPatientRepo())
	if _, err := svc.LinkBiometric(context.Background(), uuid.New(), "abc"); err == nil {
		t.Error("expected error for unknown patient")
	}
}

func TestHashFingerprint_NoRawDataStored(t *testing.T) {
	raw := []byte("raw template bytes")
	hash := HashFingerprint(raw)
	if hash == string(raw) {
		t.Error("hash must not equal raw input")
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hash))
	}
	if hash != HashFingerprint(raw) {
		t.Error("hash must be deterministic")
	}
}
