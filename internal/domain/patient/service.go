package patient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/domain/audit"
)

type Service struct {
	patients Repository
	auditor  *audit.Service
}

func NewService(patients Repository, auditor *audit.Service) *Service {
	return &Service{patients: patients, auditor: auditor}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient, actorID string) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if p.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("date_of_birth cannot be in the future")
	}
	if p.Country == "" {
		p.Country = "India"
	}
	p.RegisteredBy = actorID

	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionPatientCreated,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		PatientID:    &p.ID,
		Description:  fmt.Sprintf("Patient record created for %s %s", p.FirstName, p.LastName),
		Success:      true,
	})
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient, actorID string) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionPatientUpdated,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		PatientID:    &p.ID,
		Description:  "Patient record updated",
		Success:      true,
	})
	return nil
}

func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Deactivate(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}

// HashFingerprint digests raw fingerprint template bytes. Raw biometric
// data never reaches storage.
func HashFingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// LinkBiometric attaches a fingerprint hash to a patient. One hash maps
// to exactly one patient; the unique constraint rejects duplicates.
func (s *Service) LinkBiometric(ctx context.Context, patientID uuid.UUID, fingerprintHash string) (*BiometricHash, error) {
	if fingerprintHash == "" {
		return nil, fmt.Errorf("fingerprint_hash is required")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient not found")
	}
	b := &BiometricHash{PatientID: patientID, FingerprintHash: fingerprintHash}
	if err := s.patients.LinkBiometric(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// IdentifyByFingerprint resolves a patient from a fingerprint hash.
func (s *Service) IdentifyByFingerprint(ctx context.Context, fingerprintHash string) (*Patient, error) {
	if fingerprintHash == "" {
		return nil, fmt.Errorf("fingerprint_hash is required")
	}
	return s.patients.GetByFingerprint(ctx, fingerprintHash)
}
