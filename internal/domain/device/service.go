package device

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carevault/carevault/internal/domain/audit"
)

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrInvalidCredential = errors.New("invalid device credentials")
	ErrDeviceInactive    = errors.New("device is deactivated")
)

type Service struct {
	devices Repository
	auditor *audit.Service
}

func NewService(devices Repository, auditor *audit.Service) *Service {
	return &Service{devices: devices, auditor: auditor}
}

// Register pairs a device with a patient and mints its API key. The
// plaintext key is returned exactly once; only the bcrypt hash is
// stored.
func (s *Service) Register(ctx context.Context, d *Device, actorID string) (*Device, string, error) {
	if d.DeviceID == "" {
		return nil, "", fmt.Errorf("device_id is required")
	}
	if d.DeviceType == "" {
		return nil, "", fmt.Errorf("device_type is required")
	}
	if d.PatientID == uuid.Nil {
		return nil, "", fmt.Errorf("patient_id is required")
	}
	if existing, err := s.devices.GetByDeviceID(ctx, d.DeviceID); err == nil && existing != nil {
		return nil, "", fmt.Errorf("device %q is already registered", d.DeviceID)
	}

	key, err := newAPIKey()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash api key: %w", err)
	}
	d.APIKeyHash = string(hash)
	d.IsActive = true
	d.RegisteredBy = actorID

	if err := s.devices.Create(ctx, d); err != nil {
		return nil, "", fmt.Errorf("store device: %w", err)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionDeviceRegistered,
		ResourceType: "device",
		ResourceID:   d.ID.String(),
		PatientID:    &d.PatientID,
		Description:  fmt.Sprintf("Device %s (%s) registered", d.DeviceID, d.DeviceType),
		Success:      true,
		Details:      map[string]any{"device_id": d.DeviceID, "device_type": d.DeviceType},
	})
	return d, key, nil
}

// Authenticate verifies a device's credentials. A missing device still
// burns a bcrypt comparison against a dummy hash, keeping the unknown-id
// and wrong-key paths indistinguishable by timing.
func (s *Service) Authenticate(ctx context.Context, deviceID, apiKey string) (*Device, error) {
	d, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil || d == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(apiKey))
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(d.APIKeyHash), []byte(apiKey)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !d.IsActive {
		return nil, ErrDeviceInactive
	}
	return d, nil
}

// Heartbeat records that a device was seen. Ingestion calls this on
// every accepted batch.
func (s *Service) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return s.devices.TouchLastSeen(ctx, id, time.Now().UTC())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Device, error) {
	return s.devices.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Device, int, error) {
	return s.devices.ListByPatient(ctx, patientID, limit, offset)
}

// Deactivate cuts a device off from ingestion. Its readings stay.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actorID string) error {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return ErrDeviceNotFound
	}
	if err := s.devices.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionDeviceDeactivated,
		ResourceType: "device",
		ResourceID:   id.String(),
		PatientID:    &d.PatientID,
		Description:  fmt.Sprintf("Device %s deactivated", d.DeviceID),
		Success:      true,
		Details:      map[string]any{"device_id": d.DeviceID},
	})
	return nil
}

// dummyHash is a bcrypt hash of an unknowable random value, used to
// equalize timing when the device id itself is wrong. It must carry
// the same cost as stored key hashes or the compare finishes early
// and the unknown-id path stays distinguishable.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("carevault-dummy-credential"), bcrypt.DefaultCost)
	return h
}()

func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "cvk_" + hex.EncodeToString(buf), nil
}
