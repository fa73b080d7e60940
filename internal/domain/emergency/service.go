package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/notification"
)

const DefaultAccessDuration = 2 * time.Hour

var (
	ErrAccessNotFound    = errors.New("emergency access not found")
	ErrPatientMismatch   = errors.New("emergency access does not cover this patient")
	ErrAccessExpired     = errors.New("emergency access has expired")
	ErrAccessTerminated  = errors.New("emergency access has been terminated")
	ErrAlreadyTerminated = errors.New("emergency access is already terminated")
)

type patientGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	accesses Repository
	patients patientGetter
	auditor  *audit.Service
	notifier notification.Sender
	duration time.Duration
	log      zerolog.Logger
}

func NewService(accesses Repository, patients patientGetter, auditor *audit.Service, notifier notification.Sender, duration time.Duration, log zerolog.Logger) *Service {
	if duration <= 0 {
		duration = DefaultAccessDuration
	}
	if notifier == nil {
		notifier = notification.NopSender{}
	}
	return &Service{
		accesses: accesses,
		patients: patients,
		auditor:  auditor,
		notifier: notifier,
		duration: duration,
		log:      log.With().Str("component", "emergency").Logger(),
	}
}

// Trigger opens a time-boxed consent bypass for a patient. The window
// length comes from configuration; hospital notification is best
// effort and its failure never blocks the grant.
func (s *Service) Trigger(ctx context.Context, patientID uuid.UUID, reason string, keyword *string, actorID string) (*Access, error) {
	if reason == "" {
		return nil, fmt.Errorf("trigger_reason is required")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}

	now := time.Now().UTC()
	a := &Access{
		PatientID:      patientID,
		TriggeredBy:    actorID,
		TriggerReason:  reason,
		TriggerKeyword: keyword,
		Status:         StatusGranted,
		GrantedAt:      now,
		ExpiresAt:      now.Add(s.duration),
	}
	if err := s.accesses.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("store emergency access: %w", err)
	}

	nerr := s.notifier.Send(ctx, &notification.Event{
		Type:      notification.EventEmergencyAccess,
		PatientID: patientID.String(),
		ActorID:   actorID,
		Message:   "Emergency access triggered: " + reason,
		Details: map[string]string{
			"access_id":  a.ID.String(),
			"expires_at": a.ExpiresAt.Format(time.RFC3339),
		},
	})
	if nerr != nil {
		s.log.Warn().Err(nerr).Str("access_id", a.ID.String()).Msg("hospital notification failed")
	} else {
		notified := time.Now().UTC()
		a.HospitalNotified = true
		a.NotifiedAt = &notified
		if err := s.accesses.Update(ctx, a); err != nil {
			s.log.Warn().Err(err).Str("access_id", a.ID.String()).Msg("could not record notification status")
		}
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionEmergencyTriggered,
		ResourceType: "emergency_access",
		ResourceID:   a.ID.String(),
		PatientID:    &patientID,
		Description:  "Emergency access triggered: " + reason,
		Success:      true,
		Details: map[string]any{
			"trigger_reason": reason,
			"expires_at":     a.ExpiresAt.Format(time.RFC3339),
		},
	})
	return a, nil
}

// AccessData reads a patient's record through an emergency window.
// Each successful call increments the access counter atomically and
// leaves its own audit entry.
func (s *Service) AccessData(ctx context.Context, accessID, patientID uuid.UUID, actorID string) (*Access, *patient.Patient, error) {
	a, err := s.accesses.GetByID(ctx, accessID)
	if err != nil {
		return nil, nil, ErrAccessNotFound
	}
	if a.PatientID != patientID {
		s.auditDenied(ctx, actorID, accessID, patientID, "access id does not belong to patient")
		return nil, nil, ErrPatientMismatch
	}
	now := time.Now().UTC()
	if a.Status == StatusTerminated {
		s.auditDenied(ctx, actorID, accessID, patientID, "emergency access already terminated")
		return nil, nil, ErrAccessTerminated
	}
	if a.Status == StatusExpired || a.HasExpired(now) {
		s.expire(ctx, a)
		s.auditDenied(ctx, actorID, accessID, patientID, "emergency access expired")
		return nil, nil, ErrAccessExpired
	}

	a, err = s.accesses.RecordAccess(ctx, accessID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("record access: %w", err)
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, fmt.Errorf("patient %s: %w", patientID, err)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionEmergencyAccess,
		ResourceType: "patient",
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Description:  fmt.Sprintf("Emergency read of patient record (access %d)", a.AccessCount),
		Success:      true,
		Details: map[string]any{
			"emergency_access_id": accessID.String(),
			"access_count":        a.AccessCount,
		},
	})
	return a, p, nil
}

// auditDenied leaves a failure entry for an emergency read that was
// refused. Denied break-glass attempts are as interesting to an
// auditor as granted ones.
func (s *Service) auditDenied(ctx context.Context, actorID string, accessID, patientID uuid.UUID, reason string) {
	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionEmergencyAccess,
		ResourceType: "patient",
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Description:  "Emergency read denied: " + reason,
		Success:      false,
		Details:      map[string]any{"emergency_access_id": accessID.String()},
	})
}

// Terminate closes a window before its natural expiry. Terminating a
// record twice is an error; terminating one that has already expired
// still stamps the termination fields.
func (s *Service) Terminate(ctx context.Context, accessID uuid.UUID, reason, actorID string) (*Access, error) {
	a, err := s.accesses.GetByID(ctx, accessID)
	if err != nil {
		return nil, ErrAccessNotFound
	}
	if a.Status == StatusTerminated {
		return nil, ErrAlreadyTerminated
	}

	now := time.Now().UTC()
	a.Status = StatusTerminated
	a.TerminatedAt = &now
	a.TerminatedBy = &actorID
	a.TerminationReason = &reason
	if err := s.accesses.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("terminate access: %w", err)
	}

	if nerr := s.notifier.Send(ctx, &notification.Event{
		Type:      notification.EventEmergencyTerminated,
		PatientID: a.PatientID.String(),
		ActorID:   actorID,
		Message:   "Emergency access terminated: " + reason,
		Details:   map[string]string{"access_id": accessID.String()},
	}); nerr != nil {
		s.log.Warn().Err(nerr).Str("access_id", accessID.String()).Msg("termination notification failed")
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      actorID,
		Action:       audit.ActionEmergencyTerminated,
		ResourceType: "emergency_access",
		ResourceID:   accessID.String(),
		PatientID:    &a.PatientID,
		Description:  "Emergency access terminated: " + reason,
		Success:      true,
		Details:      map[string]any{"termination_reason": reason},
	})
	return a, nil
}

// ListActive returns windows that are still usable right now. Records
// whose clock has run out are marked expired on the way through; there
// is no background sweeper.
func (s *Service) ListActive(ctx context.Context) ([]*Access, error) {
	open, err := s.accesses.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	active := make([]*Access, 0, len(open))
	for _, a := range open {
		if a.HasExpired(now) {
			s.expire(ctx, a)
			continue
		}
		active = append(active, a)
	}
	return active, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Access, int, error) {
	return s.accesses.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) expire(ctx context.Context, a *Access) {
	if a.Status == StatusExpired {
		return
	}
	a.Status = StatusExpired
	if err := s.accesses.Update(ctx, a); err != nil {
		s.log.Warn().Err(err).Str("access_id", a.ID.String()).Msg("could not persist expiry")
	}
}
