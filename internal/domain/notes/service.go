package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/notecrypt"
)

var (
	ErrReadDenied         = errors.New("reader may not decrypt this note")
	ErrNoTreatmentConsent = errors.New("no active treatment consent for patient")
)

type Service struct {
	notes     Repository
	consents  *consent.Service
	encryptor *notecrypt.Encryptor
	auditor   *audit.Service
}

func NewService(notes Repository, consents *consent.Service, encryptor *notecrypt.Encryptor, auditor *audit.Service) *Service {
	return &Service{notes: notes, consents: consents, encryptor: encryptor, auditor: auditor}
}

// authorize checks that the actor may touch this patient's notes.
// Admins pass, patients pass for their own record, doctors need an
// active treatment consent. Same rule vitals and blood reports apply.
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

// CreateNote encrypts the content under the author role's key before
// anything touches storage.
func (s *Service) CreateNote(ctx context.Context, patientID uuid.UUID, title, content string, noteType *string, authorID string, authorRole auth.Role) (*Note, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	ciphertext, err := s.encryptor.Encrypt(authorRole, content)
	if err != nil {
		return nil, fmt.Errorf("encrypt note: %w", err)
	}
	n := &Note{
		PatientID:  patientID,
		AuthorID:   authorID,
		AuthorRole: authorRole,
		Title:      title,
		Ciphertext: ciphertext,
		NoteType:   noteType,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("store note: %w", err)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      authorID,
		ActorRole:    string(authorRole),
		Action:       audit.ActionNoteCreated,
		ResourceType: "clinical_note",
		ResourceID:   n.ID.String(),
		PatientID:    &patientID,
		Description:  fmt.Sprintf("Clinical note %q created", title),
		Success:      true,
		Details:      map[string]any{"title": title},
	})
	return n, nil
}

// ReadNote decrypts a note for a permitted reader and audits the view.
// The author always reads their own note; everyone else clears the
// consent gate first and then the role decryption policy.
func (s *Service) ReadNote(ctx context.Context, id uuid.UUID, readerID string, readerRole auth.Role) (*DecryptedNote, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if readerID != n.AuthorID {
		if err := s.authorize(ctx, n.PatientID, readerID, readerRole); err != nil {
			return nil, err
		}
		if !notecrypt.CanDecrypt(readerRole, n.AuthorRole) {
			return nil, ErrReadDenied
		}
	}
	content, err := s.encryptor.Decrypt(n.AuthorRole, n.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt note: %w", err)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      readerID,
		ActorRole:    string(readerRole),
		Action:       audit.ActionNoteViewed,
		ResourceType: "clinical_note",
		ResourceID:   n.ID.String(),
		PatientID:    &n.PatientID,
		Description:  "Clinical note decrypted and viewed",
		Success:      true,
	})
	return &DecryptedNote{Note: *n, Content: content}, nil
}

// ListByPatient returns note metadata only. Content stays encrypted
// until each note is read individually.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, actorID string, role auth.Role, limit, offset int) ([]*Note, int, error) {
	if err := s.authorize(ctx, patientID, actorID, role); err != nil {
		return nil, 0, err
	}
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

// DeleteNote soft-deletes. Only the author or an admin may delete.
func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID, actorID string, actorRole auth.Role) error {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actorRole != auth.RoleAdmin && actorID != n.AuthorID {
		return ErrReadDenied
	}
	return s.notes.SoftDelete(ctx, id)
}
