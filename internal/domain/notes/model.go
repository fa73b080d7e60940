package notes

import (
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/platform/auth"
)

// Note is a clinical note. Content is stored encrypted under the
// author role's key and only decrypted for readers CanDecrypt allows.
type Note struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	AuthorID   string     `db:"author_id" json:"author_id"`
	AuthorRole auth.Role  `db:"author_role" json:"author_role"`
	Title      string     `db:"title" json:"title"`
	Ciphertext string     `db:"ciphertext" json:"-"`
	NoteType   *string    `db:"note_type" json:"note_type,omitempty"`
	IsDeleted  bool       `db:"is_deleted" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// DecryptedNote is the API shape, a note with readable content.
type DecryptedNote struct {
	Note
	Content string `json:"content"`
}
