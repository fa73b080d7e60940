package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the global patient identity. The id is a non-guessable
// UUID with no dependency on national identifiers or phone numbers.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      *string   `db:"gender" json:"gender,omitempty"`
	BloodGroup  *string   `db:"blood_group" json:"blood_group,omitempty"`

	Email *string `db:"email" json:"email,omitempty"`
	Phone *string `db:"phone" json:"phone,omitempty"`

	Address    *string `db:"address" json:"address,omitempty"`
	City       *string `db:"city" json:"city,omitempty"`
	State      *string `db:"state" json:"state,omitempty"`
	Country    string  `db:"country" json:"country"`
	PostalCode *string `db:"postal_code" json:"postal_code,omitempty"`

	EmergencyContactName         *string `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone        *string `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelationship *string `db:"emergency_contact_relationship" json:"emergency_contact_relationship,omitempty"`

	RegisteredBy string    `db:"registered_by" json:"registered_by"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BiometricHash maps one fingerprint hash to one patient. Only the
// SHA-256 digest is stored, never raw biometric data.
type BiometricHash struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	FingerprintHash string    `db:"fingerprint_hash" json:"fingerprint_hash"`
	HashAlgorithm   string    `db:"hash_algorithm" json:"hash_algorithm"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
