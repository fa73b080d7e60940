package consent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Purpose is the enumerated reason for which data access is sought.
// Consent is scoped per purpose.
type Purpose string

const (
	PurposeTreatment  Purpose = "treatment"
	PurposeEmergency  Purpose = "emergency"
	PurposeResearch   Purpose = "research"
	PurposeAnalytics  Purpose = "analytics"
	PurposeThirdParty Purpose = "third_party"
)

// ParsePurpose normalizes and validates a purpose string.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(strings.ToLower(strings.TrimSpace(s))) {
	case PurposeTreatment:
		return PurposeTreatment, nil
	case PurposeEmergency:
		return PurposeEmergency, nil
	case PurposeResearch:
		return PurposeResearch, nil
	case PurposeAnalytics:
		return PurposeAnalytics, nil
	case PurposeThirdParty:
		return PurposeThirdParty, nil
	default:
		return "", fmt.Errorf("unknown consent purpose: %q", s)
	}
}

// ErrNoActiveConsent is returned by Revoke when no active record
// matches the (patient, purpose, grantee) tuple.
var ErrNoActiveConsent = errors.New("no active consent found")

// Consent is one grant/revoke record in the ledger. A nil GrantedTo
// means the grant extends to any actor of appropriate role.
type Consent struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Purpose     Purpose    `db:"purpose" json:"purpose"`
	Granted     bool       `db:"granted" json:"granted"`
	GrantedAt   *time.Time `db:"granted_at" json:"granted_at,omitempty"`
	GrantedBy   string     `db:"granted_by" json:"granted_by"`
	GrantedTo   *string    `db:"granted_to" json:"granted_to,omitempty"`
	RevokedAt   *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy   *string    `db:"revoked_by" json:"revoked_by,omitempty"`
	ConsentText *string    `db:"consent_text" json:"consent_text,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether this record currently permits access:
// granted, not revoked, and not past its expiry.
func (c *Consent) IsActive(now time.Time) bool {
	if !c.Granted || c.RevokedAt != nil {
		return false
	}
	if c.ExpiryDate != nil && !c.ExpiryDate.After(now) {
		return false
	}
	return true
}
