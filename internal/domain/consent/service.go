package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxRunner wraps a function in a storage transaction. The production
// wiring uses a serializable transaction so a grant or revoke cannot
// interleave with a concurrent check-then-write for the same patient.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn directly without a transaction.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service is the consent ledger. It stays pure: audit writes for
// grant/revoke are the caller's responsibility.
type Service struct {
	consents Repository
	inTx     TxRunner
}

func NewService(consents Repository, inTx TxRunner) *Service {
	if inTx == nil {
		inTx = PassthroughTx
	}
	return &Service{consents: consents, inTx: inTx}
}

// Grant records consent for (patient, purpose, grantee). Granting while
// an active grant for the exact tuple exists is a no-op that returns
// the existing record; created reports whether a new record was made.
func (s *Service) Grant(ctx context.Context, patientID uuid.UUID, purpose Purpose, grantedBy string, grantee, text *string, expiry *time.Time) (c *Consent, created bool, err error) {
	if grantedBy == "" {
		return nil, false, fmt.Errorf("granted_by is required")
	}
	if expiry != nil && !expiry.After(time.Now()) {
		return nil, false, fmt.Errorf("expiry_date must be in the future")
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.consents.FindGranted(ctx, patientID, purpose, grantee)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsActive(time.Now()) {
			c = existing
			return nil
		}

		now := time.Now().UTC()
		c = &Consent{
			PatientID:   patientID,
			Purpose:     purpose,
			Granted:     true,
			GrantedAt:   &now,
			GrantedBy:   grantedBy,
			GrantedTo:   grantee,
			ConsentText: text,
			ExpiryDate:  expiry,
		}
		if err := s.consents.Create(ctx, c); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return c, created, nil
}

// Revoke flips the newest active record matching (patient, purpose,
// grantee) to inactive. Returns ErrNoActiveConsent when nothing
// matches.
func (s *Service) Revoke(ctx context.Context, patientID uuid.UUID, purpose Purpose, revokedBy string, grantee *string) (c *Consent, err error) {
	if revokedBy == "" {
		return nil, fmt.Errorf("revoked_by is required")
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.consents.FindGranted(ctx, patientID, purpose, grantee)
		if err != nil {
			return err
		}
		if existing == nil || !existing.IsActive(time.Now()) {
			return ErrNoActiveConsent
		}

		now := time.Now().UTC()
		existing.Granted = false
		existing.RevokedAt = &now
		existing.RevokedBy = &revokedBy
		if err := s.consents.Update(ctx, existing); err != nil {
			return err
		}
		c = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// IsActive reports whether access is currently permitted for the
// requester. A requester-specific grant and a wildcard grant are both
// sufficient.
func (s *Service) IsActive(ctx context.Context, patientID uuid.UUID, purpose Purpose, requester *string) (bool, error) {
	records, err := s.consents.FindActiveFor(ctx, patientID, purpose, requester)
	if err != nil {
		return false, err
	}
	now := time.Now()
	for _, c := range records {
		if c.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

// ListByPatient returns the full ledger history for a patient, both
// active and revoked records.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	return s.consents.ListByPatient(ctx, patientID, limit, offset)
}
