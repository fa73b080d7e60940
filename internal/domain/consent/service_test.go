package consent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockConsentRepo struct {
	store map[uuid.UUID]*Consent
	order []uuid.UUID
}

func newMockConsentRepo() *mockConsentRepo {
	return &mockConsentRepo{store: make(map[uuid.UUID]*Consent)}
}

func (m *mockConsentRepo) Create(_ context.Context, c *Consent) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	m.store[c.ID] = c
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockConsentRepo) Update(_ context.Context, c *Consent) error {
	if _, ok := m.store[c.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[c.ID] = c
	return nil
}

func (m *mockConsentRepo) GetByID(_ context.Context, id uuid.UUID) (*Consent, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func granteeEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *mockConsentRepo) FindGranted(_ context.Context, pid uuid.UUID, purpose Purpose, grantee *string) (*Consent, error) {
	// Newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		c := m.store[m.order[i]]
		if c.PatientID == pid && c.Purpose == purpose && c.Granted && granteeEqual(c.GrantedTo, grantee) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockConsentRepo) FindActiveFor(_ context.Context, pid uuid.UUID, purpose Purpose, requester *string) ([]*Consent, error) {
	var r []*Consent
	for _, id := range m.order {
		c := m.store[id]
		if c.PatientID != pid || c.Purpose != purpose || !c.Granted {
			continue
		}
		if c.GrantedTo == nil || (requester != nil && *c.GrantedTo == *requester) {
			r = append(r, c)
		}
	}
	return r, nil
}

func (m *mockConsentRepo) ListByPatient(_ context.Context, pid uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	var r []*Consent
	for _, id := range m.order {
		if m.store[id].PatientID == pid {
			r = append(r, m.store[id])
		}
	}
	return r, len(r), nil
}

func newTestService(repo *mockConsentRepo) *Service {
	return NewService(repo, nil)
}

func strp(s string) *string { return &s }

// -- Service Tests --

func TestGrant_CreatesRecord(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()

	c, created, err := svc.Grant(context.Background(), pid, PurposeTreatment, "patient-1", nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected a new record")
	}
	if !c.Granted || c.GrantedAt == nil {
		t.Error("expected granted record with timestamp")
	}
}

func TestGrant_IdempotentWhileActive(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	first, _, err := svc.Grant(ctx, pid, PurposeTreatment, "patient-1", strp("doctor-1"), nil, nil)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}

	second, created, err := svc.Grant(ctx, pid, PurposeTreatment, "patient-1", strp("doctor-1"), nil, nil)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if created {
		t.Error("second grant must be a no-op")
	}
	if second.ID != first.ID {
		t.Errorf("expected same record, got %s and %s", first.ID, second.ID)
	}
}

func TestGrant_DistinctGranteesAreSeparate(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	a, _, _ := svc.Grant(ctx, pid, PurposeTreatment, "patient-1", strp("doctor-1"), nil, nil)
	b, created, err := svc.Grant(ctx, pid, PurposeTreatment, "patient-1", strp("doctor-2"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || a.ID == b.ID {
		t.Error("grants to different grantees must be separate records")
	}
}

func TestGrant_RejectsPastExpiry(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	past := time.Now().Add(-time.Hour)
	if _, _, err := svc.Grant(context.Background(), uuid.New(), PurposeResearch, "p1", nil, nil, &past); err == nil {
		t.Error("expected error for expiry in the past")
	}
}

func TestRevoke_FlipsRecord(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	granted, _, _ := svc.Grant(ctx, pid, PurposeTreatment, "patient-1", nil, nil, nil)

	revoked, err := svc.Revoke(ctx, pid, PurposeTreatment, "patient-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked.ID != granted.ID {
		t.Error("expected the granted record to be revoked")
	}
	if revoked.Granted || revoked.RevokedAt == nil || revoked.RevokedBy == nil {
		t.Error("expected revocation metadata to be stamped")
	}
}

func TestRevoke_NoActiveConsent(t *testing.T) {
	svc := newTestService(newMockConsentRepo())

	_, err := svc.Revoke(context.Background(), uuid.New(), PurposeTreatment, "p1", nil)
	if !errors.Is(err, ErrNoActiveConsent) {
		t.Errorf("expected ErrNoActiveConsent, got %v", err)
	}
}

func TestRevoke_ExpiredGrantNotRevocable(t *testing.T) {
	repo := newMockConsentRepo()
	svc := newTestService(repo)
	pid := uuid.New()
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	c, _, err := svc.Grant(ctx, pid, PurposeResearch, "patient-1", nil, nil, &expiry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	repo.store[c.ID].ExpiryDate = &past

	_, err = svc.Revoke(ctx, pid, PurposeResearch, "patient-1", nil)
	if !errors.Is(err, ErrNoActiveConsent) {
		t.Errorf("expected ErrNoActiveConsent for an expired-only grant, got %v", err)
	}
	if got := repo.store[c.ID]; !got.Granted || got.RevokedAt != nil {
		t.Error("expired record must not be stamped with a revocation")
	}
}

func TestIsActive_Lifecycle(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	active, err := svc.IsActive(ctx, pid, PurposeTreatment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Error("expected inactive before any grant")
	}

	_, _, _ = svc.Grant(ctx, pid, PurposeTreatment, "patient-1", nil, nil, nil)
	if active, _ = svc.IsActive(ctx, pid, PurposeTreatment, nil); !active {
		t.Error("expected active after grant")
	}

	_, _ = svc.Revoke(ctx, pid, PurposeTreatment, "patient-1", nil)
	if active, _ = svc.IsActive(ctx, pid, PurposeTreatment, nil); active {
		t.Error("expected inactive after revoke")
	}
}

func TestIsActive_WildcardCoversAnyRequester(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	_, _, _ = svc.Grant(ctx, pid, PurposeTreatment, "patient-1", nil, nil, nil)

	active, _ := svc.IsActive(ctx, pid, PurposeTreatment, strp("doctor-99"))
	if !active {
		t.Error("wildcard grant must cover any requester")
	}
}

func TestIsActive_SpecificGrantDoesNotCoverOthers(t *testing.T) {
	svc := newTestService(newMockConsentRepo())
	pid := uuid.New()
	ctx := context.Background()

	_, _, _ = svc.Grant(ctx, pid, PurposeTreatment, "patient-1", strp("doctor-1"), nil, nil)

	if active, _ := svc.IsActive(ctx, pid, PurposeTreatment, strp("doctor-1")); !active {
		t.Error("specific grant must cover its grantee")
	}
	if active, _ := svc.IsActive(ctx, pid, PurposeTreatment, strp("doctor-2")); active {
		t.Error("specific grant must not cover other requesters")
	}
}

func TestIsActive_ExpiredGrant(t *testing.T) {
	repo := newMockConsentRepo()
	svc := newTestService(repo)
	pid := uuid.New()
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	c, _, _ := svc.Grant(ctx, pid, PurposeResearch, "patient-1", nil, nil, &expiry)

	// Move the expiry into the past directly on the stored record.
	past := time.Now().Add(-time.Minute)
	c.ExpiryDate = &past

	if active, _ := svc.IsActive(ctx, pid, PurposeResearch, nil); active {
		t.Error("expected inactive once past expiry")
	}
}

func TestParsePurpose(t *testing.T) {
	if p, err := ParsePurpose(" Treatment "); err != nil || p != PurposeTreatment {
		t.Errorf("expected treatment, got %q, %v", p, err)
	}
	if _, err := ParsePurpose("billing"); err == nil {
		t.Error("expected error for unknown purpose")
	}
}
