package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockAuditRepo struct {
	store map[uuid.UUID]*Entry
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{store: make(map[uuid.UUID]*Entry)}
}

func (m *mockAuditRepo) Create(_ context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.store[e.ID] = e
	return nil
}

func (m *mockAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	e, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockAuditRepo) ListByPatient(_ context.Context, pid uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var r []*Entry
	for _, e := range m.store {
		if e.PatientID != nil && *e.PatientID == pid {
			r = append(r, e)
		}
	}
	return r, len(r), nil
}

func (m *mockAuditRepo) ListByActor(_ context.Context, actorID string, limit, offset int) ([]*Entry, int, error) {
	var r []*Entry
	for _, e := range m.store {
		if e.ActorID == actorID {
			r = append(r, e)
		}
	}
	return r, len(r), nil
}

func (m *mockAuditRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	var r []*Entry
	for _, e := range m.store {
		if a, ok := params["action"]; ok && e.Action != a {
			continue
		}
		r = append(r, e)
	}
	return r, len(r), nil
}

func (m *mockAuditRepo) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, e := range m.store {
		if e.CreatedAt.Before(cutoff) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func newTestService(repo *mockAuditRepo, retentionDays int) *Service {
	return NewService(repo, zerolog.Nop(), retentionDays)
}

// -- Service Tests --

func TestRecord_Success(t *testing.T) {
	repo := newMockAuditRepo()
	svc := newTestService(repo, 0)

	e := &Entry{ActorID: "doctor-1", Action: ActionConsentGranted, ResourceType: "consent", ResourceID: "c1"}
	if err := svc.Record(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRecord_RequiresActorAndAction(t *testing.T) {
	svc := newTestService(newMockAuditRepo(), 0)

	if err := svc.Record(context.Background(), &Entry{Action: ActionVitalUploaded}); err == nil {
		t.Error("expected error for missing actor_id")
	}
	if err := svc.Record(context.Background(), &Entry{ActorID: "u1"}); err == nil {
		t.Error("expected error for missing action")
	}
}

func TestSearch_FilterByAction(t *testing.T) {
	repo := newMockAuditRepo()
	svc := newTestService(repo, 0)
	ctx := context.Background()

	_ = svc.Record(ctx, &Entry{ActorID: "u1", Action: ActionConsentGranted})
	_ = svc.Record(ctx, &Entry{ActorID: "u1", Action: ActionConsentRevoked})
	_ = svc.Record(ctx, &Entry{ActorID: "u2", Action: ActionConsentGranted})

	items, total, err := svc.Search(ctx, map[string]string{"action": ActionConsentGranted}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 entries, got total=%d len=%d", total, len(items))
	}
}

func TestEnforceRetention_PurgesOldEntries(t *testing.T) {
	repo := newMockAuditRepo()
	svc := newTestService(repo, 30)
	ctx := context.Background()

	old := &Entry{ActorID: "u1", Action: ActionBatchUpload, CreatedAt: time.Now().UTC().AddDate(0, 0, -60)}
	recent := &Entry{ActorID: "u1", Action: ActionBatchUpload}
	_ = svc.Record(ctx, old)
	_ = svc.Record(ctx, recent)

	purged, err := svc.EnforceRetention(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}
	if _, err := svc.GetEntry(ctx, recent.ID); err != nil {
		t.Error("recent entry should survive retention")
	}
}

func TestEnforceRetention_DisabledWhenZero(t *testing.T) {
	repo := newMockAuditRepo()
	svc := newTestService(repo, 0)
	ctx := context.Background()

	old := &Entry{ActorID: "u1", Action: ActionBatchUpload, CreatedAt: time.Now().UTC().AddDate(-10, 0, 0)}
	_ = svc.Record(ctx, old)

	purged, err := svc.EnforceRetention(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 0 {
		t.Errorf("expected no purge with retention disabled, got %d", purged)
	}
}
