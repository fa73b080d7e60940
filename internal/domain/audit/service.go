package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	entries       Repository
	log           zerolog.Logger
	retentionDays int
}

func NewService(entries Repository, log zerolog.Logger, retentionDays int) *Service {
	return &Service{entries: entries, log: log, retentionDays: retentionDays}
}

// Record appends an entry to the audit log. Callers on hot paths treat a
// failure here as fatal for the surrounding transaction so that no data
// change lands without its audit trail.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	if e.ActorID == "" {
		return fmt.Errorf("actor_id is required")
	}
	if e.Action == "" {
		return fmt.Errorf("action is required")
	}
	if err := s.entries.Create(ctx, e); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// RecordBestEffort appends an entry and only logs on failure. Used for
// read-path auditing where losing the trail must not fail the request.
func (s *Service) RecordBestEffort(ctx context.Context, e *Entry) {
	if err := s.Record(ctx, e); err != nil {
		s.log.Error().Err(err).Str("action", e.Action).Msg("audit write failed")
	}
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.entries.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*Entry, int, error) {
	return s.entries.ListByActor(ctx, actorID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	return s.entries.Search(ctx, params, limit, offset)
}

// EnforceRetention deletes entries older than the configured retention
// window and returns the number removed.
func (s *Service) EnforceRetention(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	purged, err := s.entries.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging audit entries: %w", err)
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("audit retention enforced")
	}
	return purged, nil
}
