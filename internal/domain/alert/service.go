package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the rule-based alert engine plus the acknowledge/resolve
// lifecycle for the alerts it creates.
type Service struct {
	alerts Repository
	log    zerolog.Logger
}

func NewService(alerts Repository, log zerolog.Logger) *Service {
	return &Service{alerts: alerts, log: log}
}

// Evaluate checks one reading against the rule table. On the first
// matching rule it persists and returns an Alert; no match returns nil
// with no side effect.
func (s *Service) Evaluate(ctx context.Context, reading Reading) (*Alert, error) {
	rules := RulesFor(reading.VitalType)
	if rules == nil {
		return nil, nil
	}

	for _, rule := range rules {
		if !rule.Match(reading.Value) {
			continue
		}
		a := &Alert{
			PatientID:    reading.PatientID,
			AlertType:    rule.Type,
			Severity:     rule.Severity,
			Title:        rule.Title,
			Description:  rule.Describe(reading.Value),
			TriggerValue: reading.Value,
		}
		if reading.VitalID != uuid.Nil {
			id := reading.VitalID
			a.VitalID = &id
		}
		if err := s.alerts.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("persisting alert: %w", err)
		}
		return a, nil
	}
	return nil, nil
}

// EvaluateBatch evaluates readings in input order. A failure on one
// reading is logged and does not prevent evaluation of the rest.
func (s *Service) EvaluateBatch(ctx context.Context, readings []Reading) []*Alert {
	var generated []*Alert
	for _, r := range readings {
		a, err := s.Evaluate(ctx, r)
		if err != nil {
			s.log.Error().Err(err).
				Str("vital_type", r.VitalType).
				Float64("value", r.Value).
				Msg("alert evaluation failed")
			continue
		}
		if a != nil {
			generated = append(generated, a)
		}
	}
	return generated
}

func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.alerts.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	return s.alerts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Alert, int, error) {
	return s.alerts.Search(ctx, params, limit, offset)
}

// Acknowledge marks an alert seen by a clinician.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID, actorID string) (*Alert, error) {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Acknowledged {
		return a, nil
	}
	now := time.Now().UTC()
	a.Acknowledged = true
	a.AcknowledgedBy = &actorID
	a.AcknowledgedAt = &now
	if err := s.alerts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Resolve closes an alert. Resolving implies acknowledgement.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, actorID string) (*Alert, error) {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return a, nil
	}
	now := time.Now().UTC()
	if !a.Acknowledged {
		a.Acknowledged = true
		a.AcknowledgedBy = &actorID
		a.AcknowledgedAt = &now
	}
	a.Resolved = true
	a.ResolvedBy = &actorID
	a.ResolvedAt = &now
	if err := s.alerts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
