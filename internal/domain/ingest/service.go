package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/alert"
	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/domain/device"
	"github.com/carevault/carevault/internal/domain/vitals"
)

var ErrConsentRequired = errors.New("no active treatment consent covers this device")

// Payload is what a device posts. Readings is a loose field map so a
// single malformed field never sinks the rest of the transmission.
// MedicalTests carries discrete lab-style results when the device
// reports them.
type Payload struct {
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	BatchID      *string        `json:"batch_id,omitempty"`
	Readings     map[string]any `json:"readings"`
	MedicalTests []TestInput    `json:"medical_tests,omitempty"`
}

// TestInput is one discrete test result inside a transmission.
type TestInput struct {
	TestType     string     `json:"test_type"`
	Result       string     `json:"result"`
	NumericValue *float64   `json:"numeric_value,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
	PerformedAt  *time.Time `json:"performed_at,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// FieldError describes one rejected reading field or test item.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result summarizes one ingestion. VitalsStored and TestsStored name
// only what was actually persisted; RecordedAt echoes the timestamp
// the stored rows carry.
type Result struct {
	DeviceID     string       `json:"device_id"`
	PatientID    string       `json:"patient_id"`
	VitalsStored []string     `json:"vitals_stored"`
	TestsStored  []string     `json:"tests_stored,omitempty"`
	Rejected     []FieldError `json:"rejected,omitempty"`
	Skipped      int          `json:"skipped"`
	AlertIDs     []uuid.UUID  `json:"alerts_generated"`
	RecordedAt   time.Time    `json:"timestamp"`
	ReceivedAt   time.Time    `json:"received_at"`
}

type Service struct {
	devices  *device.Service
	vitals   vitals.Repository
	consents *consent.Service
	alerts   *alert.Service
	auditor  *audit.Service
	inTx     consent.TxRunner
	log      zerolog.Logger
}

func NewService(devices *device.Service, vitalsRepo vitals.Repository, consents *consent.Service, alerts *alert.Service, auditor *audit.Service, inTx consent.TxRunner, log zerolog.Logger) *Service {
	if inTx == nil {
		inTx = consent.PassthroughTx
	}
	return &Service{
		devices:  devices,
		vitals:   vitalsRepo,
		consents: consents,
		alerts:   alerts,
		auditor:  auditor,
		inTx:     inTx,
		log:      log.With().Str("component", "ingest").Logger(),
	}
}

// Ingest runs a device transmission through the pipeline: authenticate,
// consent check, heartbeat, per-field parse, one-transaction commit,
// alert evaluation, audit. Field failures are isolated; the batch as a
// whole succeeds as long as the device is allowed to send at all.
func (s *Service) Ingest(ctx context.Context, deviceID, apiKey string, p *Payload) (*Result, error) {
	dev, err := s.devices.Authenticate(ctx, deviceID, apiKey)
	if err != nil {
		return nil, err
	}

	covered, err := s.consents.IsActive(ctx, dev.PatientID, consent.PurposeTreatment, &deviceID)
	if err != nil {
		return nil, fmt.Errorf("consent check: %w", err)
	}
	if !covered {
		return nil, ErrConsentRequired
	}

	if err := s.devices.Heartbeat(ctx, dev.ID); err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("heartbeat update failed")
	}

	receivedAt := time.Now().UTC()
	recordedAt := receivedAt
	if p.Timestamp != nil {
		recordedAt = p.Timestamp.UTC()
	}

	res := &Result{
		DeviceID:   deviceID,
		PatientID:  dev.PatientID.String(),
		RecordedAt: recordedAt,
		ReceivedAt: receivedAt,
	}

	var staged []*vitals.Vital
	for field, raw := range p.Readings {
		value, perr := parseValue(raw)
		if perr != nil {
			res.Rejected = append(res.Rejected, FieldError{Field: field, Reason: perr.Error()})
			continue
		}
		unit, ok := vitals.VitalUnits[field]
		if !ok {
			res.Rejected = append(res.Rejected, FieldError{Field: field, Reason: "unknown vital type"})
			continue
		}
		dup, err := s.vitals.ExistsDuplicate(ctx, dev.PatientID, field, value, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if dup {
			res.Skipped++
			continue
		}
		sum := vitals.Checksum(dev.PatientID, field, value, recordedAt)
		sid := deviceID
		staged = append(staged, &vitals.Vital{
			PatientID:  dev.PatientID,
			VitalType:  field,
			Value:      value,
			Unit:       unit,
			Source:     vitals.SourceDevice,
			SourceID:   &sid,
			RecordedAt: recordedAt,
			Checksum:   &sum,
			BatchID:    p.BatchID,
		})
	}

	stagedTests := s.stageTests(dev.PatientID, deviceID, recordedAt, p, res)

	err = s.inTx(ctx, func(ctx context.Context) error {
		for _, v := range staged {
			if err := s.vitals.Create(ctx, v); err != nil {
				return fmt.Errorf("store %s: %w", v.VitalType, err)
			}
		}
		for _, mt := range stagedTests {
			if err := s.vitals.CreateTest(ctx, mt); err != nil {
				return fmt.Errorf("store test %s: %w", mt.TestType, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, v := range staged {
		res.VitalsStored = append(res.VitalsStored, v.VitalType)
	}
	for _, mt := range stagedTests {
		res.TestsStored = append(res.TestsStored, mt.TestType)
	}

	readings := make([]alert.Reading, 0, len(staged))
	for _, v := range staged {
		readings = append(readings, alert.Reading{
			VitalID:   v.ID,
			PatientID: v.PatientID,
			VitalType: v.VitalType,
			Value:     v.Value,
		})
	}
	for _, a := range s.alerts.EvaluateBatch(ctx, readings) {
		res.AlertIDs = append(res.AlertIDs, a.ID)
	}

	s.auditor.RecordBestEffort(ctx, &audit.Entry{
		ActorID:      "device:" + deviceID,
		ActorRole:    "device",
		Action:       audit.ActionDeviceIngestion,
		ResourceType: "device",
		ResourceID:   dev.ID.String(),
		PatientID:    &dev.PatientID,
		Description:  fmt.Sprintf("Device %s ingested data: %d vitals, %d tests", deviceID, len(res.VitalsStored), len(res.TestsStored)),
		Success:      true,
		Details: map[string]any{
			"vitals_stored": len(res.VitalsStored),
			"tests_stored":  len(res.TestsStored),
			"rejected":      len(res.Rejected),
			"skipped":       res.Skipped,
		},
	})
	return res, nil
}

// stageTests validates the payload's test items with the same per-item
// isolation readings get: a bad item lands in Rejected, the rest stay.
func (s *Service) stageTests(patientID uuid.UUID, deviceID string, recordedAt time.Time, p *Payload, res *Result) []*vitals.MedicalTest {
	var staged []*vitals.MedicalTest
	for _, in := range p.MedicalTests {
		if in.TestType == "" {
			res.Rejected = append(res.Rejected, FieldError{Field: "medical_tests", Reason: "test_type is required"})
			continue
		}
		switch in.Result {
		case vitals.ResultPositive, vitals.ResultNegative, vitals.ResultInconclusive:
		case vitals.ResultNumeric:
			if in.NumericValue == nil {
				res.Rejected = append(res.Rejected, FieldError{Field: in.TestType, Reason: "numeric result requires numeric_value"})
				continue
			}
		default:
			res.Rejected = append(res.Rejected, FieldError{Field: in.TestType, Reason: fmt.Sprintf("invalid result %q", in.Result)})
			continue
		}
		performedAt := recordedAt
		if in.PerformedAt != nil {
			performedAt = in.PerformedAt.UTC()
		}
		sid := deviceID
		staged = append(staged, &vitals.MedicalTest{
			PatientID:    patientID,
			TestType:     in.TestType,
			Result:       in.Result,
			NumericValue: in.NumericValue,
			Unit:         in.Unit,
			Source:       vitals.SourceDevice,
			SourceID:     &sid,
			PerformedAt:  performedAt,
			Notes:        in.Notes,
			BatchID:      p.BatchID,
		})
	}
	return staged
}

// parseValue accepts JSON numbers plus numeric strings, which some
// firmware insists on sending.
func parseValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}
