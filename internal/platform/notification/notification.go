// Package notification delivers out-of-band events, such as emergency
// access alerts to hospital systems, over a webhook channel.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event being delivered.
type EventType string

const (
	EventEmergencyAccess     EventType = "emergency_access"
	EventEmergencyTerminated EventType = "emergency_terminated"
	EventCriticalAlert       EventType = "critical_alert"
)

// Event is a single outbound notification payload.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	PatientID string            `json:"patient_id"`
	ActorID   string            `json:"actor_id,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Sender delivers events to an external system.
type Sender interface {
	Send(ctx context.Context, ev *Event) error
}

// WebhookSender posts events as JSON to a configured URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a sender targeting the given URL.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the event. A notification failure never blocks the caller's
// workflow; callers log the error and continue.
func (s *WebhookSender) Send(ctx context.Context, ev *Event) error {
	if s.url == "" {
		return errors.New("webhook URL not configured")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MockSender is a test double that records sent events.
type MockSender struct {
	mu         sync.Mutex
	events     []*Event
	ShouldFail bool
	FailError  string
}

// Send records the event and optionally returns an error.
func (m *MockSender) Send(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, ev)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Events returns a copy of recorded events.
func (m *MockSender) Events() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}

// NopSender discards all events. Used when no webhook is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, *Event) error { return nil }
