package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventTypeSessionCreated EventType = "SessionCreated"
	EventTypeSessionReaped  EventType = "SessionReaped"
)

// Event is one lifecycle event ready for publishing.
type Event struct {
	ID          uuid.UUID
	Type        EventType
	SessionCode string
	CreatedAt   time.Time
	Payload     json.RawMessage
}

// SessionCreatedPayload is the payload for a SessionCreated event
type SessionCreatedPayload struct {
	SessionCode      string    `json:"session_code"`
	WorkDurationSec  int       `json:"work_duration_sec"`
	BreakDurationSec int       `json:"break_duration_sec"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SessionReapedPayload is the payload for a SessionReaped event
type SessionReapedPayload struct {
	SessionCode string    `json:"session_code"`
	ReapedAt    time.Time `json:"reaped_at"`
	GracePeriod string    `json:"grace_period"`
}

// NewEvent marshals payload into an event stamped with now.
func NewEvent(eventType EventType, sessionCode string, payload any, now time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		SessionCode: sessionCode,
		CreatedAt:   now,
		Payload:     data,
	}, nil
}

// envelope is the wire shape every publisher emits.
type envelope struct {
	EventID     string          `json:"eventId"`
	EventType   EventType       `json:"eventType"`
	SessionCode string          `json:"sessionCode"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

// Marshal encodes the event envelope.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(envelope{
		EventID:     e.ID.String(),
		EventType:   e.Type,
		SessionCode: e.SessionCode,
		Timestamp:   e.CreatedAt,
		Payload:     e.Payload,
	})
}
