package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
)

// ErrMalformedMessage marks an inbound payload that is dropped without reply.
var ErrMalformedMessage = errors.New("malformed message")

// MessageType is the closed set of message kinds on the wire.
type MessageType string

// Inbound message types.
const (
	MessageCreate     MessageType = "create"
	MessageJoin       MessageType = "join"
	MessageSettings   MessageType = "settings"
	MessageStart      MessageType = "start"
	MessageStop       MessageType = "stop"
	MessageReset      MessageType = "reset"
	MessageToggleMode MessageType = "toggleMode"
)

// Outbound message types.
const (
	MessageCreated MessageType = "created"
	MessageError   MessageType = "error"
	MessageTick    MessageType = "tick"
)

// sessionNotFoundMessage is sent to a connection that joins an unknown code.
const sessionNotFoundMessage = "Session not found"

// ClientMessage is a decoded inbound message. Only the fields of its Type are set.
type ClientMessage struct {
	Type        MessageType
	SessionCode string
	Durations   session.Durations
}

type rawClientMessage struct {
	Type          MessageType `json:"type"`
	SessionCode   string      `json:"sessionCode"`
	WorkDuration  *float64    `json:"workDuration"`
	BreakDuration *float64    `json:"breakDuration"`
}

// ParseClientMessage decodes and validates one inbound payload. Every failure
// wraps ErrMalformedMessage.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	msg := ClientMessage{Type: raw.Type}
	switch raw.Type {
	case MessageCreate, MessageStart, MessageStop, MessageReset, MessageToggleMode:
		return msg, nil

	case MessageJoin:
		code := strings.ToUpper(strings.TrimSpace(raw.SessionCode))
		if code == "" {
			return ClientMessage{}, fmt.Errorf("%w: join without sessionCode", ErrMalformedMessage)
		}
		msg.SessionCode = code
		return msg, nil

	case MessageSettings:
		if raw.WorkDuration == nil || raw.BreakDuration == nil {
			return ClientMessage{}, fmt.Errorf("%w: settings needs workDuration and breakDuration", ErrMalformedMessage)
		}
		d, err := session.FromMinutes(*raw.WorkDuration, *raw.BreakDuration)
		if err != nil {
			return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		msg.Durations = d
		return msg, nil

	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, raw.Type)
	}
}

// TickMessage is the state broadcast every member receives.
type TickMessage struct {
	Type      MessageType  `json:"type"`
	Time      int          `json:"time"`
	Mode      session.Mode `json:"mode"`
	UserCount int          `json:"userCount"`
}

// CreatedMessage answers a create request.
type CreatedMessage struct {
	Type        MessageType `json:"type"`
	SessionCode string      `json:"sessionCode"`
}

// ErrorMessage reports a recoverable failure to a single connection.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func newTickMessage(snap session.Snapshot) TickMessage {
	return TickMessage{
		Type:      MessageTick,
		Time:      snap.Remaining,
		Mode:      snap.Mode,
		UserCount: snap.UserCount,
	}
}
