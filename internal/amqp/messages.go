package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventMessage is the envelope of every domain event on the bus. Payload is
// the JSON encoding of the entity the event is about.
type EventMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEventMessage wraps payload in an envelope stamped with the current time.
func NewEventMessage(eventType, id string, payload any) (*EventMessage, error) {
	msg := &EventMessage{
		Type:      eventType,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DecodePayload unmarshals the payload into dst.
func (m *EventMessage) DecodePayload(dst any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("event %s %s has no payload", m.Type, m.ID)
	}
	return json.Unmarshal(m.Payload, dst)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("event message without type")
	}
	return &msg, nil
}
