// Package events carries domain notifications out of the services.
// Services publish through a Sink; what happens next (websocket push,
// broker fan-out, nothing) is decided at wiring time.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderDeleted       = "order.deleted"
	TypeProductCreated     = "product.created"
)

const envelopeVersion = 1

// Event is what services hand to a Sink.
type Event struct {
	Type string
	// Subject is the id of the entity the event is about.
	Subject string
	Payload any
}

// Envelope is the wire form of an Event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps e for transport.
func NewEnvelope(producer string, e Event) (Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.Type,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: e.Subject,
		Payload:       payload,
	}, nil
}

// DecodeEnvelope parses an envelope received from a broker.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, errors.New("decode envelope: missing event_type")
	}
	return env, nil
}

// Sink receives domain events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
