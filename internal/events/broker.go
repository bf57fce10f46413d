package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is a broker client able to send one message.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// BrokerSink wraps events into envelopes and hands them to a broker.
type BrokerSink struct {
	pub      Publisher
	producer string
}

// NewBrokerSink creates a BrokerSink that stamps envelopes with producer.
func NewBrokerSink(pub Publisher, producer string) *BrokerSink {
	return &BrokerSink{pub: pub, producer: producer}
}

// Publish sends e keyed by its subject so per-entity ordering is kept.
func (s *BrokerSink) Publish(ctx context.Context, e Event) error {
	env, err := NewEnvelope(s.producer, e)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.pub.Publish(ctx, e.Subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Relay returns a broker message handler that forwards envelopes from other
// instances to the hub. Envelopes stamped with the hub's own producer were
// already broadcast locally and are skipped. Undecodable messages are
// reported so the consumer can drop them.
func Relay(hub *Hub) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		env, err := DecodeEnvelope(body)
		if err != nil {
			return err
		}
		if env.Producer == hub.producer {
			return nil
		}
		hub.Broadcast(env)
		return nil
	}
}
