package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

const subscriberBuffer = 32

// Subscriber is one live listener, usually a websocket connection.
type Subscriber struct {
	ch   chan []byte
	once sync.Once
}

// Messages yields encoded envelopes. It is closed when the subscriber is
// dropped or the hub shuts down.
func (s *Subscriber) Messages() <-chan []byte { return s.ch }

func (s *Subscriber) close() { s.once.Do(func() { close(s.ch) }) }

// Hub fans envelopes out to every subscriber. A subscriber that cannot keep
// up is dropped instead of blocking the publisher.
type Hub struct {
	producer string

	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	closed bool
}

// NewHub returns an empty hub. producer stamps locally published envelopes.
func NewHub(producer string) *Hub {
	return &Hub{producer: producer, subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Unsubscribe removes the listener and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

// Len is the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish implements Sink for events produced in this process.
func (h *Hub) Publish(_ context.Context, e Event) error {
	env, err := NewEnvelope(h.producer, e)
	if err != nil {
		return err
	}
	h.Broadcast(env)
	return nil
}

// Broadcast sends env to every subscriber.
func (h *Hub) Broadcast(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub: encode %s: %v", env.EventType, err)
		return
	}

	var slow []*Subscriber
	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.ch <- b:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.Printf("hub: dropping slow subscriber")
		h.Unsubscribe(s)
	}
}

// Run blocks until ctx is done, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()
	for s := range subs {
		s.close()
	}
	return nil
}
