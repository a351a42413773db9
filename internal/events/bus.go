// Package events is the in-process broadcast bus that fans domain events out
// to connected dashboard streams. Delivery is at-most-once and best-effort:
// nothing is persisted, late subscribers see nothing, and a subscriber whose
// buffer is full has events dropped rather than blocking the publisher.
package events

import (
	"sync"
	"time"
)

type EventType string

const (
	TypeMessageCreated        EventType = "message.created"
	TypeUserApproved          EventType = "user.approved"
	TypeUserApprovalRequested EventType = "user.approval_requested"
	TypeAppointmentCreated    EventType = "appointment.created"
	TypeAppointmentUpdated    EventType = "appointment.updated"
)

type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription is one listener's view of the bus. Events arrive on C in
// publish order. Close deregisters the subscription; after Close returns no
// further events are delivered and C is closed.
type Subscription struct {
	C   chan Event
	bus *Bus
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int

	onDrop func(Event) // optional, for metrics
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// OnDrop registers a callback invoked when an event is dropped for a slow
// subscriber. Must be called before the bus is in use.
func (b *Bus) OnDrop(fn func(Event)) {
	b.onDrop = fn
}

func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		C:   make(chan Event, b.buffer),
		bus: b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.C)
}

// Publish stamps the event and hands it to every current subscriber. It never
// blocks: a subscriber with a full buffer misses the event.
func (b *Bus) Publish(typ EventType, payload any) {
	ev := Event{
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.C <- ev:
		default:
			if b.onDrop != nil {
				b.onDrop(ev)
			}
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
