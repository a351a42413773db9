package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	bus := NewBus(4)

	for i := 0; i < 10; i++ {
		bus.Publish(TypeAppointmentCreated, i)
	}

	sub := bus.Subscribe()
	defer sub.Close()

	// Nothing published before subscribing may be replayed.
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected replayed event %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	bus := NewBus(16)
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 10; i++ {
		bus.Publish(TypeAppointmentUpdated, i)
	}

	for i := 0; i < 10; i++ {
		ev := <-sub.C
		assert.Equal(t, TypeAppointmentUpdated, ev.Type)
		assert.Equal(t, i, ev.Payload)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(2)

	var dropped int
	bus.OnDrop(func(Event) { dropped++ })

	sub := bus.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			bus.Publish(TypeMessageCreated, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, 48, dropped)
	assert.Len(t, sub.C, 2)
}

func TestCloseStopsDeliveryAndClosesChannel(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()

	sub.Close()
	sub.Close() // idempotent

	bus.Publish(TypeUserApproved, nil)

	_, open := <-sub.C
	assert.False(t, open, "channel must be closed after Close")
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(TypeAppointmentCreated, j)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe()
			for j := 0; j < 10; j++ {
				select {
				case <-sub.C:
				case <-time.After(10 * time.Millisecond):
				}
			}
			sub.Close()
		}()
	}

	wg.Wait()
	require.Equal(t, 0, bus.SubscriberCount())
}

func TestFanOutReachesAllSubscribers(t *testing.T) {
	bus := NewBus(4)

	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(TypeUserApprovalRequested, "u1")

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, TypeUserApprovalRequested, ev.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive event")
		}
	}
}
