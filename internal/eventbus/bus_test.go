package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "x", Data: 42})

	select {
	case e := <-ch:
		if e.Type != "x" || e.Data != 42 {
			t.Fatalf("event: %+v", e)
		}
		if e.Time.IsZero() {
			t.Fatalf("publish should stamp Time")
		}
	case <-time.After(time.Second):
		t.Fatalf("no event received")
	}
}

func TestPublishNonBlockingOnSlowSubscriber(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// Fill the buffer, then keep publishing. Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: "spam"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a slow subscriber")
	}
	// The subscriber still sees at least one event.
	select {
	case <-ch:
	default:
		t.Fatalf("expected at least one buffered event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()
	// Publishing after unsubscribe must not panic even though ch is closed.
	b.Publish(Event{Type: "after"})

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	// Double unsubscribe is a no-op.
	unsub()
}
