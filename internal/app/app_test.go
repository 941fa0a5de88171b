package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"courier/internal/broker"
	"courier/internal/eventbus"
)

const testConfig = `
logging:
  level: ERROR
  console: false
broker:
  queue_max: 10
  delivery_interval: "5ms"
  sweep_interval: "5ms"
  max_topic_lifespan: "1m"
participants:
  - id: alice
    interests: [news]
    poll_interval: "10ms"
  - id: bob
journal:
  driver: file
  path: "%s"
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	journalPath := filepath.Join(dir, "journal")
	raw := fmt.Sprintf(testConfig, journalPath)
	if err := os.WriteFile(cfgPath, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := New(cfgPath)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestAppLifecycle(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	br := a.Broker()
	if got := br.RegisteredCount(); got != 2 {
		t.Fatalf("registered: %d, want 2", got)
	}
	if err := br.SubmitDirect(ctx, "alice", "bob", "hi"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for br.PendingDirect() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if br.PendingDirect() != 0 {
		t.Fatalf("message not delivered before deadline")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestEntryFromEvent(t *testing.T) {
	now := time.Now()
	msg := broker.DirectMessage{ID: "m1", Sender: "a", Target: "b"}

	e, ok := entryFromEvent(eventbus.Event{
		Type: eventbus.TypeDirectDelivered,
		Time: now,
		Data: broker.DeliveryEvent{Message: msg, Took: 42 * time.Millisecond},
	})
	if !ok || e.Kind != "delivered" || e.MessageID != "m1" || e.TookMS != 42 {
		t.Fatalf("delivered entry: %+v ok=%v", e, ok)
	}

	e, ok = entryFromEvent(eventbus.Event{
		Type: eventbus.TypeDirectDropped,
		Time: now,
		Data: broker.DeliveryEvent{Message: msg, Reason: "unknown target"},
	})
	if !ok || e.Kind != "dropped" || e.Detail != "unknown target" {
		t.Fatalf("dropped entry: %+v ok=%v", e, ok)
	}

	e, ok = entryFromEvent(eventbus.Event{
		Type: eventbus.TypeTopicSwept,
		Time: now,
		Data: broker.SweepEvent{Removed: 2, Remaining: 3},
	})
	if !ok || e.Kind != "swept" || e.Detail != "removed=2 remaining=3" {
		t.Fatalf("swept entry: %+v ok=%v", e, ok)
	}

	if _, ok := entryFromEvent(eventbus.Event{Type: "unrelated"}); ok {
		t.Fatalf("unrelated events must be skipped")
	}

	// payload type mismatch is skipped, not recorded garbage
	if _, ok := entryFromEvent(eventbus.Event{Type: eventbus.TypeDirectDelivered, Data: "oops"}); ok {
		t.Fatalf("mismatched payload must be skipped")
	}
}
