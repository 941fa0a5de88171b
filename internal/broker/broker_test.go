package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"courier/internal/eventbus"
	logx "courier/pkg/logx"
)

type recordingRecipient struct {
	id string

	mu      sync.Mutex
	msgs    []DirectMessage
	senders []string
}

func (r *recordingRecipient) Identity() string { return r.id }

func (r *recordingRecipient) ReceiveDirect(_ context.Context, from Recipient, msg DirectMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if from != nil {
		r.senders = append(r.senders, from.Identity())
	}
}

func (r *recordingRecipient) received() []DirectMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DirectMessage(nil), r.msgs...)
}

func newTestBroker(t *testing.T, cfg Config, bus eventbus.Bus) *Broker {
	t.Helper()
	return New(cfg, bus, logx.Nop())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSubmitDirectValidation(t *testing.T) {
	b := newTestBroker(t, Config{}, nil)
	alice := &recordingRecipient{id: "alice"}
	bob := &recordingRecipient{id: "bob"}
	if err := b.Register(alice); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := b.Register(bob); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	ctx := context.Background()

	if err := b.SubmitDirect(ctx, "alice", "bob", "   "); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("blank content: got %v, want ErrInvalidContent", err)
	}

	err := b.SubmitDirect(ctx, "ghost", "bob", "hi")
	if !errors.Is(err, ErrUnknownParticipant) || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("unknown sender: got %v", err)
	}
	if strings.Contains(err.Error(), "bob") {
		t.Fatalf("unknown sender error should not implicate the target: %v", err)
	}

	err = b.SubmitDirect(ctx, "alice", "ghost", "hi")
	if !errors.Is(err, ErrUnknownParticipant) || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("unknown target: got %v", err)
	}

	err = b.SubmitDirect(ctx, "ghost1", "ghost2", "hi")
	if !errors.Is(err, ErrUnknownParticipant) ||
		!strings.Contains(err.Error(), "ghost1") || !strings.Contains(err.Error(), "ghost2") {
		t.Fatalf("both unknown: got %v", err)
	}

	if got := b.PendingDirect(); got != 0 {
		t.Fatalf("rejected submissions must not enqueue: pending=%d", got)
	}
}

func TestSubmitDirectCanceledContext(t *testing.T) {
	b := newTestBroker(t, Config{}, nil)
	if err := b.Register(&recordingRecipient{id: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.Register(&recordingRecipient{id: "b"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.SubmitDirect(ctx, "a", "b", "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled submit: got %v, want context.Canceled", err)
	}
	if got := b.PendingDirect(); got != 0 {
		t.Fatalf("canceled submit must be a no-op: pending=%d", got)
	}
}

func TestSubmitDirectQueueBound(t *testing.T) {
	b := newTestBroker(t, Config{QueueMax: 2}, nil)
	if err := b.Register(&recordingRecipient{id: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.Register(&recordingRecipient{id: "b"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.SubmitDirect(ctx, "a", "b", "msg"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := b.SubmitDirect(ctx, "a", "b", "overflow"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("submit at capacity: got %v, want ErrQueueFull", err)
	}
	if got := b.PendingDirect(); got != 2 {
		t.Fatalf("pending after rejection: got %d, want 2", got)
	}
}

func TestDeliveryEndToEnd(t *testing.T) {
	b := newTestBroker(t, Config{DeliveryInterval: 5 * time.Millisecond, SweepInterval: time.Hour}, nil)
	alice := &recordingRecipient{id: "alice"}
	bob := &recordingRecipient{id: "bob"}
	if err := b.Register(alice); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := b.Register(bob); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	ctx := context.Background()
	b.Start(ctx)
	defer b.Stop(ctx)

	if err := b.SubmitDirect(ctx, "alice", "bob", "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(bob.received()) == 1 })
	got := bob.received()[0]
	if got.Content != "hello" || got.Sender != "alice" || got.Target != "bob" {
		t.Fatalf("delivered message: %+v", got)
	}
	if len(alice.received()) != 0 {
		t.Fatalf("sender must not receive its own direct message")
	}
	waitFor(t, 2*time.Second, func() bool { return b.PendingDirect() == 0 })
}

func TestDeliveryDropsUnresolvableTarget(t *testing.T) {
	bus := eventbus.New()
	b := newTestBroker(t, Config{DeliveryInterval: 5 * time.Millisecond, SweepInterval: time.Hour}, bus)
	if err := b.Register(&recordingRecipient{id: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	events, unsub := bus.Subscribe(16)
	defer unsub()

	// A message can outlive its recipient: the registry has no entry for the
	// target by the time the delivery loop picks this up.
	orphan := newDirectMessage("alice", "gone", "late", time.Now())
	if err := b.queue.enqueue(orphan); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx := context.Background()
	b.Start(ctx)
	defer b.Stop(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type != eventbus.TypeDirectDropped {
				continue
			}
			d, ok := e.Data.(DeliveryEvent)
			if !ok {
				t.Fatalf("dropped event payload: %T", e.Data)
			}
			if d.Message.ID != orphan.ID || d.Reason != "unknown target" {
				t.Fatalf("dropped event: %+v", d)
			}
			if got := b.PendingDirect(); got != 0 {
				t.Fatalf("dropped message still pending: %d", got)
			}
			return
		case <-deadline:
			t.Fatalf("no drop event within deadline")
		}
	}
}

func TestPublishAndQueryByTopic(t *testing.T) {
	b := newTestBroker(t, Config{}, nil)
	if err := b.Register(&recordingRecipient{id: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)

	if err := b.Publish(ctx, "alice", "news", "headline", expires); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.Publish(ctx, "ghost", "news", "spoof", expires); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("publish from unknown sender: got %v", err)
	}
	if err := b.Publish(ctx, "alice", "news", "", expires); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("publish empty content: got %v", err)
	}

	got := b.QueryByTopic(ctx, "news")
	if len(got) != 1 || got[0].Content != "headline" {
		t.Fatalf("query: got %+v", got)
	}

	// Reading is not consuming: a second query sees the same message.
	again := b.QueryByTopic(ctx, "news")
	if len(again) != 1 {
		t.Fatalf("second query: got %d messages, want 1", len(again))
	}

	if got := b.QueryByTopic(ctx, "nothing"); len(got) != 0 {
		t.Fatalf("query unknown topic: got %d messages, want 0", len(got))
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if got := b.QueryByTopic(canceled, "news"); got != nil {
		t.Fatalf("query with canceled ctx: got %v, want nil", got)
	}
}

func TestSweepLoopRemovesExpired(t *testing.T) {
	bus := eventbus.New()
	b := newTestBroker(t, Config{DeliveryInterval: time.Hour, SweepInterval: 5 * time.Millisecond}, bus)
	if err := b.Register(&recordingRecipient{id: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()

	if err := b.Publish(ctx, "alice", "news", "ephemeral", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.Publish(ctx, "alice", "news", "durable", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	b.Start(ctx)
	defer b.Stop(ctx)

	waitFor(t, 2*time.Second, func() bool {
		msgs := b.QueryByTopic(ctx, "news")
		return len(msgs) == 1 && msgs[0].Content == "durable"
	})
}

func TestApplyPreservesQueueBound(t *testing.T) {
	b := newTestBroker(t, Config{QueueMax: 1}, nil)
	if err := b.Register(&recordingRecipient{id: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.Register(&recordingRecipient{id: "b"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()

	b.Apply(Config{QueueMax: 100, MaxTopicLifespan: time.Second})

	if err := b.SubmitDirect(ctx, "a", "b", "1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// QueueMax is start-time only; Apply must not widen the bound.
	if err := b.SubmitDirect(ctx, "a", "b", "2"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("submit after Apply: got %v, want ErrQueueFull", err)
	}
}
