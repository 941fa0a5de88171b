package broker

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"courier/internal/eventbus"
	logx "courier/pkg/logx"
)

// Broker owns the participant registry, the direct queue and the topic
// store, and runs the delivery and invalidation loops.
type Broker struct {
	mu  sync.Mutex
	cfg Config

	log logx.Logger
	bus eventbus.Bus

	reg   *registry
	queue *directQueue
	store *topicStore

	stopCh    chan struct{}
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New builds a stopped broker. bus may be nil when no operational consumers
// are interested in delivery events.
func New(cfg Config, bus eventbus.Bus, log logx.Logger) *Broker {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Broker{
		cfg:   cfg,
		log:   log.With(logx.String("comp", "broker")),
		bus:   bus,
		reg:   newRegistry(),
		queue: newDirectQueue(cfg.QueueMax),
		store: newTopicStore(cfg.MaxTopicLifespan),
	}
}

// Register makes p visible to identity lookups and assigns its broker
// back-reference. It is atomic with respect to concurrent registrations and
// lookups: no lookup ever observes a half-registered participant.
func (b *Broker) Register(p Recipient) error {
	if err := b.reg.add(p); err != nil {
		return err
	}
	if a, ok := p.(BrokerAttacher); ok {
		a.AttachBroker(b)
	}
	b.log.Debug("participant registered", logx.String("id", p.Identity()), logx.Int("registered", b.reg.size()))
	return nil
}

// SubmitDirect validates and enqueues a point-to-point message.
//
// Participant existence is checked under one registry lock acquisition; the
// capacity check and the append are atomic under the queue lock, so the
// configured bound is never exceeded.
func (b *Broker) SubmitDirect(ctx context.Context, senderID, targetID, content string) error {
	if err := ctx.Err(); err != nil {
		// Shutdown in flight: no effect, not a fault.
		return err
	}
	if strings.TrimSpace(content) == "" {
		return ErrInvalidContent
	}

	_, _, okS, okT := b.reg.lookupPair(senderID, targetID)
	switch {
	case !okS && !okT:
		return fmt.Errorf("%w: sender %q, target %q", ErrUnknownParticipant, senderID, targetID)
	case !okS:
		return fmt.Errorf("%w: sender %q", ErrUnknownParticipant, senderID)
	case !okT:
		return fmt.Errorf("%w: target %q", ErrUnknownParticipant, targetID)
	}

	msg := newDirectMessage(senderID, targetID, content, time.Now())
	if err := b.queue.enqueue(msg); err != nil {
		return err
	}
	b.log.Debug("direct message enqueued",
		logx.String("msg", msg.ID),
		logx.String("sender", senderID),
		logx.String("target", targetID),
		logx.Int("queue_len", b.queue.len()),
	)
	return nil
}

// Publish validates and stores a broadcast message under the given topic.
func (b *Broker) Publish(ctx context.Context, senderID, topic, content string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return ErrInvalidContent
	}
	if _, ok := b.reg.lookup(senderID); !ok {
		return fmt.Errorf("%w: sender %q", ErrUnknownParticipant, senderID)
	}

	msg := newTopicMessage(senderID, topic, content, time.Now(), expiresAt)
	b.store.add(msg)
	b.publishEvent(eventbus.TypeTopicPublished, PublishEvent{Message: msg})
	b.log.Debug("topic message published",
		logx.String("msg", msg.ID),
		logx.String("sender", senderID),
		logx.String("topic", topic),
		logx.Time("expires_at", expiresAt),
	)
	return nil
}

// QueryByTopic returns a snapshot of the currently stored messages tagged
// with topic, in no guaranteed order. It never fails: on cancellation it
// returns an empty result (best-effort read contract).
func (b *Broker) QueryByTopic(ctx context.Context, topic string) []TopicMessage {
	if ctx.Err() != nil {
		return nil
	}
	return b.store.byTopic(topic)
}

// RegisteredCount reports the current registry size.
func (b *Broker) RegisteredCount() int { return b.reg.size() }

// PendingDirect reports the current direct-queue depth.
func (b *Broker) PendingDirect() int { return b.queue.len() }

// Apply updates runtime tunables. Queue bound and registry membership are
// start-time only.
func (b *Broker) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	b.mu.Lock()
	cfg.QueueMax = b.cfg.QueueMax
	b.cfg = cfg
	b.mu.Unlock()
	b.store.setMaxLifespan(cfg.MaxTopicLifespan)
}

func (b *Broker) intervals() (delivery, sweep time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.DeliveryInterval, b.cfg.SweepInterval
}

// Start launches the delivery and invalidation loops. Calling Start on a
// running broker is a no-op.
func (b *Broker) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopCh != nil {
		return
	}
	b.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	b.runCancel = cancel
	stopCh := b.stopCh

	b.wg.Add(2)
	go b.runLoop("delivery", func() { b.deliveryLoop(runCtx, stopCh) })
	go b.runLoop("invalidation", func() { b.sweepLoop(runCtx, stopCh) })

	b.log.Info("broker started",
		logx.Int("queue_max", b.cfg.QueueMax),
		logx.Duration("delivery_interval", b.cfg.DeliveryInterval),
		logx.Duration("sweep_interval", b.cfg.SweepInterval),
		logx.Duration("max_topic_lifespan", b.cfg.MaxTopicLifespan),
	)
}

func (b *Broker) runLoop(name string, fn func()) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in broker loop",
				logx.String("loop", name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	b.log.Debug("loop started", logx.String("loop", name))
	fn()
	b.log.Debug("loop stopped", logx.String("loop", name))
}

// Stop requests cooperative shutdown of both loops and waits for them to
// exit, or until ctx is done. It is safe to call more than once.
func (b *Broker) Stop(ctx context.Context) {
	start := time.Now()
	b.mu.Lock()
	if b.stopCh == nil {
		b.mu.Unlock()
		return
	}
	stopCh := b.stopCh
	b.stopCh = nil
	cancel := b.runCancel
	b.runCancel = nil
	b.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info("broker stopped", logx.Duration("took", time.Since(start)))
	case <-ctx.Done():
		// stop continues in background
	}
}

func (b *Broker) publishEvent(typ string, data any) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
