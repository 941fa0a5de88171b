// Package participant implements the addressable endpoints of the
// messaging exercise: each participant can receive direct messages pushed
// by the broker's delivery loop, and polls the broker for topic messages
// of interest on its own timer.
package participant

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"courier/internal/broker"
	logx "courier/pkg/logx"
)

// DirectHandler observes direct messages handed to this participant.
type DirectHandler func(sender string, msg broker.DirectMessage)

// TopicHandler observes topic messages seen during a poll.
type TopicHandler func(msg broker.TopicMessage)

// Participant is an addressable endpoint. Identity and interests are fixed
// at creation; the broker back-reference is assigned exactly once, at
// registration.
type Participant struct {
	id        string
	interests []string
	log       logx.Logger

	attachOnce sync.Once
	broker     *broker.Broker

	obsMu     sync.Mutex
	directObs []DirectHandler
	topicObs  []TopicHandler

	mu           sync.Mutex
	pollInterval time.Duration
	stopCh       chan struct{}
	runCancel    context.CancelFunc
	wg           sync.WaitGroup
}

type Option func(*Participant)

// WithPollInterval overrides the topic poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(p *Participant) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(p *Participant) { p.log = log }
}

// New creates a participant with the given identity and topic interests.
// The declared interest order is preserved and drives poll order.
func New(id string, interests []string, opts ...Option) *Participant {
	p := &Participant{
		id:           id,
		interests:    append([]string(nil), interests...),
		log:          logx.Nop(),
		pollInterval: time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With(logx.String("comp", "participant"), logx.String("id", id))
	return p
}

func (p *Participant) Identity() string { return p.id }

// Interests returns a copy of the declared topic interests, in order.
func (p *Participant) Interests() []string {
	return append([]string(nil), p.interests...)
}

// AttachBroker is called by the broker during registration. Only the first
// call has any effect.
func (p *Participant) AttachBroker(b *broker.Broker) {
	p.attachOnce.Do(func() { p.broker = b })
}

// OnDirect registers an observer for incoming direct messages.
func (p *Participant) OnDirect(h DirectHandler) {
	if h == nil {
		return
	}
	p.obsMu.Lock()
	p.directObs = append(p.directObs, h)
	p.obsMu.Unlock()
}

// OnTopic registers an observer for topic messages seen while polling.
func (p *Participant) OnTopic(h TopicHandler) {
	if h == nil {
		return
	}
	p.obsMu.Lock()
	p.topicObs = append(p.topicObs, h)
	p.obsMu.Unlock()
}

// ReceiveDirect is invoked only by the broker's delivery loop. Observers
// are notified synchronously within this call; a failing observer is
// contained here so it can never stall the delivery loop.
func (p *Participant) ReceiveDirect(ctx context.Context, from broker.Recipient, msg broker.DirectMessage) {
	_ = ctx
	sender := msg.Sender
	if from != nil {
		sender = from.Identity()
	}

	p.obsMu.Lock()
	obs := append([]DirectHandler(nil), p.directObs...)
	p.obsMu.Unlock()

	p.log.Debug("direct message received",
		logx.String("msg", msg.ID),
		logx.String("sender", sender),
	)
	for _, h := range obs {
		p.notifyDirect(h, sender, msg)
	}
}

func (p *Participant) notifyDirect(h DirectHandler, sender string, msg broker.DirectMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in direct observer",
				logx.Any("panic", r),
				logx.String("msg", msg.ID),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	h(sender, msg)
}

func (p *Participant) notifyTopic(h TopicHandler, msg broker.TopicMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in topic observer",
				logx.Any("panic", r),
				logx.String("msg", msg.ID),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	h(msg)
}
