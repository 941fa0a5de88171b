package broker

import (
	"context"
	"time"

	"courier/internal/eventbus"
	logx "courier/pkg/logx"
)

// deliveryLoop drains the direct queue one message per cycle.
//
// Each cycle: dequeue at most one message, resolve sender and target from
// the registry, hand the message to the target synchronously, then pause.
// A message whose sender or target no longer resolves is dropped; the
// submitter already got a success at submit time, so the drop is an
// operational log event, not an error surfaced to anyone.
func (b *Broker) deliveryLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		// Fast-exit check so shutdown wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		if msg, ok := b.queue.dequeue(); ok {
			b.deliverOne(ctx, msg)
		}

		interval, _ := b.intervals()
		tmr := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return
		case <-stopCh:
			if !tmr.Stop() {
				<-tmr.C
			}
			return
		case <-tmr.C:
		}
	}
}

func (b *Broker) deliverOne(ctx context.Context, msg DirectMessage) {
	sender, target, okS, okT := b.reg.lookupPair(msg.Sender, msg.Target)
	if !okS || !okT {
		reason := "unknown target"
		if !okS {
			reason = "unknown sender"
		}
		b.log.Warn("dropping undeliverable direct message",
			logx.String("msg", msg.ID),
			logx.String("sender", msg.Sender),
			logx.String("target", msg.Target),
			logx.String("reason", reason),
		)
		b.publishEvent(eventbus.TypeDirectDropped, DeliveryEvent{Message: msg, Reason: reason})
		return
	}

	start := time.Now()
	// Synchronous hand-off: the loop waits for the recipient before moving
	// to the next cycle. Recipients are required to contain observer
	// failures, so this call cannot fail upward.
	target.ReceiveDirect(ctx, sender, msg)

	took := time.Since(start)
	b.publishEvent(eventbus.TypeDirectDelivered, DeliveryEvent{Message: msg, Took: took})
	b.log.Debug("direct message delivered",
		logx.String("msg", msg.ID),
		logx.String("sender", msg.Sender),
		logx.String("target", msg.Target),
		logx.Duration("took", took),
	)
}
