package broker

import (
	"context"
	"time"

	"courier/internal/eventbus"
	logx "courier/pkg/logx"
)

// sweepLoop prunes expired topic messages on a fixed cadence. An expired
// message is therefore visible to readers for at most one sweep interval.
func (b *Broker) sweepLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		removed := b.store.sweep(time.Now())
		if removed > 0 {
			remaining := b.store.len()
			b.publishEvent(eventbus.TypeTopicSwept, SweepEvent{Removed: removed, Remaining: remaining})
			b.log.Debug("topic sweep removed expired messages",
				logx.Int("removed", removed),
				logx.Int("remaining", remaining),
			)
		}

		_, interval := b.intervals()
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
