package app

import (
	"context"
	"strconv"

	"courier/internal/broker"
	"courier/internal/eventbus"
	"courier/internal/journal"
	logx "courier/pkg/logx"
)

// recordLoop consumes broker events and appends them to the journal.
// Append failures are logged and dropped; the journal is best-effort and
// must never interfere with delivery.
func (a *App) recordLoop(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			entry, ok := entryFromEvent(e)
			if !ok {
				continue
			}
			if err := a.jrnl.Append(ctx, entry); err != nil && ctx.Err() == nil {
				a.log.Warn("journal append failed", logx.String("kind", entry.Kind), logx.Err(err))
			}
		}
	}
}

func entryFromEvent(e eventbus.Event) (journal.Entry, bool) {
	switch e.Type {
	case eventbus.TypeDirectDelivered:
		d, ok := e.Data.(broker.DeliveryEvent)
		if !ok {
			return journal.Entry{}, false
		}
		return journal.Entry{
			At:        e.Time,
			Kind:      "delivered",
			MessageID: d.Message.ID,
			Sender:    d.Message.Sender,
			Target:    d.Message.Target,
			TookMS:    d.Took.Milliseconds(),
		}, true
	case eventbus.TypeDirectDropped:
		d, ok := e.Data.(broker.DeliveryEvent)
		if !ok {
			return journal.Entry{}, false
		}
		return journal.Entry{
			At:        e.Time,
			Kind:      "dropped",
			MessageID: d.Message.ID,
			Sender:    d.Message.Sender,
			Target:    d.Message.Target,
			Detail:    d.Reason,
		}, true
	case eventbus.TypeTopicPublished:
		p, ok := e.Data.(broker.PublishEvent)
		if !ok {
			return journal.Entry{}, false
		}
		return journal.Entry{
			At:        e.Time,
			Kind:      "published",
			MessageID: p.Message.ID,
			Sender:    p.Message.Sender,
			Topic:     p.Message.Topic,
		}, true
	case eventbus.TypeTopicSwept:
		s, ok := e.Data.(broker.SweepEvent)
		if !ok {
			return journal.Entry{}, false
		}
		return journal.Entry{
			At:     e.Time,
			Kind:   "swept",
			Detail: "removed=" + strconv.Itoa(s.Removed) + " remaining=" + strconv.Itoa(s.Remaining),
		}, true
	default:
		return journal.Entry{}, false
	}
}
