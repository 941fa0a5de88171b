package participant

import (
	"context"
	"time"

	logx "courier/pkg/logx"
)

// Start launches the topic poll loop. A participant with no interests or no
// attached broker has nothing to poll and Start is a no-op.
func (p *Participant) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil || p.broker == nil || len(p.interests) == 0 {
		return
	}
	p.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	p.runCancel = cancel
	stopCh := p.stopCh

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLoop(runCtx, stopCh)
	}()
}

// Stop requests cooperative shutdown of the poll loop and waits for it, or
// until ctx is done.
func (p *Participant) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopCh == nil {
		p.mu.Unlock()
		return
	}
	stopCh := p.stopCh
	p.stopCh = nil
	cancel := p.runCancel
	p.runCancel = nil
	p.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// pollLoop queries the broker once per declared interest each tick, in
// declaration order. This is a pull: messages published and expired between
// ticks are simply never observed, which is intended.
func (p *Participant) pollLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		p.pollOnce(ctx)

		p.mu.Lock()
		interval := p.pollInterval
		p.mu.Unlock()
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

func (p *Participant) pollOnce(ctx context.Context) {
	p.obsMu.Lock()
	obs := append([]TopicHandler(nil), p.topicObs...)
	p.obsMu.Unlock()

	for _, topic := range p.interests {
		msgs := p.broker.QueryByTopic(ctx, topic)
		if len(msgs) > 0 {
			p.log.Debug("topic poll returned messages",
				logx.String("topic", topic),
				logx.Int("count", len(msgs)),
			)
		}
		for _, m := range msgs {
			for _, h := range obs {
				p.notifyTopic(h, m)
			}
		}
	}
}

// SetPollInterval adjusts the poll cadence at runtime.
func (p *Participant) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.pollInterval = d
	p.mu.Unlock()
}
