package sim

import (
	"context"
	"errors"
	"math/rand"

	"courier/internal/broker"
	logx "courier/pkg/logx"
)

// directLoop submits random point-to-point messages at the configured rate.
// Sender and target are always distinct participants.
func (s *Service) directLoop(ctx context.Context, stopCh <-chan struct{}) {
	contents := s.cfg.Direct.Contents
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		si := rand.Intn(len(s.participants))
		ti := rand.Intn(len(s.participants) - 1)
		if ti >= si {
			ti++
		}
		sender := s.participants[si]
		target := s.participants[ti]
		content := contents[rand.Intn(len(contents))]

		err := s.br.SubmitDirect(ctx, sender, target, content)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case errors.Is(err, broker.ErrQueueFull):
			// Backpressure: the delivery loop will drain the queue; skip this tick.
			s.log.Debug("queue full, message skipped",
				logx.String("sender", sender),
				logx.String("target", target),
			)
		default:
			s.log.Warn("direct submit failed",
				logx.String("sender", sender),
				logx.String("target", target),
				logx.Err(err),
			)
		}
	}
}
