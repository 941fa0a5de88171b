package sim

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"courier/internal/broker"
	logx "courier/pkg/logx"
)

var defaultContents = []string{
	"ping",
	"status update",
	"heartbeat",
	"work item ready",
	"ack",
}

func New(cfg Config, br *broker.Broker, participants []string, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.Direct.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Direct.Burst
	if burst <= 0 {
		burst = rps
	}
	if len(cfg.Direct.Contents) == 0 {
		cfg.Direct.Contents = defaultContents
	}
	return &Service{
		cfg:          cfg,
		br:           br,
		log:          log.With(logx.String("comp", "sim")),
		participants: append([]string(nil), participants...),
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start launches the direct generator and the announcement scheduler.
// Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	if s.cfg.Direct.Enabled && len(s.participants) >= 2 {
		stopCh := s.stopCh
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.directLoop(runCtx, stopCh)
		}()
	}

	s.c = cron.New(cron.WithParser(s.parser))
	registered := 0
	for _, a := range s.cfg.Announcements {
		if err := s.addAnnouncementLocked(runCtx, a); err != nil {
			s.log.Warn("announcement skipped", logx.String("name", a.Name), logx.Err(err))
			continue
		}
		registered++
	}
	s.c.Start()

	s.log.Info("sim started",
		logx.Bool("direct", s.cfg.Direct.Enabled),
		logx.Int("announcements", registered),
	)
}

// Stop halts traffic generation and waits for in-flight work, or until ctx
// is done. Safe to call more than once.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	s.stopCh = nil
	cancel := s.runCancel
	s.runCancel = nil
	c := s.c
	s.c = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("sim stopped", logx.Duration("took", time.Since(start)))
	case <-ctx.Done():
	}
}
