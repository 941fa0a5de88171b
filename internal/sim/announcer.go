package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "courier/pkg/logx"
)

// addAnnouncementLocked registers one cron entry. Caller holds s.mu and has
// built s.c.
func (s *Service) addAnnouncementLocked(ctx context.Context, a Announcement) error {
	if strings.TrimSpace(a.Spec) == "" {
		return fmt.Errorf("empty cron spec")
	}
	if strings.TrimSpace(a.Topic) == "" {
		return fmt.Errorf("empty topic")
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	a.TTL = ttl

	_, err := s.c.AddFunc(a.Spec, func() { s.announce(ctx, a) })
	return err
}

func (s *Service) announce(ctx context.Context, a Announcement) {
	expiresAt := time.Now().Add(a.TTL)
	err := s.br.Publish(ctx, a.Sender, a.Topic, a.Content, expiresAt)
	switch {
	case err == nil:
		s.log.Debug("announcement published",
			logx.String("name", a.Name),
			logx.String("topic", a.Topic),
			logx.Time("expires_at", expiresAt),
		)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// shutting down
	default:
		s.log.Warn("announcement failed",
			logx.String("name", a.Name),
			logx.String("topic", a.Topic),
			logx.Err(err),
		)
	}
}
