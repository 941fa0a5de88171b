package sim

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"courier/internal/broker"
	logx "courier/pkg/logx"
)

// Config controls the traffic simulation.
type Config struct {
	Enabled bool

	Direct        DirectConfig
	Announcements []Announcement
}

// DirectConfig controls the random point-to-point generator.
type DirectConfig struct {
	Enabled    bool
	RatePerSec int // default 2
	Burst      int // default RatePerSec

	// Contents is the pool of message bodies to draw from.
	Contents []string
}

// Announcement is a cron-scheduled topic publication.
type Announcement struct {
	Name    string
	Spec    string // cron expression or "@every <duration>"
	Sender  string
	Topic   string
	Content string
	TTL     time.Duration // expires_at = publish time + TTL
}

// Service drives synthetic traffic through a broker: a rate-limited
// direct-message generator plus cron announcements. It only submits via the
// broker's public API, so everything it produces goes through the same
// validation as real callers.
type Service struct {
	cfg Config
	br  *broker.Broker
	log logx.Logger

	// participants is the id pool the direct generator draws from.
	participants []string

	limiter *rate.Limiter
	parser  cron.Parser

	mu        sync.Mutex
	c         *cron.Cron
	stopCh    chan struct{}
	runCancel func()
	wg        sync.WaitGroup
}
