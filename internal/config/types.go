package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full courier configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Broker  BrokerConfig  `json:"broker"`

	// Participants declares the simulated endpoints. The set is fixed at
	// startup; it is not hot-reloadable.
	Participants []ParticipantConfig `json:"participants"`

	Journal *JournalConfig `json:"journal,omitempty"`
	Sim     *SimConfig     `json:"sim,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// BrokerConfig controls the broker core.
//
// Defaults (when fields are omitted/zero):
//   - queue_max: 100
//   - max_topic_lifespan: "1m"
//   - delivery_interval: "100ms"
//   - sweep_interval: "500ms"
type BrokerConfig struct {
	QueueMax int `json:"queue_max,omitempty"`

	// MaxTopicLifespan caps topic message age regardless of expires_at.
	MaxTopicLifespan string `json:"max_topic_lifespan,omitempty"`

	DeliveryInterval string `json:"delivery_interval,omitempty"`
	SweepInterval    string `json:"sweep_interval,omitempty"`
}

type ParticipantConfig struct {
	ID        string   `json:"id"`
	Interests []string `json:"interests,omitempty"`

	// PollInterval is how often this participant polls its topic
	// interests. Default "1s".
	PollInterval string `json:"poll_interval,omitempty"`
}

// JournalConfig controls the optional delivery journal.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./courier_journal" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// SimConfig controls the traffic simulation.
type SimConfig struct {
	Enabled bool `json:"enabled"`

	// Direct generates random point-to-point traffic between the
	// configured participants.
	Direct *SimDirectConfig `json:"direct,omitempty"`

	// Announcements publish topic messages on cron schedules.
	Announcements []AnnouncementConfig `json:"announcements,omitempty"`
}

type SimDirectConfig struct {
	Enabled    bool `json:"enabled"`
	RatePerSec int  `json:"rate_per_sec,omitempty"` // default 2
	Burst      int  `json:"burst,omitempty"`        // default rate_per_sec

	// Contents is the pool of message bodies to draw from.
	Contents []string `json:"contents,omitempty"`
}

type AnnouncementConfig struct {
	Name string `json:"name"`

	// Spec is a cron expression or "@every <duration>".
	Spec string `json:"spec"`

	Sender  string `json:"sender"`
	Topic   string `json:"topic"`
	Content string `json:"content"`

	// TTL sets expires_at = publish time + ttl. Default "30s".
	TTL string `json:"ttl,omitempty"`
}

// Validate checks cross-field invariants and duration syntax. It is run
// before the initial commit and before every hot reload publish.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := ParseDurationField("broker.max_topic_lifespan", c.Broker.MaxTopicLifespan); err != nil {
		return err
	}
	if _, err := ParseDurationField("broker.delivery_interval", c.Broker.DeliveryInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("broker.sweep_interval", c.Broker.SweepInterval); err != nil {
		return err
	}
	if c.Broker.QueueMax < 0 {
		return fmt.Errorf("broker.queue_max: must be >= 0")
	}

	seen := map[string]bool{}
	for i, p := range c.Participants {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("participants[%d].id: must not be empty", i)
		}
		if seen[id] {
			return fmt.Errorf("participants[%d].id: duplicate %q", i, id)
		}
		seen[id] = true
		if _, err := ParseDurationField(fmt.Sprintf("participants[%d].poll_interval", i), p.PollInterval); err != nil {
			return err
		}
	}

	if c.Journal != nil {
		if _, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout); err != nil {
			return err
		}
	}

	if c.Sim != nil {
		for i, a := range c.Sim.Announcements {
			if strings.TrimSpace(a.Spec) == "" {
				return fmt.Errorf("sim.announcements[%d].spec: must not be empty", i)
			}
			if !seen[strings.TrimSpace(a.Sender)] {
				return fmt.Errorf("sim.announcements[%d].sender: unknown participant %q", i, a.Sender)
			}
			if _, err := ParseDurationField(fmt.Sprintf("sim.announcements[%d].ttl", i), a.TTL); err != nil {
				return err
			}
		}
	}

	return nil
}

// Duration accessors resolve string fields with defaults applied.

func (c BrokerConfig) MaxTopicLifespanDuration() time.Duration {
	d, _ := ParseDurationOrDefault("broker.max_topic_lifespan", c.MaxTopicLifespan, time.Minute)
	return d
}

func (c BrokerConfig) DeliveryIntervalDuration() time.Duration {
	d, _ := ParseDurationOrDefault("broker.delivery_interval", c.DeliveryInterval, 100*time.Millisecond)
	return d
}

func (c BrokerConfig) SweepIntervalDuration() time.Duration {
	d, _ := ParseDurationOrDefault("broker.sweep_interval", c.SweepInterval, 500*time.Millisecond)
	return d
}

func (p ParticipantConfig) PollIntervalDuration() time.Duration {
	d, _ := ParseDurationOrDefault("participants.poll_interval", p.PollInterval, time.Second)
	return d
}

func (a AnnouncementConfig) TTLDuration() time.Duration {
	d, _ := ParseDurationOrDefault("sim.announcements.ttl", a.TTL, 30*time.Second)
	return d
}

func (j JournalConfig) BusyTimeoutDuration() time.Duration {
	d, _ := ParseDurationOrDefault("journal.busy_timeout", j.BusyTimeout, 0)
	return d
}
