package broker

import "time"

type Config struct {
	// QueueMax bounds the direct queue. Enqueue beyond the bound fails,
	// it never evicts.
	QueueMax int
	// MaxTopicLifespan caps how long a topic message may live regardless
	// of its explicit deadline.
	MaxTopicLifespan time.Duration
	// DeliveryInterval is the pause between delivery cycles.
	DeliveryInterval time.Duration
	// SweepInterval is the pause between invalidation sweeps.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueMax <= 0 {
		c.QueueMax = 100
	}
	if c.MaxTopicLifespan <= 0 {
		c.MaxTopicLifespan = time.Minute
	}
	if c.DeliveryInterval <= 0 {
		c.DeliveryInterval = 100 * time.Millisecond
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 500 * time.Millisecond
	}
	return c
}

// BrokerAttacher is implemented by recipients that keep a back-reference to
// their owning broker. Register calls it exactly once, after the identity
// checks pass.
type BrokerAttacher interface {
	AttachBroker(b *Broker)
}

// DeliveryEvent is the bus payload for direct.delivered and direct.dropped.
type DeliveryEvent struct {
	Message DirectMessage
	Reason  string // empty when delivered
	Took    time.Duration
}

// PublishEvent is the bus payload for topic.published.
type PublishEvent struct {
	Message TopicMessage
}

// SweepEvent is the bus payload for topic.swept.
type SweepEvent struct {
	Removed   int
	Remaining int
}
