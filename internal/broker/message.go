package broker

import (
	"time"

	"github.com/google/uuid"
)

// DirectMessage is a point-to-point message with exactly one target.
// It lives in the direct queue until the delivery loop dequeues it;
// it is never retained after the delivery attempt, successful or not.
type DirectMessage struct {
	ID        string
	Sender    string
	Target    string
	Content   string
	CreatedAt time.Time
}

// TopicMessage is a broadcast message discoverable by anyone polling its
// topic tag. It lives in the topic store until the invalidation sweep
// removes it.
type TopicMessage struct {
	ID        string
	Sender    string
	Topic     string
	Content   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func newDirectMessage(sender, target, content string, now time.Time) DirectMessage {
	return DirectMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Target:    target,
		Content:   content,
		CreatedAt: now,
	}
}

func newTopicMessage(sender, topic, content string, now, expiresAt time.Time) TopicMessage {
	return TopicMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Topic:     topic,
		Content:   content,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
}
