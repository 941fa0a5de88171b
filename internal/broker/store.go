package broker

import (
	"sync"
	"time"
)

// topicStore holds broadcast messages until they expire. Order is not part
// of the contract, but the sweep preserves the relative order of survivors
// so repeated queries stay stable between sweeps.
type topicStore struct {
	mu          sync.Mutex
	maxLifespan time.Duration
	items       []TopicMessage
}

func newTopicStore(maxLifespan time.Duration) *topicStore {
	return &topicStore{maxLifespan: maxLifespan}
}

func (s *topicStore) add(m TopicMessage) {
	s.mu.Lock()
	s.items = append(s.items, m)
	s.mu.Unlock()
}

// byTopic returns a snapshot of all messages currently tagged with topic.
func (s *topicStore) byTopic(topic string) []TopicMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TopicMessage
	for _, m := range s.items {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// setMaxLifespan adjusts the lifespan cap for subsequent sweeps.
func (s *topicStore) setMaxLifespan(d time.Duration) {
	s.mu.Lock()
	s.maxLifespan = d
	s.mu.Unlock()
}

// expired reports whether m should be removed at time now: either its
// explicit deadline has passed, or its age has reached the configured
// maximum lifespan, whichever comes first.
func (s *topicStore) expiredLocked(m TopicMessage, now time.Time) bool {
	if !m.ExpiresAt.After(now) {
		return true
	}
	return s.maxLifespan > 0 && now.Sub(m.CreatedAt) >= s.maxLifespan
}

// sweep removes every expired message in one pass, preserving the relative
// order of survivors. The whole scan runs under the store lock; it never
// blocks mid-scan. Returns the number of removed messages.
func (s *topicStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, m := range s.items {
		if !s.expiredLocked(m, now) {
			kept = append(kept, m)
		}
	}
	removed := len(s.items) - len(kept)
	// Zero the tail so removed messages don't linger in the backing array.
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = TopicMessage{}
	}
	s.items = kept
	return removed
}

func (s *topicStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
