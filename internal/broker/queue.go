package broker

import "sync"

// directQueue is a bounded FIFO of pending direct messages.
//
// The capacity check and the append are one critical section, so the bound
// can never be exceeded, not even transiently under concurrent submitters.
type directQueue struct {
	mu    sync.Mutex
	max   int
	items []DirectMessage
}

func newDirectQueue(max int) *directQueue {
	return &directQueue{max: max}
}

func (q *directQueue) enqueue(m DirectMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		return ErrQueueFull
	}
	q.items = append(q.items, m)
	return nil
}

// dequeue removes and returns the head of the queue.
// The message is gone from broker state the moment this returns.
func (q *directQueue) dequeue() (DirectMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return DirectMessage{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Release the backing array so a drained queue holds no messages.
		q.items = nil
	}
	return m, true
}

func (q *directQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
