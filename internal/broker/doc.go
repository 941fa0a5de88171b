// Package broker implements the in-process message broker at the heart of
// the messaging exercise: a registry of participants, a bounded FIFO queue
// for point-to-point messages, and an unordered store of topic messages
// with automatic expiration.
//
// The broker owns two background loops. The delivery loop drains the direct
// queue one message per cycle and hands each message to its target
// synchronously. The invalidation loop sweeps the topic store and removes
// expired messages. Both run until Stop or context cancellation.
//
// Concurrency model: registry, queue and store are each guarded by their own
// mutex; no operation holds more than one of them at a time, and no lock is
// held across a blocking wait.
package broker
