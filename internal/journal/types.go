package journal

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal.
//
// Driver values:
//   - "file": dependency-free file backend (append-only jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one delivery outcome (or topic lifecycle event).
//
// The journal is write-mostly operational history: it is never read back
// to rebuild broker state.
type Entry struct {
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"` // delivered | dropped | published | swept
	MessageID string    `json:"message_id,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Target    string    `json:"target,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	TookMS    int64     `json:"took_ms,omitempty"`
}
