package broker

import (
	"context"
	"strings"
	"sync"
)

// Recipient is the broker-side view of a registered participant.
//
// ReceiveDirect is invoked only by the delivery loop. Implementations must
// never let an observer failure escape: the delivery loop treats the call
// as infallible.
type Recipient interface {
	Identity() string
	ReceiveDirect(ctx context.Context, from Recipient, msg DirectMessage)
}

// registry tracks registered participants by identity.
// Registration is atomic with respect to lookups: a lookup either sees the
// fully registered participant or nothing.
type registry struct {
	mu      sync.RWMutex
	members map[string]Recipient
}

func newRegistry() *registry {
	return &registry{members: map[string]Recipient{}}
}

func (r *registry) add(p Recipient) error {
	if p == nil || strings.TrimSpace(p.Identity()) == "" {
		return ErrInvalidIdentity
	}
	id := p.Identity()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[id]; exists {
		return ErrDuplicateIdentity
	}
	r.members[id] = p
	return nil
}

func (r *registry) lookup(id string) (Recipient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.members[id]
	return p, ok
}

// lookupPair resolves two identities under a single lock acquisition.
func (r *registry) lookupPair(a, b string) (pa, pb Recipient, okA, okB bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pa, okA = r.members[a]
	pb, okB = r.members[b]
	return pa, pb, okA, okB
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
