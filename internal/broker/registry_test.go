package broker

import (
	"context"
	"errors"
	"testing"
)

type stubRecipient struct{ id string }

func (r *stubRecipient) Identity() string { return r.id }
func (r *stubRecipient) ReceiveDirect(context.Context, Recipient, DirectMessage) {
}

func TestRegistryRejectsEmptyIdentity(t *testing.T) {
	r := newRegistry()
	if err := r.add(&stubRecipient{id: ""}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("add empty identity: got %v, want ErrInvalidIdentity", err)
	}
	if err := r.add(&stubRecipient{id: "   "}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("add blank identity: got %v, want ErrInvalidIdentity", err)
	}
	if err := r.add(nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("add nil: got %v, want ErrInvalidIdentity", err)
	}
	if got := r.size(); got != 0 {
		t.Fatalf("size after rejected adds: got %d, want 0", got)
	}
}

func TestRegistryRejectsDuplicateIdentity(t *testing.T) {
	r := newRegistry()
	first := &stubRecipient{id: "alice"}
	if err := r.add(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.add(&stubRecipient{id: "alice"}); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("add duplicate: got %v, want ErrDuplicateIdentity", err)
	}
	// The original registration must be untouched.
	got, ok := r.lookup("alice")
	if !ok || got != first {
		t.Fatalf("lookup after rejected duplicate: got %v ok=%v, want original", got, ok)
	}
	if got := r.size(); got != 1 {
		t.Fatalf("size: got %d, want 1", got)
	}
}

func TestRegistryLookupPair(t *testing.T) {
	r := newRegistry()
	a := &stubRecipient{id: "a"}
	b := &stubRecipient{id: "b"}
	if err := r.add(a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := r.add(b); err != nil {
		t.Fatalf("add b: %v", err)
	}

	pa, pb, okA, okB := r.lookupPair("a", "b")
	if !okA || !okB || pa != a || pb != b {
		t.Fatalf("lookupPair(a,b): got (%v,%v,%v,%v)", pa, pb, okA, okB)
	}
	_, _, okA, okB = r.lookupPair("a", "ghost")
	if !okA || okB {
		t.Fatalf("lookupPair(a,ghost): got okA=%v okB=%v, want true,false", okA, okB)
	}
}
