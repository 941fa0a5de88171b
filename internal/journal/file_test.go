package journal

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	logx "courier/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	cfg := Config{Driver: "file", Path: filepath.Join(t.TempDir(), "journal")}
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if st == nil {
		t.Fatalf("open returned nil store for file driver")
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: got (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFileAppendAndRecent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := Entry{
			Kind:      "delivered",
			MessageID: "m" + strconv.Itoa(i),
			Sender:    "alice",
			Target:    "bob",
			TookMS:    int64(i),
		}
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := st.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recent: got %d entries, want 3", len(got))
	}
	// oldest first
	for i, e := range got {
		if e.MessageID != "m"+strconv.Itoa(i) {
			t.Fatalf("entry %d: %+v", i, e)
		}
		if e.At.IsZero() {
			t.Fatalf("entry %d: Append should stamp At", i)
		}
	}
}

func TestFileRecentWindow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		e := Entry{At: time.Now(), Kind: "published", MessageID: "m" + strconv.Itoa(i)}
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := st.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recent: got %d, want 3", len(got))
	}
	want := []string{"m7", "m8", "m9"}
	for i, e := range got {
		if e.MessageID != want[i] {
			t.Fatalf("window entry %d: got %q, want %q", i, e.MessageID, want[i])
		}
	}
}

func TestFileRecentMissingFile(t *testing.T) {
	s := &fileStore{path: filepath.Join(t.TempDir(), "never-written.jsonl")}
	got, err := s.Recent(context.Background(), 5)
	if err != nil || got != nil {
		t.Fatalf("recent on missing file: got (%v, %v), want (nil, nil)", got, err)
	}
}
