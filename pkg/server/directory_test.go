package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDirectoryRegisterResolve(t *testing.T) {
	d := NewDirectory()
	s := &Session{ID: "s1"}

	if err := d.Register("alice", s, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := d.Resolve("alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != s {
		t.Fatal("resolve returned a different session")
	}
	if n := d.Count(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestDirectoryDuplicateHandle(t *testing.T) {
	d := NewDirectory()
	first := &Session{ID: "first"}
	second := &Session{ID: "second"}

	if err := d.Register("taken", first, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Register("taken", second, nil); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("duplicate register: got %v, want ErrHandleTaken", err)
	}

	// The loser must not be able to evict the winner.
	if d.Unregister("taken", second) {
		t.Fatal("unregister by non-holder succeeded")
	}
	if got, err := d.Resolve("taken"); err != nil || got != first {
		t.Fatalf("winner lost its entry: session=%v err=%v", got, err)
	}
}

func TestDirectoryCaseSensitive(t *testing.T) {
	d := NewDirectory()
	if err := d.Register("Alice", &Session{}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Register("alice", &Session{}, nil); err != nil {
		t.Fatalf("register different case: %v", err)
	}
	if _, err := d.Resolve("ALICE"); !errors.Is(err, ErrHandleUnknown) {
		t.Fatalf("resolve ALICE: got %v, want ErrHandleUnknown", err)
	}
}

func TestDirectoryUnregister(t *testing.T) {
	d := NewDirectory()
	s := &Session{}

	d.Register("bob", s, nil)
	if !d.Unregister("bob", s) {
		t.Fatal("unregister by holder failed")
	}
	if _, err := d.Resolve("bob"); !errors.Is(err, ErrHandleUnknown) {
		t.Fatalf("resolve after unregister: got %v, want ErrHandleUnknown", err)
	}
	if d.Unregister("bob", s) {
		t.Fatal("second unregister succeeded")
	}
}

func TestDirectorySnapshotOrder(t *testing.T) {
	d := NewDirectory()
	handles := []string{"charlie", "alice", "bob"}
	for _, h := range handles {
		if err := d.Register(h, &Session{}, nil); err != nil {
			t.Fatalf("register %q: %v", h, err)
		}
	}

	snap := d.Snapshot()
	if len(snap) != len(handles) {
		t.Fatalf("snapshot length = %d, want %d", len(snap), len(handles))
	}
	for i, h := range handles {
		if snap[i] != h {
			t.Fatalf("snapshot[%d] = %q, want %q (registration order)", i, snap[i], h)
		}
	}

	d.Unregister("alice", nil)
	// nil session never matches the holder; the entry stays.
	if len(d.Snapshot()) != 3 {
		t.Fatal("unregister with wrong session changed the snapshot")
	}
}

func TestDirectoryReadyCallback(t *testing.T) {
	d := NewDirectory()

	ran := 0
	if err := d.Register("carol", &Session{}, func() { ran++ }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if ran != 1 {
		t.Fatalf("ready ran %d times, want 1", ran)
	}

	// The callback must not run for a rejected claim.
	if err := d.Register("carol", &Session{}, func() { ran++ }); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("duplicate register: got %v, want ErrHandleTaken", err)
	}
	if ran != 1 {
		t.Fatalf("ready ran %d times after rejection, want 1", ran)
	}
}

func TestDirectoryConcurrentClaims(t *testing.T) {
	d := NewDirectory()
	const attempts = 64

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Register("contested", &Session{}, nil) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins.Load())
	}
	if d.Count() != 1 {
		t.Fatalf("count = %d, want 1", d.Count())
	}
}

func TestDirectoryOthers(t *testing.T) {
	d := NewDirectory()
	sessions := make([]*Session, 4)
	for i := range sessions {
		sessions[i] = &Session{ID: fmt.Sprintf("s%d", i)}
		if err := d.Register(fmt.Sprintf("h%d", i), sessions[i], nil); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	others := d.Others(sessions[0])
	if len(others) != 3 {
		t.Fatalf("others = %d sessions, want 3", len(others))
	}
	for _, s := range others {
		if s == sessions[0] {
			t.Fatal("others included the skipped session")
		}
	}
}
