package shared_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medleyhq/medley/pkg/shared"
)

// newTestStore creates a Store for testing. Tests in this file use the Memory
// implementation; the same logic applies to other backends.
func newTestStore(t *testing.T) shared.Store {
	t.Helper()
	s := shared.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Get non-existent key.
	_, err := s.Get(ctx, shared.KeyTheme)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Set and Get.
	if err := s.Set(ctx, shared.KeyTheme, []byte("dark")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, shared.KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "dark" {
		t.Fatalf("Get = %q, want %q", got, "dark")
	}

	// Overwrite.
	if err := s.Set(ctx, shared.KeyTheme, []byte("light")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = s.Get(ctx, shared.KeyTheme)
	if string(got) != "light" {
		t.Fatalf("Get = %q, want %q", got, "light")
	}

	// Delete.
	if err := s.Delete(ctx, shared.KeyTheme); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, shared.KeyTheme); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Delete non-existent key should not error.
	if err := s.Delete(ctx, "no-such-key"); err != nil {
		t.Fatalf("Delete non-existent: %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Set(ctx, shared.KeySessions, []byte("abc"))
	got, _ := s.Get(ctx, shared.KeySessions)
	got[0] = 'x'

	again, _ := s.Get(ctx, shared.KeySessions)
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through Get result: %q", again)
	}
}

func TestWatchDeliversWrites(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx, shared.KeySessions)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := s.Set(context.Background(), shared.KeySessions, []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Key != shared.KeySessions || string(ev.Value) != "v1" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	// Writes to other keys are invisible to this watch.
	s.Set(context.Background(), shared.KeyTheme, []byte("dark"))
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchCoalescesToLatest(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := s.Watch(ctx, shared.KeyPresence)

	// Watcher is not reading: only the newest write must survive.
	for _, v := range []string{"v1", "v2", "v3"} {
		s.Set(context.Background(), shared.KeyPresence, []byte(v))
	}

	ev := <-ch
	if string(ev.Value) != "v3" {
		t.Fatalf("coalesced value = %q, want v3", ev.Value)
	}
}

func TestWatchClosedOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := s.Watch(ctx, shared.KeySessions)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
