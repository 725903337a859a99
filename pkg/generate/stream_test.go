package generate

import (
	"errors"
	"io"
	"testing"
)

func collect(t *testing.T, s Stream) (string, error) {
	t.Helper()
	var acc string
	for {
		frag, err := s.Next()
		if err != nil {
			return acc, err
		}
		acc += frag
	}
}

func TestStreamDone(t *testing.T) {
	b := NewStreamBuilder(4)
	go func() {
		b.Add("hel")
		b.Add("") // empty fragments pass through
		b.Add("lo")
		b.Done()
	}()

	acc, err := collect(t, b.Stream())
	if !errors.Is(err, ErrDone) {
		t.Fatalf("err = %v, want ErrDone", err)
	}
	if acc != "hello" {
		t.Fatalf("acc = %q", acc)
	}
	var st *State
	if !errors.As(err, &st) || st.Status() != StatusDone {
		t.Fatalf("terminal state = %v", err)
	}
}

func TestStreamAbort(t *testing.T) {
	b := NewStreamBuilder(4)
	go func() {
		b.Add("partial")
		b.Abort(io.ErrUnexpectedEOF)
	}()

	acc, err := collect(t, b.Stream())
	if acc != "partial" {
		t.Fatalf("acc = %q", acc)
	}
	if errors.Is(err, ErrDone) {
		t.Fatal("aborted stream reported done")
	}
	var st *State
	if !errors.As(err, &st) || st.Status() != StatusError {
		t.Fatalf("terminal state = %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestStreamBlocked(t *testing.T) {
	b := NewStreamBuilder(4)
	go func() {
		b.Blocked("blocked by HARM_CATEGORY_HATE_SPEECH")
	}()

	_, err := collect(t, b.Stream())
	var st *State
	if !errors.As(err, &st) || st.Status() != StatusBlocked {
		t.Fatalf("terminal state = %v", err)
	}
}

func TestStreamCloseEarly(t *testing.T) {
	b := NewStreamBuilder(1)
	s := b.Stream()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Add("x"); err == nil {
		t.Fatal("Add after consumer close should fail")
	}
}
