package live

import (
	"io"
	"sync"
	"time"
)

// Sink receives scheduled playback buffers. Play must not block. Stop
// discards buffers handed over but not yet finished playing; the sink keeps
// accepting Play calls afterwards.
type Sink interface {
	Play(audio []byte, at time.Time)
	Stop()
}

// scheduler tracks the play head: the next available start time for playback.
// Buffers are scheduled back-to-back; a reset (barge-in) zeroes the head so
// the next reply starts fresh at "now".
type scheduler struct {
	mu   sync.Mutex
	head time.Time
	now  func() time.Time
}

func newScheduler(now func() time.Time) *scheduler {
	if now == nil {
		now = time.Now
	}
	return &scheduler{now: now}
}

// schedule returns the start time for a buffer of duration d and advances the
// head by exactly d. The start is max(head, now): gapless concatenation when
// the head is ahead, never in the past when decode lags.
func (s *scheduler) schedule(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.head
	if now := s.now(); start.Before(now) {
		start = now
	}
	s.head = start.Add(d)
	return start
}

func (s *scheduler) reset() {
	s.mu.Lock()
	s.head = time.Time{}
	s.mu.Unlock()
}

// WriterSink streams playback buffers into an io.Writer as soon as they are
// scheduled, e.g. raw PCM piped into an external player that does its own
// pacing. Start times are ignored, and Stop is a no-op because nothing is
// ever held back.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a WriterSink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Play(audio []byte, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(audio)
}

func (s *WriterSink) Stop() {}
