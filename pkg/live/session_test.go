package live

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/medleyhq/medley/pkg/pcm"
	"github.com/medleyhq/medley/pkg/queue"
)

func fixedClock(t0 time.Time) func() time.Time {
	return func() time.Time { return t0 }
}

func TestSchedulerGapless(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	s := newScheduler(fixedClock(t0))

	durations := []time.Duration{500 * time.Millisecond, 300 * time.Millisecond, 400 * time.Millisecond}
	wantStarts := []time.Duration{0, 500 * time.Millisecond, 800 * time.Millisecond}
	for i, d := range durations {
		start := s.schedule(d)
		if got := start.Sub(t0); got != wantStarts[i] {
			t.Errorf("buffer %d start = %v after t0, want %v", i, got, wantStarts[i])
		}
	}
	// Total scheduled span is the sum of the durations.
	if end := s.head.Sub(t0); end != 1200*time.Millisecond {
		t.Errorf("span = %v, want 1.2s", end)
	}
}

func TestSchedulerNeverSchedulesInThePast(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := newScheduler(func() time.Time { return now })

	s.schedule(100 * time.Millisecond)
	// The wall clock jumps past the head: the dropped time is absorbed, the
	// next start is "now", never earlier.
	now = now.Add(time.Second)
	start := s.schedule(100 * time.Millisecond)
	if !start.Equal(now) {
		t.Fatalf("start = %v, want %v", start, now)
	}
}

func TestSchedulerReset(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	s := newScheduler(fixedClock(t0))

	s.schedule(time.Second)
	s.reset()
	if start := s.schedule(100 * time.Millisecond); !start.Equal(t0) {
		t.Fatalf("start after reset = %v, want %v", start, t0)
	}
}

// recordSink records every scheduled buffer and Stop call.
type recordSink struct {
	mu      sync.Mutex
	plays   []time.Time
	lens    []int
	stops   int
	played  chan struct{}
}

func newRecordSink() *recordSink {
	return &recordSink{played: make(chan struct{}, 64)}
}

func (s *recordSink) Play(audio []byte, at time.Time) {
	s.mu.Lock()
	s.plays = append(s.plays, at)
	s.lens = append(s.lens, len(audio))
	s.mu.Unlock()
	s.played <- struct{}{}
}

func (s *recordSink) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}

func (s *recordSink) waitPlays(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-s.played:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for playback")
		}
	}
}

// fakeConn is a scriptable duplex connection.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	texts  []string
	msgCh  chan Message
	closed sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgCh: make(chan Message, 64)}
}

func (c *fakeConn) SendFrame(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	c.mu.Lock()
	c.frames = append(c.frames, cp)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SendText(text string) error {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Messages() <-chan Message { return c.msgCh }

func (c *fakeConn) Close() error {
	c.closed.Do(func() { close(c.msgCh) })
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// fakeChannel hands out a prepared conn and counts dials.
type fakeChannel struct {
	mu    sync.Mutex
	conn  *fakeConn
	dials int
}

func (ch *fakeChannel) Connect(context.Context, ChannelConfig) (Conn, error) {
	ch.mu.Lock()
	ch.dials++
	ch.mu.Unlock()
	return ch.conn, nil
}

func audioBuf(d time.Duration) []byte {
	return make([]byte, PlaybackFormat.BytesInDuration(d))
}

func TestSessionPlaysGapless(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	sink := newRecordSink()
	conn := newFakeConn()
	s := NewSession(Config{
		Channel: &fakeChannel{conn: conn},
		Sink:    sink,
		Clock:   fixedClock(t0),
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	for _, d := range []time.Duration{500 * time.Millisecond, 300 * time.Millisecond, 400 * time.Millisecond} {
		conn.msgCh <- Message{Type: MsgAudio, Audio: audioBuf(d)}
	}
	sink.waitPlays(t, 3)

	wantStarts := []time.Duration{0, 500 * time.Millisecond, 800 * time.Millisecond}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, at := range sink.plays {
		if got := at.Sub(t0); got != wantStarts[i] {
			t.Errorf("buffer %d start = %v after t0, want %v", i, got, wantStarts[i])
		}
	}
}

func TestSessionInterruptResetsPlayHead(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	sink := newRecordSink()
	conn := newFakeConn()
	s := NewSession(Config{
		Channel: &fakeChannel{conn: conn},
		Sink:    sink,
		Clock:   fixedClock(t0),
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	conn.msgCh <- Message{Type: MsgAudio, Audio: audioBuf(500 * time.Millisecond)}
	sink.waitPlays(t, 1)

	conn.msgCh <- Message{Type: MsgInterrupted}
	waitState(t, s, StateInterrupted)

	// The next reply starts fresh at "now", not after the discarded tail.
	conn.msgCh <- Message{Type: MsgAudio, Audio: audioBuf(300 * time.Millisecond)}
	sink.waitPlays(t, 1)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.stops == 0 {
		t.Error("interruption did not stop the sink")
	}
	if got := sink.plays[1].Sub(t0); got != 0 {
		t.Errorf("post-interrupt start = %v after t0, want 0", got)
	}
	if s.State() != StateActive {
		t.Errorf("state = %s, want active after reply resumes", s.State())
	}
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}

func TestInterruptDiscardsPendingBuffers(t *testing.T) {
	sink := newRecordSink()
	s := NewSession(Config{Channel: &fakeChannel{conn: newFakeConn()}, Sink: sink})

	pending := queue.New[[]byte](8)
	pending.Add(audioBuf(300 * time.Millisecond))
	pending.Add(audioBuf(400 * time.Millisecond))

	s.interrupt(pending)

	if pending.Len() != 0 {
		t.Fatalf("pending = %d buffers, want 0", pending.Len())
	}
	if sink.stops != 1 {
		t.Fatalf("stops = %d, want 1", sink.stops)
	}
}

func TestStartIsNoOpWhileActive(t *testing.T) {
	ch := &fakeChannel{conn: newFakeConn()}
	s := NewSession(Config{Channel: ch, Sink: newRecordSink()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if ch.dials != 1 {
		t.Fatalf("dials = %d, want 1", ch.dials)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	s := NewSession(Config{Channel: &fakeChannel{conn: newFakeConn()}, Sink: newRecordSink()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Start(context.Background()); err != ErrClosed {
		t.Fatalf("Start after Close = %v, want ErrClosed", err)
	}
	// Idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCaptureForwardsFramesInOrder(t *testing.T) {
	// Three 20ms frames at the capture rate, with recognizable first bytes.
	var input bytes.Buffer
	frameLen := CaptureFormat.BytesInDuration(20 * time.Millisecond)
	for i := range 3 {
		frame := make([]byte, frameLen)
		frame[0] = byte(i + 1)
		input.Write(frame)
	}

	conn := newFakeConn()
	s := NewSession(Config{
		Channel:      &fakeChannel{conn: conn},
		Source:       NewReaderSource(&input, CaptureFormat, 20*time.Millisecond),
		SourceFormat: CaptureFormat,
		Sink:         newRecordSink(),
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	deadline := time.Now().Add(2 * time.Second)
	for conn.frameCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.frames) != 3 {
		t.Fatalf("frames sent = %d, want 3", len(conn.frames))
	}
	for i, f := range conn.frames {
		if len(f) != frameLen {
			t.Errorf("frame %d len = %d, want %d", i, len(f), frameLen)
		}
		if f[0] != byte(i+1) {
			t.Errorf("frame %d out of capture order (marker %d)", i, f[0])
		}
	}
}

func TestTranscriptCallback(t *testing.T) {
	type fragment struct {
		dir  TranscriptDirection
		text string
	}
	got := make(chan fragment, 4)

	conn := newFakeConn()
	s := NewSession(Config{
		Channel: &fakeChannel{conn: conn},
		Sink:    newRecordSink(),
		OnTranscript: func(dir TranscriptDirection, text string) {
			got <- fragment{dir, text}
		},
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	conn.msgCh <- Message{Type: MsgInputTranscript, Text: "hello"}
	conn.msgCh <- Message{Type: MsgOutputTranscript, Text: "hi there"}

	want := []fragment{
		{TranscriptInput, "hello"},
		{TranscriptOutput, "hi there"},
	}
	for i, w := range want {
		select {
		case f := <-got:
			if f != w {
				t.Errorf("fragment %d = %+v, want %+v", i, f, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("transcript callback not invoked")
		}
	}
}

func TestReaderSourceFraming(t *testing.T) {
	// 640 bytes is one 20ms frame at 16 kHz; the 100-byte tail comes through
	// as a short final frame before EOF.
	data := make([]byte, 640+640+100)
	src := NewReaderSource(bytes.NewReader(data), pcm.L16Mono16K, 20*time.Millisecond)

	ctx := context.Background()
	for i := range 2 {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if len(frame) != 640 {
			t.Fatalf("frame %d len = %d, want 640", i, len(frame))
		}
	}
	tail, err := src.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(tail) != 100 {
		t.Fatalf("tail len = %d, want 100", len(tail))
	}
	if _, err := src.ReadFrame(ctx); err != io.EOF {
		t.Fatalf("after tail err = %v, want io.EOF", err)
	}
}
