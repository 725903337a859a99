package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/medleyhq/medley/pkg/pcm"
	"github.com/medleyhq/medley/pkg/queue"
)

// ErrClosed is returned by Start on a session that has been closed.
var ErrClosed = errors.New("live: session closed")

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateInterrupted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateInterrupted:
		return "interrupted"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Source produces capture frames. ReadFrame blocks until one fixed-size frame
// of 16-bit LE mono PCM is available and returns io.EOF when the input ends.
type Source interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// TranscriptDirection tags which side of the conversation a transcript
// fragment belongs to.
type TranscriptDirection int

const (
	TranscriptInput TranscriptDirection = iota
	TranscriptOutput
)

// Config assembles a Session.
type Config struct {
	// Channel dials the duplex connection. Required.
	Channel Channel

	// ChannelConfig is passed through to Channel.Connect.
	ChannelConfig ChannelConfig

	// Source is the capture input. Nil disables the capture path (text-only
	// or playback-only sessions).
	Source Source

	// SourceFormat is the PCM format Source produces. Frames are resampled
	// to CaptureFormat before transmission. Defaults to CaptureFormat.
	SourceFormat pcm.Format

	// Sink plays the reply audio. Required.
	Sink Sink

	// OnTranscript, when set, receives incremental transcription of both
	// directions.
	OnTranscript func(dir TranscriptDirection, text string)

	// QueueSize bounds the pending-playback buffer set. Defaults to 256.
	QueueSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock overrides wall-clock time for the playback scheduler in tests.
	Clock func() time.Time
}

// Session drives one duplex conversation: a capture pipeline that forwards
// frames with at most one frame of added latency, and a playback pipeline
// that schedules reply buffers gaplessly and honors barge-in interruption.
//
// Lifecycle: idle → connecting → active ⇄ interrupted → closed. A second
// Start while connecting or active is a no-op; Close is terminal.
type Session struct {
	cfg   Config
	log   *slog.Logger
	sched *scheduler

	mu      sync.Mutex
	state   State
	conn    Conn
	cancel  context.CancelFunc
	gen     uint64 // playback generation; bumped on barge-in
	pending *queue.Queue[[]byte]
	wg      sync.WaitGroup
}

// NewSession creates an idle Session.
func NewSession(cfg Config) *Session {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		cfg:   cfg,
		log:   cfg.Logger,
		sched: newScheduler(cfg.Clock),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start connects the channel and launches the capture and playback pipelines.
// A no-op while connecting or already active.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateActive, StateInterrupted:
		s.mu.Unlock()
		return nil
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.cfg.Channel.Connect(ctx, s.cfg.ChannelConfig)
	if err != nil {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.state != StateConnecting {
		// Closed while dialing.
		s.mu.Unlock()
		cancel()
		conn.Close()
		return ErrClosed
	}
	s.state = StateActive
	s.conn = conn
	s.cancel = cancel
	s.pending = queue.New[[]byte](s.cfg.QueueSize)
	pending := s.pending
	s.mu.Unlock()

	s.wg.Add(2)
	go s.recvLoop(conn, pending)
	go s.playLoop(pending)
	if s.cfg.Source != nil {
		s.wg.Add(1)
		go s.captureLoop(runCtx, conn)
	}
	return nil
}

// SendText injects a user text turn into the active conversation.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	return conn.SendText(text)
}

// Close tears the session down: capture stops, in-flight frames are dropped,
// and scheduled playback is released without waiting for it to finish.
// Idempotent.
func (s *Session) Close() error {
	s.teardown()
	s.wg.Wait()
	return nil
}

func (s *Session) teardown() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	conn := s.conn
	cancel := s.cancel
	pending := s.pending
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if pending != nil {
		pending.Close()
	}
	s.cfg.Sink.Stop()
}

// captureLoop forwards frames as soon as they are read: one ReadFrame, one
// resample, one SendFrame — never more than a single frame of added latency,
// and never blocked by the playback side.
func (s *Session) captureLoop(ctx context.Context, conn Conn) {
	defer s.wg.Done()

	rs, err := pcm.NewResampler(s.cfg.SourceFormat, CaptureFormat)
	if err != nil {
		s.log.Error("capture resampler unavailable", "err", err)
		return
	}
	defer rs.Close()

	for {
		frame, err := s.cfg.Source.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Warn("capture read failed", "err", err)
			}
			return
		}
		out, err := rs.Process(frame)
		if err != nil {
			s.log.Warn("capture resample failed", "err", err)
			continue
		}
		if len(out) == 0 {
			continue
		}
		if err := conn.SendFrame(out); err != nil {
			if ctx.Err() == nil {
				s.log.Warn("frame send failed", "err", err)
			}
			return
		}
	}
}

// recvLoop dispatches inbound channel messages until the channel ends.
func (s *Session) recvLoop(conn Conn, pending *queue.Queue[[]byte]) {
	defer s.wg.Done()

	for msg := range conn.Messages() {
		switch msg.Type {
		case MsgAudio:
			s.setActive()
			if err := pending.Add(msg.Audio); err != nil {
				return
			}
		case MsgInterrupted:
			s.interrupt(pending)
		case MsgTurnComplete:
			s.setActive()
		case MsgInputTranscript:
			if s.cfg.OnTranscript != nil {
				s.cfg.OnTranscript(TranscriptInput, msg.Text)
			}
		case MsgOutputTranscript:
			if s.cfg.OnTranscript != nil {
				s.cfg.OnTranscript(TranscriptOutput, msg.Text)
			}
		case MsgError:
			if s.State() != StateClosed {
				s.log.Error("duplex channel failed", "err", msg.Err)
			}
			s.teardown()
			return
		case MsgClosed:
			s.teardown()
			return
		}
	}
}

// playLoop schedules decoded buffers back-to-back. Buffers dequeued before a
// barge-in but not yet scheduled belong to the superseded generation and are
// dropped instead of played.
func (s *Session) playLoop(pending *queue.Queue[[]byte]) {
	defer s.wg.Done()

	for {
		gen := s.generation()
		buf, err := pending.Next()
		if err != nil {
			return
		}
		if s.generation() != gen {
			continue
		}
		d := PlaybackFormat.Duration(len(buf))
		start := s.sched.schedule(d)
		s.cfg.Sink.Play(buf, start)
	}
}

// interrupt handles barge-in: discard every buffer scheduled but unplayed,
// clear the pending set, and reset the play head so the next reply starts
// fresh.
func (s *Session) interrupt(pending *queue.Queue[[]byte]) {
	s.mu.Lock()
	if s.state == StateActive {
		s.state = StateInterrupted
	}
	s.gen++
	s.mu.Unlock()

	dropped := pending.Drain()
	s.sched.reset()
	s.cfg.Sink.Stop()
	s.log.Debug("barge-in", "dropped_buffers", dropped)
}

func (s *Session) setActive() {
	s.mu.Lock()
	if s.state == StateInterrupted {
		s.state = StateActive
	}
	s.mu.Unlock()
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}
