// Package live maintains a full-duplex realtime audio session with a remote
// voice endpoint: capture frames go out as soon as they are read, and the
// reply audio is scheduled for gapless playback with barge-in interruption.
package live

import (
	"context"

	"github.com/medleyhq/medley/pkg/pcm"
)

// Audio formats on the two sides of the channel: 16 kHz capture upstream,
// 24 kHz reply audio downstream.
var (
	CaptureFormat  = pcm.L16Mono16K
	PlaybackFormat = pcm.L16Mono24K
)

// MessageType discriminates inbound channel messages.
type MessageType int

const (
	// MsgOpen signals the channel handshake completed.
	MsgOpen MessageType = iota
	// MsgAudio carries one decoded reply buffer in PlaybackFormat.
	MsgAudio
	// MsgInterrupted signals barge-in: the user spoke over the reply and
	// everything scheduled but unplayed must be discarded.
	MsgInterrupted
	// MsgTurnComplete marks the end of one model reply turn.
	MsgTurnComplete
	// MsgInputTranscript carries incremental transcription of captured audio.
	MsgInputTranscript
	// MsgOutputTranscript carries incremental transcription of reply audio.
	MsgOutputTranscript
	// MsgClosed signals the remote endpoint ended the channel.
	MsgClosed
	// MsgError carries a channel failure. No further messages follow.
	MsgError
)

func (t MessageType) String() string {
	switch t {
	case MsgOpen:
		return "open"
	case MsgAudio:
		return "audio"
	case MsgInterrupted:
		return "interrupted"
	case MsgTurnComplete:
		return "turn_complete"
	case MsgInputTranscript:
		return "input_transcript"
	case MsgOutputTranscript:
		return "output_transcript"
	case MsgClosed:
		return "closed"
	case MsgError:
		return "error"
	}
	return "unknown"
}

// Message is one inbound event from the remote endpoint.
type Message struct {
	Type  MessageType
	Audio []byte // MsgAudio: 16-bit LE PCM in PlaybackFormat
	Text  string // transcript fragments
	Err   error  // MsgError
}

// Conn is an established duplex channel. SendFrame is fire-and-forget: no
// acknowledgment, no backpressure; frames must be sent in capture order.
type Conn interface {
	// SendFrame transmits one CaptureFormat PCM frame.
	SendFrame(frame []byte) error

	// SendText injects a user text turn alongside the audio stream.
	SendText(text string) error

	// Messages returns the inbound message channel. It is closed after
	// MsgClosed or MsgError, or when the conn is closed locally.
	Messages() <-chan Message

	// Close tears the channel down without draining in-flight audio.
	Close() error
}

// Channel dials duplex connections.
type Channel interface {
	Connect(ctx context.Context, cfg ChannelConfig) (Conn, error)
}

// ChannelConfig configures one connection.
type ChannelConfig struct {
	// Model is the voice-capable model to converse with.
	Model string

	// Voice selects the reply voice. Backend default when empty.
	Voice string

	// Instructions is an optional system instruction for the conversation.
	Instructions string

	// Transcribe requests incremental transcription of both directions.
	Transcribe bool
}
