// Package generate defines the boundary to the remote generative service and
// ships Gemini and OpenAI backed implementations.
//
// The orchestrator only sees the small interfaces in this file: a Streamer
// yielding a lazy, finite sequence of text fragments, a Responder for
// single-shot calls, an ImageMaker for image bytes, and a VideoStarter whose
// long-running operations are polled until done. Everything service-specific
// (finish reasons, safety settings, fencing markers) is absorbed here.
package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrDone terminates a fully-consumed stream. Use errors.Is to detect it;
// the concrete error is a *State carrying the terminal status.
var ErrDone = errors.New("generate: done")

// Request describes one generation call.
type Request struct {
	// Prompt is the user prompt. Required.
	Prompt string

	// System is an optional system instruction prepended to the call.
	System string

	// Schema, when set, requests a structured JSON response conforming to it.
	// Only meaningful for Invoke.
	Schema *jsonschema.Schema

	// Temperature overrides the backend default when non-zero.
	Temperature float32

	// MaxTokens caps the generated output when non-zero.
	MaxTokens int
}

// Stream is a lazy, finite sequence of text fragments.
//
// Next returns the next fragment, which may be empty and must then be skipped
// by the caller. At the end of the stream Next returns a *State error:
// errors.Is(err, ErrDone) for normal completion, otherwise the terminal
// failure. Close releases the stream early.
type Stream interface {
	Next() (string, error)
	Close() error
}

// Streamer produces incremental text generations.
type Streamer interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Responder produces single-shot generations. The returned payload may be raw
// text that needs best-effort structured extraction (see ExtractJSON).
type Responder interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// ImageMaker produces image bytes for a prompt.
type ImageMaker interface {
	MakeImage(ctx context.Context, req Request) (data []byte, mimeType string, err error)
}

// VideoOperation is a handle to a long-running video generation. Poll reports
// whether the operation has finished and, once done, the result locator.
type VideoOperation interface {
	Poll(ctx context.Context) (done bool, uri string, err error)
}

// VideoStarter launches long-running video generations.
type VideoStarter interface {
	StartVideo(ctx context.Context, req Request) (VideoOperation, error)
}

// Status is the terminal state of a stream.
type Status int

const (
	StatusOK Status = iota
	StatusDone
	StatusTruncated
	StatusBlocked
	StatusError
)

// State is the error value carried by a terminated stream.
type State struct {
	status Status
	err    error
}

// Done builds the normal-completion state.
func Done() *State {
	return &State{status: StatusDone, err: ErrDone}
}

// Truncated builds the max-tokens state.
func Truncated() *State {
	return &State{status: StatusTruncated, err: errors.New("generate: truncated")}
}

// Blocked builds the safety-refusal state.
func Blocked(refusal string) *State {
	return &State{status: StatusBlocked, err: fmt.Errorf("generate: blocked: %s", refusal)}
}

// Failed builds the adapter-failure state.
func Failed(err error) *State {
	return &State{status: StatusError, err: fmt.Errorf("generate: %w", err)}
}

// Status returns the terminal status.
func (s *State) Status() Status { return s.status }

func (s *State) Unwrap() error { return s.err }

func (s *State) Error() string {
	if s.status == StatusDone {
		return "generate: done"
	}
	return s.err.Error()
}
