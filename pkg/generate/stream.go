package generate

import (
	"errors"

	"github.com/medleyhq/medley/pkg/queue"
)

// event is one element moving through a builder-backed stream: either a text
// fragment or a terminal state.
type event struct {
	text  string
	state *State
}

// StreamBuilder is the producer side of a Stream. Backend pull loops push
// fragments with Add and finish with exactly one of Done, Truncated, Blocked,
// or Abort. The consumer side is obtained once via Stream.
type StreamBuilder struct {
	q *queue.Queue[event]
}

// NewStreamBuilder creates a builder with the given fragment buffer size.
func NewStreamBuilder(size int) *StreamBuilder {
	return &StreamBuilder{q: queue.New[event](size)}
}

// Add pushes one text fragment.
func (b *StreamBuilder) Add(text string) error {
	return b.q.Add(event{text: text})
}

// Done terminates the stream normally.
func (b *StreamBuilder) Done() error {
	return b.finish(Done())
}

// Truncated terminates the stream as cut off by the token limit.
func (b *StreamBuilder) Truncated() error {
	return b.finish(Truncated())
}

// Blocked terminates the stream as refused by the service.
func (b *StreamBuilder) Blocked(refusal string) error {
	return b.finish(Blocked(refusal))
}

// Abort terminates the stream with an adapter failure.
func (b *StreamBuilder) Abort(err error) error {
	return b.finish(Failed(err))
}

func (b *StreamBuilder) finish(st *State) error {
	if err := b.q.Add(event{state: st}); err != nil {
		return err
	}
	return b.q.CloseWrite()
}

// Stream returns the consumer side.
func (b *StreamBuilder) Stream() Stream {
	return (*builtStream)(b)
}

type builtStream StreamBuilder

func (s *builtStream) Next() (string, error) {
	ev, err := s.q.Next()
	if err != nil {
		if errors.Is(err, queue.ErrDone) {
			// Producer closed without a terminal event; treat as done.
			return "", Done()
		}
		return "", err
	}
	if ev.state != nil {
		s.q.CloseWithError(ev.state)
		return "", ev.state
	}
	return ev.text, nil
}

func (s *builtStream) Close() error {
	return s.q.Close()
}
