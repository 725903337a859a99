package live

import (
	"context"
	"io"
	"time"

	"github.com/medleyhq/medley/pkg/pcm"
)

// ReaderSource reads fixed-size PCM frames from an io.Reader, e.g. raw
// microphone samples piped in from an external recorder. The final short
// frame before EOF is delivered before io.EOF is reported.
type ReaderSource struct {
	r         io.Reader
	frameSize int
}

// NewReaderSource creates a Source over r producing frames of frameDuration
// in the given format. A 20ms frame at 16 kHz is 640 bytes.
func NewReaderSource(r io.Reader, format pcm.Format, frameDuration time.Duration) *ReaderSource {
	n := format.BytesInDuration(frameDuration)
	if n < 2 {
		n = 2
	}
	// Frames hold whole 16-bit samples.
	n -= n % 2
	return &ReaderSource{r: r, frameSize: n}
}

func (s *ReaderSource) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := make([]byte, s.frameSize)
	n, err := io.ReadFull(s.r, frame)
	if n > 0 && (err == io.ErrUnexpectedEOF || err == io.EOF) {
		return frame[:n], nil
	}
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	return frame, nil
}
