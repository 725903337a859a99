package pcm

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts 16-bit signed mono PCM between sample rates. It is
// stateful across calls so that frame boundaries do not introduce artifacts,
// and is not safe for concurrent use.
type Resampler struct {
	src, dst Format
	rs       resampling.Resampler
}

// NewResampler creates a Resampler from src to dst. If the rates match,
// Process is a pass-through.
func NewResampler(src, dst Format) (*Resampler, error) {
	r := &Resampler{src: src, dst: dst}
	if src.SampleRate() == dst.SampleRate() {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("pcm: create resampler: %w", err)
	}
	r.rs = rs
	return r, nil
}

// Process converts one frame of little-endian 16-bit mono PCM from the source
// rate to the destination rate. The returned slice is freshly allocated; it
// may be shorter or longer than the input and may be empty while the
// resampler fills its internal window.
func (r *Resampler) Process(frame []byte) ([]byte, error) {
	if r.rs == nil {
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	}

	n := len(frame) / 2
	in := make([]float64, n)
	for i := range n {
		s := int16(frame[i*2]) | int16(frame[i*2+1])<<8
		in[i] = float64(s) / 32768.0
	}

	out, err := r.rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("pcm: resample: %w", err)
	}

	b := make([]byte, len(out)*2)
	for i, v := range out {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b, nil
}

// Close releases resampler resources.
func (r *Resampler) Close() error {
	r.rs = nil
	return nil
}
