// Package pcm provides linear PCM format descriptions and sample math for the
// duplex audio pipeline: 16 kHz mono capture frames on the way up, 24 kHz mono
// playback buffers on the way down.
package pcm

import "time"

const (
	// L16Mono16K is audio/L16; rate=16000; channels=1 — the capture format.
	L16Mono16K Format = iota
	// L16Mono24K is audio/L16; rate=24000; channels=1 — the playback format.
	L16Mono24K
	// L16Mono48K is audio/L16; rate=48000; channels=1.
	L16Mono48K
)

// Format is a fixed 16-bit signed mono PCM configuration.
type Format int

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid format")
}

// Depth returns the bit depth. All formats are 16-bit.
func (f Format) Depth() int { return 16 }

// Channels returns the channel count. All formats are mono.
func (f Format) Channels() int { return 1 }

// BytesRate returns the byte rate (bytes per second of audio).
func (f Format) BytesRate() int {
	return f.SampleRate() * f.Channels() * f.Depth() / 8
}

// Samples returns the number of samples held in n bytes.
func (f Format) Samples(n int) int {
	return n * 8 / f.Channels() / f.Depth()
}

// BytesInDuration returns the number of bytes covering duration d.
func (f Format) BytesInDuration(d time.Duration) int {
	samples := int(time.Duration(f.SampleRate()) * d / time.Second)
	return samples * f.Channels() * f.Depth() / 8
}

// Duration returns the play time of n bytes of audio.
func (f Format) Duration(n int) time.Duration {
	return time.Duration(f.Samples(n)) * time.Second / time.Duration(f.SampleRate())
}

// MIMEType returns the wire MIME type, e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	switch f {
	case L16Mono16K:
		return "audio/pcm;rate=16000"
	case L16Mono24K:
		return "audio/pcm;rate=24000"
	case L16Mono48K:
		return "audio/pcm;rate=48000"
	}
	panic("pcm: invalid format")
}

// String returns a human-readable format description.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid format")
}
