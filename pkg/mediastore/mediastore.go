// Package mediastore persists generated media — image bytes, rendered video
// frames, captured audio — and hands back the locator recorded on the
// artifact. Backends: local disk (file:// locators) and S3-compatible object
// stores (s3:// locators).
package mediastore

import (
	"context"
	"io"
)

// Store saves media blobs and serves them back.
//
// Names are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists data under the given name plus a MIME-derived extension
	// and returns the locator URL to record on the artifact.
	Save(ctx context.Context, name, mimeType string, data []byte) (string, error)

	// Open reads a previously saved blob by its stored name (including
	// extension). The caller must close the returned ReadCloser.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Idempotent: no error for a missing name.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// extFor maps the media MIME types the generation backends produce to file
// extensions. Unknown types get ".bin".
func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/pcm;rate=16000", "audio/pcm;rate=24000":
		return ".pcm"
	}
	return ".bin"
}
