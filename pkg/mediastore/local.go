package mediastore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local implements Store on the local filesystem. Save returns file://
// locators pointing at absolute paths under the configured root.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir. The directory is created
// (with parents) if it does not already exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) resolve(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}

func (l *Local) Save(_ context.Context, name, mimeType string, data []byte) (string, error) {
	full := l.resolve(name + extFor(mimeType))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(full), nil
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.resolve(name))
}

func (l *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(l.resolve(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.resolve(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

var _ Store = (*Local)(nil)
