package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below Dir. Used in development and tests.
type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Base(name)
	if clean != name || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	f, err := os.OpenFile(filepath.Join(s.Dir, clean), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	written, err := io.Copy(f, io.LimitReader(r, size+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written != size {
		err = fmt.Errorf("short write for %s: %d of %d bytes", clean, written, size)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.Dir, clean))
		return "", err
	}
	return clean, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	clean := filepath.Base(name)
	if clean != name || strings.HasPrefix(clean, ".") {
		return fmt.Errorf("invalid object name %q", name)
	}
	err := os.Remove(filepath.Join(s.Dir, clean))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(_ context.Context, name string) (string, error) {
	return "/uploads/" + name, nil
}
