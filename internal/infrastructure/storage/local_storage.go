package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalObjectStorage keeps objects on the local filesystem. The router serves
// the directory under baseURL.
type LocalObjectStorage struct {
	dir     string
	baseURL string
}

// NewLocalObjectStorage creates dir if needed
func NewLocalObjectStorage(dir, baseURL string) (*LocalObjectStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalObjectStorage{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the storage root
func (s *LocalObjectStorage) Dir() string {
	return s.dir
}

// Put writes the object through a temp file and renames it into place
func (s *LocalObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.LimitReader(r, size+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if written != size {
		return fmt.Errorf("object size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// URL returns baseURL/key
func (s *LocalObjectStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}

// Delete removes the object file
func (s *LocalObjectStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

var _ ObjectStorage = (*LocalObjectStorage)(nil)
