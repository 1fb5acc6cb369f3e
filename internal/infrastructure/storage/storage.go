// Package storage keeps plugin packages in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned for empty or escaping object keys
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStorage stores published files under slash-separated keys
type ObjectStorage interface {
	// Put stores size bytes read from r under key, replacing any existing object
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns the public download URL of key
	URL(key string) string
	// Delete removes key; deleting a missing object is not an error
	Delete(ctx context.Context, key string) error
}

// New builds the ObjectStorage selected by cfg.Driver
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	switch cfg.Driver {
	case "s3":
		s, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "local", "":
		return NewLocalObjectStorage(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// cleanKey normalizes key and rejects keys that leave the storage root
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
