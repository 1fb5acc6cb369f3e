package admin

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const packageContentType = "application/zip"

var ErrPluginCode = shared.NewDomainError("ALREADY_EXISTS", "Plugin code already exists")

// PluginService manages plugin releases and their packages
type PluginService struct {
	plugins plugin.Repository
	storage storage.ObjectStorage
	maxSize int64
	logger  *zap.Logger
}

// NewPluginService creates a new PluginService. Packages larger than
// maxSize bytes are rejected.
func NewPluginService(plugins plugin.Repository, objects storage.ObjectStorage, maxSize int64, logger *zap.Logger) *PluginService {
	return &PluginService{plugins: plugins, storage: objects, maxSize: maxSize, logger: logger}
}

// ListPublished returns the plugins customers may download
func (s *PluginService) ListPublished(ctx context.Context) ([]PluginInfo, error) {
	return s.list(ctx, plugin.StatusPublished)
}

// List returns plugins in status, or all when status is empty
func (s *PluginService) List(ctx context.Context, status plugin.Status) ([]PluginInfo, error) {
	return s.list(ctx, status)
}

func (s *PluginService) list(ctx context.Context, status plugin.Status) ([]PluginInfo, error) {
	plugins, err := s.plugins.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]PluginInfo, len(plugins))
	for i, p := range plugins {
		out[i] = ToPluginInfo(p)
	}
	return out, nil
}

// Create adds a draft plugin
func (s *PluginService) Create(ctx context.Context, code string, info plugin.Info) (*PluginInfo, error) {
	p, err := plugin.New(code, info)
	if err != nil {
		return nil, err
	}
	exists, err := s.plugins.ExistsByCode(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPluginCode
	}
	if err := s.plugins.Create(ctx, p); err != nil {
		return nil, err
	}
	out := ToPluginInfo(p)
	return &out, nil
}

// Update replaces the descriptive fields of a plugin
func (s *PluginService) Update(ctx context.Context, id uuid.UUID, info plugin.Info) (*PluginInfo, error) {
	p, err := s.plugins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.UpdateInfo(info); err != nil {
		return nil, err
	}
	if err := s.plugins.Update(ctx, p); err != nil {
		return nil, err
	}
	out := ToPluginInfo(p)
	return &out, nil
}

// Delete removes a plugin and its stored package
func (s *PluginService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.plugins.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.plugins.Delete(ctx, id); err != nil {
		return err
	}
	if p.PackageKey != "" {
		if err := s.storage.Delete(ctx, p.PackageKey); err != nil {
			s.logger.Warn("Failed to delete plugin package", zap.String("key", p.PackageKey), zap.Error(err))
		}
	}
	return nil
}

// UploadPackage stores the package of the plugin's current version under
// plugins/<code>/<version>.zip and attaches its download URL.
func (s *PluginService) UploadPackage(ctx context.Context, id uuid.UUID, r io.Reader, size int64) (*PluginInfo, error) {
	if size <= 0 {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package is empty")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, shared.NewDomainError("INVALID_PACKAGE", fmt.Sprintf("Package exceeds %d bytes", s.maxSize))
	}
	p, err := s.plugins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("plugins", p.Code, p.Version+".zip")
	if err := s.storage.Put(ctx, key, r, size, packageContentType); err != nil {
		return nil, fmt.Errorf("failed to store plugin package: %w", err)
	}
	previous := p.PackageKey
	if err := p.AttachPackage(key, s.storage.URL(key), size); err != nil {
		return nil, err
	}
	if err := s.plugins.Update(ctx, p); err != nil {
		return nil, err
	}
	if previous != "" && previous != key {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced plugin package", zap.String("key", previous), zap.Error(err))
		}
	}

	s.logger.Info("Plugin package uploaded",
		zap.String("plugin", p.Code),
		zap.String("version", p.Version),
		zap.Int64("size", size))
	out := ToPluginInfo(p)
	return &out, nil
}

// Publish makes a plugin visible to customers
func (s *PluginService) Publish(ctx context.Context, id uuid.UUID) (*PluginInfo, error) {
	return s.transition(ctx, id, (*plugin.Plugin).Publish)
}

// TakeOffline hides a published plugin
func (s *PluginService) TakeOffline(ctx context.Context, id uuid.UUID) (*PluginInfo, error) {
	return s.transition(ctx, id, (*plugin.Plugin).TakeOffline)
}

func (s *PluginService) transition(ctx context.Context, id uuid.UUID, apply func(*plugin.Plugin) error) (*PluginInfo, error) {
	p, err := s.plugins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p); err != nil {
		return nil, err
	}
	if err := s.plugins.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Plugin status changed", zap.String("plugin", p.Code), zap.String("status", string(p.Status)))
	out := ToPluginInfo(p)
	return &out, nil
}
