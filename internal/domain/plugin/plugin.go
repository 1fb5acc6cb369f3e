// Package plugin models the browser plugin releases offered to customers.
package plugin

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// Status is the release state of a plugin
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusOffline   Status = "offline"
)

var (
	codePattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{1,49}$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+([\-+][0-9A-Za-z.\-]+)?$`)
)

// Plugin is a distributable plugin and its current package
type Plugin struct {
	shared.BaseEntity
	Code        string
	Name        string
	Description string
	Version     string
	Changelog   string
	DownloadURL string
	PackageKey  string
	PackageSize int64
	Status      Status
	Sort        int
}

// Info carries the editable descriptive fields
type Info struct {
	Name        string
	Description string
	Version     string
	Changelog   string
	Sort        int
}

// New creates a draft plugin
func New(code string, info Info) (*Plugin, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_PLUGIN_CODE", "Plugin code must be lowercase letters, digits, '_' or '-'")
	}
	p := &Plugin{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Status:     StatusDraft,
	}
	if err := p.UpdateInfo(info); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateInfo replaces the descriptive fields
func (p *Plugin) UpdateInfo(info Info) error {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_PLUGIN_NAME", "Plugin name is required")
	}
	version := strings.TrimSpace(info.Version)
	if !versionPattern.MatchString(version) {
		return shared.NewDomainError("INVALID_VERSION", "Version must look like 1.2.3")
	}
	p.Name = name
	p.Description = strings.TrimSpace(info.Description)
	p.Version = version
	p.Changelog = info.Changelog
	p.Sort = info.Sort
	p.Touch()
	return nil
}

// AttachPackage records the uploaded package of the current version
func (p *Plugin) AttachPackage(key, url string, size int64) error {
	if key == "" || url == "" || size <= 0 {
		return shared.NewDomainError("INVALID_PACKAGE", "Package key, url and size are required")
	}
	p.PackageKey = key
	p.DownloadURL = url
	p.PackageSize = size
	p.Touch()
	return nil
}

// Publish makes the plugin visible to customers. A package must be attached.
func (p *Plugin) Publish() error {
	if p.DownloadURL == "" {
		return shared.NewDomainError("INVALID_STATE", "Upload a package before publishing")
	}
	p.Status = StatusPublished
	p.Touch()
	return nil
}

// TakeOffline hides the plugin from customers
func (p *Plugin) TakeOffline() error {
	if p.Status != StatusPublished {
		return shared.NewDomainError("INVALID_STATE", "Only published plugins can be taken offline")
	}
	p.Status = StatusOffline
	p.Touch()
	return nil
}

// IsPublished returns true if customers can see the plugin
func (p *Plugin) IsPublished() bool {
	return p.Status == StatusPublished
}

// Repository persists plugins
type Repository interface {
	Create(ctx context.Context, p *Plugin) error
	Update(ctx context.Context, p *Plugin) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Plugin, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, status Status) ([]*Plugin, error)
}
