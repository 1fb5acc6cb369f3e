package models

import (
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
)

// PluginModel is a row of the plugin catalog
type PluginModel struct {
	BaseModel
	Code        string `gorm:"type:varchar(50);not null;uniqueIndex:uk_plugins_code"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
	Version     string `gorm:"type:varchar(30);not null"`
	Changelog   string `gorm:"type:text"`
	DownloadURL string `gorm:"type:varchar(500)"`
	PackageKey  string `gorm:"type:varchar(255)"`
	PackageSize int64  `gorm:"not null;default:0"`
	Status      string `gorm:"type:varchar(20);not null;index:idx_plugins_status"`
	Sort        int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PluginModel) TableName() string {
	return "plugins"
}

// ToDomain converts the model to a domain Plugin
func (m *PluginModel) ToDomain() *plugin.Plugin {
	return &plugin.Plugin{
		BaseEntity:  m.BaseModel.ToDomain(),
		Code:        m.Code,
		Name:        m.Name,
		Description: m.Description,
		Version:     m.Version,
		Changelog:   m.Changelog,
		DownloadURL: m.DownloadURL,
		PackageKey:  m.PackageKey,
		PackageSize: m.PackageSize,
		Status:      plugin.Status(m.Status),
		Sort:        m.Sort,
	}
}

// PluginModelFromDomain converts a domain Plugin to its model
func PluginModelFromDomain(p *plugin.Plugin) *PluginModel {
	m := &PluginModel{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		Changelog:   p.Changelog,
		DownloadURL: p.DownloadURL,
		PackageKey:  p.PackageKey,
		PackageSize: p.PackageSize,
		Status:      string(p.Status),
		Sort:        p.Sort,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
