package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
)

// UserInfo is a main account as seen by the console
type UserInfo struct {
	ID                  uuid.UUID      `json:"id"`
	Username            string         `json:"username"`
	Nickname            string         `json:"nickname"`
	Email               string         `json:"email"`
	Phone               string         `json:"phone"`
	Status              account.Status `json:"status"`
	MembershipLevelID   *uuid.UUID     `json:"membership_level_id,omitempty"`
	MembershipExpiresAt *time.Time     `json:"membership_expires_at,omitempty"`
	LastLoginAt         *time.Time     `json:"last_login_at,omitempty"`
	LastLoginIP         string         `json:"last_login_ip,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// UserDetail adds usage counts to UserInfo
type UserDetail struct {
	UserInfo
	LevelCode       string `json:"level_code,omitempty"`
	StoreCount      int64  `json:"store_count"`
	SubAccountCount int64  `json:"sub_account_count"`
}

// ToUserInfo converts a domain user
func ToUserInfo(u *account.User) UserInfo {
	return UserInfo{
		ID:                  u.ID,
		Username:            u.Username,
		Nickname:            u.Nickname,
		Email:               u.Email,
		Phone:               u.Phone,
		Status:              u.Status,
		MembershipLevelID:   u.MembershipLevelID,
		MembershipExpiresAt: u.MembershipExpiresAt,
		LastLoginAt:         u.LastLoginAt,
		LastLoginIP:         u.LastLoginIP,
		CreatedAt:           u.CreatedAt,
	}
}

// SetMembershipInput grants a level until ExpiresAt or for ExtendDays more.
// Exactly one of the two must be set.
type SetMembershipInput struct {
	LevelID    uuid.UUID
	ExpiresAt  *time.Time
	ExtendDays int
}

// PluginInfo is a plugin release
type PluginInfo struct {
	ID          uuid.UUID     `json:"id"`
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Changelog   string        `json:"changelog"`
	DownloadURL string        `json:"download_url,omitempty"`
	PackageSize int64         `json:"package_size,omitempty"`
	Status      plugin.Status `json:"status"`
	Sort        int           `json:"sort"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ToPluginInfo converts a domain plugin
func ToPluginInfo(p *plugin.Plugin) PluginInfo {
	return PluginInfo{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		Changelog:   p.Changelog,
		DownloadURL: p.DownloadURL,
		PackageSize: p.PackageSize,
		Status:      p.Status,
		Sort:        p.Sort,
		UpdatedAt:   p.UpdatedAt,
	}
}

// MallInput carries the editable fields of a mall
type MallInput struct {
	Code     string
	Name     string
	Platform string
	Region   string
	Currency string
	Sort     int
	Enabled  *bool
}

// AdminInfo is a console operator
type AdminInfo struct {
	ID        uuid.UUID         `json:"id"`
	Username  string            `json:"username"`
	Role      account.AdminRole `json:"role"`
	Status    account.Status    `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToAdminInfo converts a domain admin
func ToAdminInfo(a *account.Admin) AdminInfo {
	return AdminInfo{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}
