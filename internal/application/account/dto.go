package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
)

// RegisterInput contains the input for main account registration
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Phone    string
}

// LoginInput contains the input for a login. An empty AccountType means main.
type LoginInput struct {
	AccountType account.Type
	Username    string
	Password    string
	IP          string
}

// LoginResult contains the issued tokens and the logged-in account
type LoginResult struct {
	Tokens  *auth.TokenPair `json:"tokens"`
	Account AccountInfo     `json:"account"`
}

// AccountInfo describes the authenticated account
type AccountInfo struct {
	AccountType account.Type   `json:"account_type"`
	ID          uuid.UUID      `json:"id"`
	OwnerID     *uuid.UUID     `json:"owner_id,omitempty"`
	Username    string         `json:"username"`
	Nickname    string         `json:"nickname,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Status      account.Status `json:"status"`
	StoreIDs    []uuid.UUID    `json:"store_ids,omitempty"`
	AdminRole   string         `json:"admin_role,omitempty"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
}

func userInfo(u *account.User) AccountInfo {
	owner := u.ID
	return AccountInfo{
		AccountType: account.TypeMain,
		ID:          u.ID,
		OwnerID:     &owner,
		Username:    u.Username,
		Nickname:    u.Nickname,
		Email:       u.Email,
		Phone:       u.Phone,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
	}
}

func subInfo(s *account.SubAccount) AccountInfo {
	owner := s.ParentID
	return AccountInfo{
		AccountType: account.TypeSub,
		ID:          s.ID,
		OwnerID:     &owner,
		Username:    s.Username,
		Nickname:    s.Nickname,
		Status:      s.Status,
		StoreIDs:    s.StoreIDs,
	}
}

func adminInfo(a *account.Admin) AccountInfo {
	return AccountInfo{
		AccountType: account.TypeAdmin,
		ID:          a.ID,
		Username:    a.Username,
		Status:      a.Status,
		AdminRole:   string(a.Role),
	}
}

// SubAccountInfo is a sub-account as shown to its parent
type SubAccountInfo struct {
	ID        uuid.UUID      `json:"id"`
	Username  string         `json:"username"`
	Nickname  string         `json:"nickname"`
	Status    account.Status `json:"status"`
	StoreIDs  []uuid.UUID    `json:"store_ids"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ToSubAccountInfo converts a domain sub-account
func ToSubAccountInfo(s *account.SubAccount) SubAccountInfo {
	ids := s.StoreIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return SubAccountInfo{
		ID:        s.ID,
		Username:  s.Username,
		Nickname:  s.Nickname,
		Status:    s.Status,
		StoreIDs:  ids,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// CreateSubAccountInput contains the input for creating a sub-account
type CreateSubAccountInput struct {
	Username string
	Password string
	Nickname string
	StoreIDs []uuid.UUID
}

// UpdateSubAccountInput carries the fields to change; nil fields are kept
type UpdateSubAccountInput struct {
	Nickname *string
	Password *string
	Status   *account.Status
	StoreIDs *[]uuid.UUID
}

// LevelInfo describes a membership level
type LevelInfo struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	StoreQuota      int             `json:"store_quota"`
	SubAccountQuota int             `json:"sub_account_quota"`
	Price           decimal.Decimal `json:"price"`
	DurationDays    int             `json:"duration_days"`
	IsDefault       bool            `json:"is_default"`
	Enabled         bool            `json:"enabled"`
	Sort            int             `json:"sort"`
}

// ToLevelInfo converts a domain level
func ToLevelInfo(l *membership.Level) LevelInfo {
	return LevelInfo{
		ID:              l.ID,
		Code:            l.Code,
		Name:            l.Name,
		StoreQuota:      l.StoreQuota,
		SubAccountQuota: l.SubAccountQuota,
		Price:           l.Price,
		DurationDays:    l.DurationDays,
		IsDefault:       l.IsDefault,
		Enabled:         l.Enabled,
		Sort:            l.Sort,
	}
}

// Usage counts what an owner currently holds against its quota
type Usage struct {
	Stores      int64 `json:"stores"`
	SubAccounts int64 `json:"sub_accounts"`
}

// MembershipInfo describes the membership of the owner of a principal
type MembershipInfo struct {
	Level     *LevelInfo       `json:"level"`
	ExpiresAt *time.Time       `json:"expires_at"`
	Expired   bool             `json:"expired"`
	Quota     membership.Quota `json:"quota"`
	Usage     Usage            `json:"usage"`
}
