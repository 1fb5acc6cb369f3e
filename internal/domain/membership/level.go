// Package membership models paid membership levels and the quotas they grant.
package membership

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Quota bounds what an account may create
type Quota struct {
	Stores      int `json:"stores"`
	SubAccounts int `json:"sub_accounts"`
}

// Level is a membership tier
type Level struct {
	shared.BaseEntity
	Code            string
	Name            string
	StoreQuota      int
	SubAccountQuota int
	Price           decimal.Decimal
	DurationDays    int
	IsDefault       bool
	Enabled         bool
	Sort            int
}

// LevelInput carries the editable fields of a level
type LevelInput struct {
	Code            string
	Name            string
	StoreQuota      int
	SubAccountQuota int
	Price           decimal.Decimal
	DurationDays    int
	IsDefault       bool
	Enabled         bool
	Sort            int
}

// NewLevel creates a level from in
func NewLevel(in LevelInput) (*Level, error) {
	code := strings.ToLower(strings.TrimSpace(in.Code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_LEVEL_CODE", "Level code is required")
	}
	l := &Level{BaseEntity: shared.NewBaseEntity(), Code: code}
	if err := l.Update(in); err != nil {
		return nil, err
	}
	return l, nil
}

// Update applies in; the code is immutable once created
func (l *Level) Update(in LevelInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_LEVEL_NAME", "Level name is required")
	}
	if in.StoreQuota < 0 || in.SubAccountQuota < 0 {
		return shared.NewDomainError("INVALID_QUOTA", "Quotas cannot be negative")
	}
	if in.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if in.DurationDays < 0 {
		return shared.NewDomainError("INVALID_DURATION", "Duration cannot be negative")
	}
	if in.IsDefault && !in.Enabled {
		return shared.NewDomainError("INVALID_DEFAULT_LEVEL", "The default level must be enabled")
	}
	l.Name = name
	l.StoreQuota = in.StoreQuota
	l.SubAccountQuota = in.SubAccountQuota
	l.Price = in.Price
	l.DurationDays = in.DurationDays
	l.IsDefault = in.IsDefault
	l.Enabled = in.Enabled
	l.Sort = in.Sort
	l.Touch()
	return nil
}

// Quota returns the limits granted by the level
func (l *Level) Quota() Quota {
	return Quota{Stores: l.StoreQuota, SubAccounts: l.SubAccountQuota}
}

// ResolveQuota returns the quota of the user's active level, falling back to
// the default level when the grant is missing, expired or unknown.
func ResolveQuota(u *account.User, levels []*Level, now time.Time) (Quota, *Level) {
	var fallback *Level
	active := u.ActiveMembershipLevel(now)
	for _, l := range levels {
		if active != nil && l.ID == *active {
			return l.Quota(), l
		}
		if l.IsDefault {
			fallback = l
		}
	}
	if fallback == nil {
		return Quota{}, nil
	}
	return fallback.Quota(), fallback
}

// LevelRepository persists levels
type LevelRepository interface {
	Create(ctx context.Context, l *Level) error
	Update(ctx context.Context, l *Level) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Level, error)
	FindDefault(ctx context.Context) (*Level, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, enabledOnly bool) ([]*Level, error)
	// InUse reports whether any user holds the level
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}
