package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
)

// UserModel is the row of a main account
type UserModel struct {
	BaseModel
	Username            string     `gorm:"type:varchar(50);not null;uniqueIndex:uk_users_username"`
	PasswordHash        string     `gorm:"type:varchar(100);not null"`
	Email               string     `gorm:"type:varchar(100)"`
	Phone               string     `gorm:"type:varchar(30)"`
	Nickname            string     `gorm:"type:varchar(50)"`
	Status              string     `gorm:"type:varchar(20);not null;default:active"`
	MembershipLevelID   *uuid.UUID `gorm:"type:char(36);index:idx_users_membership_level"`
	MembershipExpiresAt *time.Time `gorm:"index:idx_users_membership_expires"`
	LastLoginAt         *time.Time
	LastLoginIP         string `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *account.User {
	return &account.User{
		BaseEntity:          m.BaseModel.ToDomain(),
		Credential:          account.Credential{PasswordHash: m.PasswordHash},
		Username:            m.Username,
		Email:               m.Email,
		Phone:               m.Phone,
		Nickname:            m.Nickname,
		Status:              account.Status(m.Status),
		MembershipLevelID:   m.MembershipLevelID,
		MembershipExpiresAt: utcPtr(m.MembershipExpiresAt),
		LastLoginAt:         utcPtr(m.LastLoginAt),
		LastLoginIP:         m.LastLoginIP,
	}
}

// UserModelFromDomain converts a domain User to its model
func UserModelFromDomain(u *account.User) *UserModel {
	m := &UserModel{
		Username:            u.Username,
		PasswordHash:        u.PasswordHash,
		Email:               u.Email,
		Phone:               u.Phone,
		Nickname:            u.Nickname,
		Status:              string(u.Status),
		MembershipLevelID:   u.MembershipLevelID,
		MembershipExpiresAt: u.MembershipExpiresAt,
		LastLoginAt:         u.LastLoginAt,
		LastLoginIP:         u.LastLoginIP,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}

// SubAccountModel is the row of a sub-account. Store assignments live in
// sub_account_stores.
type SubAccountModel struct {
	BaseModel
	ParentID     uuid.UUID `gorm:"type:char(36);not null;index:idx_sub_accounts_parent"`
	Username     string    `gorm:"type:varchar(50);not null;uniqueIndex:uk_sub_accounts_username"`
	PasswordHash string    `gorm:"type:varchar(100);not null"`
	Nickname     string    `gorm:"type:varchar(50)"`
	Status       string    `gorm:"type:varchar(20);not null;default:active"`
}

// TableName returns the table name for GORM
func (SubAccountModel) TableName() string {
	return "sub_accounts"
}

// ToDomain converts the model to a domain SubAccount with the given stores
func (m *SubAccountModel) ToDomain(storeIDs []uuid.UUID) *account.SubAccount {
	if storeIDs == nil {
		storeIDs = []uuid.UUID{}
	}
	return &account.SubAccount{
		BaseEntity: m.BaseModel.ToDomain(),
		Credential: account.Credential{PasswordHash: m.PasswordHash},
		ParentID:   m.ParentID,
		Username:   m.Username,
		Nickname:   m.Nickname,
		Status:     account.Status(m.Status),
		StoreIDs:   storeIDs,
	}
}

// SubAccountModelFromDomain converts a domain SubAccount to its model
func SubAccountModelFromDomain(s *account.SubAccount) *SubAccountModel {
	m := &SubAccountModel{
		ParentID:     s.ParentID,
		Username:     s.Username,
		PasswordHash: s.PasswordHash,
		Nickname:     s.Nickname,
		Status:       string(s.Status),
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// SubAccountStoreModel assigns one store to one sub-account
type SubAccountStoreModel struct {
	SubAccountID uuid.UUID `gorm:"type:char(36);primaryKey"`
	StoreID      uuid.UUID `gorm:"type:char(36);primaryKey;index:idx_sub_account_stores_store"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubAccountStoreModel) TableName() string {
	return "sub_account_stores"
}

// SubAccountStoreModels expands the assignments of s into join rows
func SubAccountStoreModels(s *account.SubAccount, now time.Time) []SubAccountStoreModel {
	rows := make([]SubAccountStoreModel, 0, len(s.StoreIDs))
	for _, id := range s.StoreIDs {
		rows = append(rows, SubAccountStoreModel{SubAccountID: s.ID, StoreID: id, CreatedAt: now})
	}
	return rows
}

// AdminModel is the row of a console admin
type AdminModel struct {
	BaseModel
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex:uk_admins_username"`
	PasswordHash string `gorm:"type:varchar(100);not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	Status       string `gorm:"type:varchar(20);not null;default:active"`
}

// TableName returns the table name for GORM
func (AdminModel) TableName() string {
	return "admins"
}

// ToDomain converts the model to a domain Admin
func (m *AdminModel) ToDomain() *account.Admin {
	return &account.Admin{
		BaseEntity: m.BaseModel.ToDomain(),
		Credential: account.Credential{PasswordHash: m.PasswordHash},
		Username:   m.Username,
		Role:       account.AdminRole(m.Role),
		Status:     account.Status(m.Status),
	}
}

// AdminModelFromDomain converts a domain Admin to its model
func AdminModelFromDomain(a *account.Admin) *AdminModel {
	m := &AdminModel{
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		Status:       string(a.Status),
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
