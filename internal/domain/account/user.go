package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// User is a main account: the tenant that owns stores, settlement data and
// sub-accounts.
type User struct {
	shared.BaseEntity
	Credential
	Username            string
	Email               string
	Phone               string
	Nickname            string
	Status              Status
	MembershipLevelID   *uuid.UUID
	MembershipExpiresAt *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         string
}

// NewUser creates an active main account
func NewUser(username, password, email, phone string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	u := &User{
		BaseEntity: shared.NewBaseEntity(),
		Username:   NormalizeUsername(username),
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		Status:     StatusActive,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile changes the editable profile fields
func (u *User) UpdateProfile(nickname, email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Nickname = strings.TrimSpace(nickname)
	u.Email = email
	u.Phone = strings.TrimSpace(phone)
	u.Touch()
	return nil
}

// ResetPassword replaces the password without checking the old one
func (u *User) ResetPassword(password string) error {
	if err := u.SetPassword(password); err != nil {
		return err
	}
	u.Touch()
	return nil
}

// Disable blocks further logins for the account and its sub-accounts
func (u *User) Disable() {
	u.Status = StatusDisabled
	u.Touch()
}

// Enable re-activates a disabled account
func (u *User) Enable() {
	u.Status = StatusActive
	u.Touch()
}

// IsActive returns true if the account may log in
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// RecordLogin stores the last successful login
func (u *User) RecordLogin(ip string, at time.Time) {
	u.LastLoginAt = &at
	u.LastLoginIP = ip
}

// GrantMembership sets the membership level and its expiry
func (u *User) GrantMembership(levelID uuid.UUID, expiresAt time.Time) error {
	if levelID == uuid.Nil {
		return shared.NewDomainError("INVALID_LEVEL", "Membership level is required")
	}
	exp := expiresAt.UTC()
	u.MembershipLevelID = &levelID
	u.MembershipExpiresAt = &exp
	u.Touch()
	return nil
}

// ExtendMembership grants levelID for days more. Extending an active grant
// adds to its current expiry; an expired or missing grant starts from now.
func (u *User) ExtendMembership(levelID uuid.UUID, days int, now time.Time) error {
	if days <= 0 {
		return shared.NewDomainError("INVALID_DURATION", "Extension must be at least one day")
	}
	start := now
	if u.MembershipExpiresAt != nil && u.MembershipExpiresAt.After(now) &&
		u.MembershipLevelID != nil && *u.MembershipLevelID == levelID {
		start = *u.MembershipExpiresAt
	}
	return u.GrantMembership(levelID, start.AddDate(0, 0, days))
}

// ActiveMembershipLevel returns the granted level if it has not expired
func (u *User) ActiveMembershipLevel(now time.Time) *uuid.UUID {
	if u.MembershipLevelID == nil {
		return nil
	}
	if u.MembershipExpiresAt != nil && !u.MembershipExpiresAt.After(now) {
		return nil
	}
	return u.MembershipLevelID
}
