// Package account models main accounts, their delegated sub-accounts, platform
// admins, and the resolved caller identity used for data scoping.
package account

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Status is the lifecycle state shared by every account kind
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusDisabled
}

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,50}$`)

var (
	ErrInvalidUsername = shared.NewDomainError("INVALID_USERNAME", "Username must be 3-50 characters of letters, digits, '_', '.' or '-'")
	ErrWeakPassword    = shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	ErrInvalidEmail    = shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	ErrBadCredentials  = shared.NewDomainError("UNAUTHORIZED", "Invalid username or password")
	ErrAccountDisabled = shared.NewDomainError("ACCOUNT_DISABLED", "Account is disabled")
	ErrUsernameTaken   = shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
)

// NormalizeUsername trims and lower-cases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Credential holds a bcrypt password hash
type Credential struct {
	PasswordHash string
}

// SetPassword validates and hashes password
func (c *Credential) SetPassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	c.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (c *Credential) CheckPassword(password string) bool {
	if c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}
