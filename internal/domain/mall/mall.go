// Package mall models the marketplace catalog and the binding of external
// storefronts to main accounts.
package mall

import (
	"regexp"
	"strings"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{1,49}$`)

// Mall is a marketplace site a store can be bound to, e.g. shopee-my
type Mall struct {
	shared.BaseEntity
	Code     string
	Name     string
	Platform string
	Region   string
	Currency string
	Enabled  bool
	Sort     int
}

// NewMall creates an enabled mall catalog entry
func NewMall(code, name, platform, region, currency string) (*Mall, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_MALL_CODE", "Mall code must be lowercase letters, digits or '-'")
	}
	m := &Mall{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Enabled:    true,
	}
	if err := m.Update(name, platform, region, currency, 0); err != nil {
		return nil, err
	}
	return m, nil
}

// Update changes the descriptive fields
func (m *Mall) Update(name, platform, region, currency string, sort int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_MALL_NAME", "Mall name is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	m.Name = name
	m.Platform = strings.ToLower(strings.TrimSpace(platform))
	m.Region = strings.ToUpper(strings.TrimSpace(region))
	m.Currency = currency
	m.Sort = sort
	m.Touch()
	return nil
}

// SetEnabled toggles whether new stores may bind to the mall
func (m *Mall) SetEnabled(enabled bool) {
	m.Enabled = enabled
	m.Touch()
}
