package mall

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
)

// MallInfo is a mall catalog entry
type MallInfo struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Platform string    `json:"platform"`
	Region   string    `json:"region"`
	Currency string    `json:"currency"`
	Enabled  bool      `json:"enabled"`
	Sort     int       `json:"sort"`
}

// ToMallInfo converts a domain mall
func ToMallInfo(m *mall.Mall) MallInfo {
	return MallInfo{
		ID:       m.ID,
		Code:     m.Code,
		Name:     m.Name,
		Platform: m.Platform,
		Region:   m.Region,
		Currency: m.Currency,
		Enabled:  m.Enabled,
		Sort:     m.Sort,
	}
}

// StoreInfo is a bound store
type StoreInfo struct {
	ID         uuid.UUID        `json:"id"`
	MallID     uuid.UUID        `json:"mall_id"`
	Name       string           `json:"name"`
	ExternalID string           `json:"external_id"`
	Status     mall.StoreStatus `json:"status"`
	BoundAt    time.Time        `json:"bound_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ToStoreInfo converts a domain store
func ToStoreInfo(s *mall.Store) StoreInfo {
	return StoreInfo{
		ID:         s.ID,
		MallID:     s.MallID,
		Name:       s.Name,
		ExternalID: s.ExternalID,
		Status:     s.Status,
		BoundAt:    s.BoundAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// BindStoreInput contains the input for binding a store
type BindStoreInput struct {
	MallID     uuid.UUID
	Name       string
	ExternalID string
}
