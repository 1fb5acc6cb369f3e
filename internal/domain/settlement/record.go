package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status tells whether the revenue of a record has been paid out
type Status string

const (
	StatusPending Status = "pending"
	StatusArrived Status = "arrived"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusArrived
}

// Record is one settled order line of a store
type Record struct {
	shared.BaseEntity
	UserID      uuid.UUID
	StoreID     uuid.UUID
	OrderNo     string
	SKU         string
	ProductName string
	Volume      int64
	AvgPrice    decimal.Decimal
	Currency    string
	Status      Status
	OrderedAt   time.Time
	SettledAt   *time.Time
}

// RecordInput carries one imported row
type RecordInput struct {
	StoreID     uuid.UUID
	OrderNo     string
	SKU         string
	ProductName string
	Volume      int64
	AvgPrice    decimal.Decimal
	Currency    string
	Status      Status
	OrderedAt   time.Time
	SettledAt   *time.Time
}

// NewRecord validates in and builds a record owned by userID
func NewRecord(userID uuid.UUID, in RecordInput) (*Record, error) {
	orderNo := strings.TrimSpace(in.OrderNo)
	sku := strings.TrimSpace(in.SKU)
	switch {
	case in.StoreID == uuid.Nil:
		return nil, shared.NewDomainError("INVALID_STORE", "Store is required")
	case orderNo == "":
		return nil, shared.NewDomainError("INVALID_ORDER_NO", "Order number is required")
	case sku == "":
		return nil, shared.NewDomainError("INVALID_SKU", "SKU is required")
	case in.Volume < 0:
		return nil, shared.NewDomainError("INVALID_VOLUME", "Volume cannot be negative")
	case in.AvgPrice.IsNegative():
		return nil, shared.NewDomainError("INVALID_PRICE", "Average price cannot be negative")
	case in.OrderedAt.IsZero():
		return nil, shared.NewDomainError("INVALID_ORDERED_AT", "Order time is required")
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Status must be pending or arrived")
	}

	r := &Record{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		StoreID:     in.StoreID,
		OrderNo:     orderNo,
		SKU:         sku,
		ProductName: strings.TrimSpace(in.ProductName),
		Volume:      in.Volume,
		AvgPrice:    in.AvgPrice,
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Status:      StatusPending,
		OrderedAt:   in.OrderedAt.UTC(),
	}
	if status == StatusArrived {
		at := r.CreatedAt
		if in.SettledAt != nil {
			at = *in.SettledAt
		}
		if err := r.MarkArrived(at); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MarkArrived records that the revenue was paid out. Arrived records never
// return to pending.
func (r *Record) MarkArrived(at time.Time) error {
	if r.Status == StatusArrived {
		return shared.NewDomainError("INVALID_STATE", "Record already arrived")
	}
	at = at.UTC()
	r.Status = StatusArrived
	r.SettledAt = &at
	r.Touch()
	return nil
}

// Revenue returns the record's revenue
func (r *Record) Revenue() decimal.Decimal {
	return Revenue(r.AvgPrice, r.Volume)
}

// Merge applies a re-imported copy of the same order line. Figures are
// replaced; the status only moves forward.
func (r *Record) Merge(in *Record) {
	r.ProductName = in.ProductName
	r.Volume = in.Volume
	r.AvgPrice = in.AvgPrice
	r.Currency = in.Currency
	r.OrderedAt = in.OrderedAt
	if in.Status == StatusArrived && r.Status != StatusArrived {
		at := time.Now().UTC()
		if in.SettledAt != nil {
			at = *in.SettledAt
		}
		_ = r.MarkArrived(at)
	}
	r.Touch()
}
