package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a non-account holding (property, vehicle, collectible) whose
// current value contributes to net worth.
type Asset struct {
	ID            int              `json:"id" db:"id"`
	UserID        int              `json:"userId" db:"user_id"`
	Name          string           `json:"name" db:"name"`
	Type          string           `json:"type" db:"type"` // property, vehicle, investment, collectible, other
	CurrentValue  decimal.Decimal  `json:"currentValue" db:"current_value"`
	PurchaseValue *decimal.Decimal `json:"purchaseValue,omitempty" db:"purchase_value"`
	PurchaseDate  *time.Time       `json:"purchaseDate,omitempty" db:"purchase_date"`
	Notes         string           `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}
