package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a financial account tracked by a user (bank account, card,
// cash on hand). Balance is the current balance, not a windowed aggregate.
type Account struct {
	ID          int             `json:"id" db:"id"`
	UserID      int             `json:"userId" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Type        string          `json:"type" db:"type"` // checking, savings, credit, investment, cash
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	Currency    string          `json:"currency" db:"currency"`
	Institution string          `json:"institution,omitempty" db:"institution"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}
