package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single categorized money movement on one of the user's
// accounts. Amount is always positive; Type says which direction it goes.
type Transaction struct {
	ID          int             `json:"id" db:"id"`
	UserID      int             `json:"userId" db:"user_id"`
	AccountID   int             `json:"accountId" db:"account_id"`
	CategoryID  *int            `json:"categoryId,omitempty" db:"category_id"`
	Type        string          `json:"type" db:"type"` // income or expense
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Date        time.Time       `json:"date" db:"date"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	AccountName string          `json:"accountName,omitempty" db:"account_name"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)
