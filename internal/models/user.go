package models

import "time"

// User represents an application user account.
type User struct {
	ID           int        `json:"id" example:"1"`
	Email        string     `json:"email" example:"user@example.com"`
	FirstName    string     `json:"firstName" example:"John"`
	LastName     string     `json:"lastName" example:"Doe"`
	BaseCurrency string     `json:"baseCurrency" example:"USD"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
