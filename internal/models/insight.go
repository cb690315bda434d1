package models

import "time"

// InsightType enumerates the kinds of derived insights the generation
// pipeline can produce. The insight body itself is opaque payload data.
const (
	InsightTypeSpendingTrend  = "spending_trend"
	InsightTypeAnomaly        = "anomaly"
	InsightTypeCashFlow       = "cash_flow"
	InsightTypeRecommendation = "recommendation"
	InsightTypeBudgetAlert    = "budget_alert"
	InsightTypeGoalProgress   = "goal_progress"
	InsightTypeTaxOpportunity = "tax_opportunity"
)

// Insight is a derived observation about a user's finances. The owning user
// id never changes after creation; every read and write is scoped to it.
type Insight struct {
	ID              string    `json:"id" db:"id"`
	UserID          int       `json:"userId" db:"user_id"`
	Type            string    `json:"type" db:"type"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Confidence      float64   `json:"confidence" db:"confidence"` // 0-100
	Impact          string    `json:"impact" db:"impact"`         // high, medium, low
	CategoryID      *int      `json:"categoryId,omitempty" db:"category_id"`
	TimePeriod      Payload   `json:"timePeriod,omitempty" db:"time_period"`
	Data            Payload   `json:"data,omitempty" db:"data"`
	Recommendations Payload   `json:"recommendations,omitempty" db:"recommendations"`
	IsRead          bool      `json:"isRead" db:"is_read"`
	IsArchived      bool      `json:"isArchived" db:"is_archived"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
