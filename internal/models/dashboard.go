package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardWindow is the inclusive calendar-date range the windowed
// aggregates cover. Net worth and recent activity are not window-scoped.
type DashboardWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// CategoryTotal groups spending by (category, type), not category alone:
// the same label can appear under both income and expense.
type CategoryTotal struct {
	CategoryID int             `json:"categoryId"`
	Category   string          `json:"category"`
	Type       string          `json:"type"`
	Total      decimal.Decimal `json:"total"`
}

type AssetSummary struct {
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Recent     []Asset         `json:"recent"`
}

type MonthlyTrendPoint struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// DashboardSnapshot is the combined result of the dashboard fan-out. It is
// derived per request and never persisted; all windowed fields are computed
// over the same user and window.
type DashboardSnapshot struct {
	Window             DashboardWindow     `json:"window"`
	TotalIncome        decimal.Decimal     `json:"totalIncome"`
	TotalExpenses      decimal.Decimal     `json:"totalExpenses"`
	CashFlow           decimal.Decimal     `json:"cashFlow"`
	NetWorth           decimal.Decimal     `json:"netWorth"`
	CategoryBreakdown  []CategoryTotal     `json:"categoryBreakdown"`
	RecentTransactions []Transaction       `json:"recentTransactions"`
	Assets             AssetSummary        `json:"assetSummary"`
	UnreadInsights     []Insight           `json:"unreadInsights"`
	MonthlyTrend       []MonthlyTrendPoint `json:"monthlyTrend"`
	AccountsSummary    []Account           `json:"accountsSummary"`
}
