// Package store provides read access to a single user's financial data.
// A handle is constructed already bound to its owner, so callers above this
// layer cannot issue an unscoped query by accident.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlens/backend/internal/models"
)

// UserStore is a read handle bound to one user id.
type UserStore struct {
	db     *sql.DB
	userID int
}

// ForUser binds a read handle to userID.
func ForUser(db *sql.DB, userID int) *UserStore {
	return &UserStore{db: db, userID: userID}
}

// SumTransactions sums amounts of the given type inside the inclusive
// calendar-date window. An empty result set is decimal zero, not an error.
func (s *UserStore) SumTransactions(ctx context.Context, txType string, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND date >= $3 AND date <= $4`,
		s.userID, txType, start, end).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s transactions: %w", txType, err)
	}
	return total, nil
}

// NetWorth is account balances plus asset values. It is deliberately not
// window-scoped: net worth is a point-in-time figure, unlike cash flow.
func (s *UserStore) NetWorth(ctx context.Context) (decimal.Decimal, error) {
	var balances decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0)
		FROM accounts
		WHERE user_id = $1 AND is_active = true`, s.userID).Scan(&balances)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum account balances: %w", err)
	}

	var assetValues decimal.Decimal
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(current_value), 0)
		FROM assets
		WHERE user_id = $1`, s.userID).Scan(&assetValues)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum asset values: %w", err)
	}

	return balances.Add(assetValues), nil
}

// CategoryBreakdown groups windowed totals by (category, type). The pair
// matters: the same label can carry both income and expense rows.
func (s *UserStore) CategoryBreakdown(ctx context.Context, start, end time.Time) ([]models.CategoryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(category_id, 0), type, SUM(amount)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY category_id, type
		ORDER BY SUM(amount) DESC`, s.userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Type, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		ct.Category = models.CategoryName(ct.CategoryID)
		breakdown = append(breakdown, ct)
	}
	return breakdown, rows.Err()
}

// RecentTransactions returns the newest transactions regardless of window,
// with the account name joined in for display.
func (s *UserStore) RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.account_id, t.category_id, t.type, t.amount, t.description,
			t.date, COALESCE(t.notes, ''), COALESCE(a.name, ''), t.created_at
		FROM transactions t
		LEFT JOIN accounts a ON a.id = t.account_id
		WHERE t.user_id = $1
		ORDER BY t.date DESC, t.id DESC
		LIMIT $2`, s.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.CategoryID, &tx.Type, &tx.Amount,
			&tx.Description, &tx.Date, &tx.Notes, &tx.AccountName, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// AssetSummary returns the asset count, total value and the most recently
// added assets.
func (s *UserStore) AssetSummary(ctx context.Context, recentLimit int) (models.AssetSummary, error) {
	summary := models.AssetSummary{Recent: []models.Asset{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(current_value), 0)
		FROM assets
		WHERE user_id = $1`, s.userID).Scan(&summary.Count, &summary.TotalValue)
	if err != nil {
		return summary, fmt.Errorf("failed to summarize assets: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, current_value, purchase_value, purchase_date, COALESCE(notes, ''), created_at, updated_at
		FROM assets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, s.userID, recentLimit)
	if err != nil {
		return summary, fmt.Errorf("failed to query recent assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.CurrentValue, &a.PurchaseValue,
			&a.PurchaseDate, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return summary, fmt.Errorf("failed to scan asset: %w", err)
		}
		summary.Recent = append(summary.Recent, a)
	}
	return summary, rows.Err()
}

// UnreadInsights returns the newest unread insights.
func (s *UserStore) UnreadInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, description, confidence, impact, category_id,
			time_period, data, recommendations, is_read, is_archived, created_at, updated_at
		FROM insights
		WHERE user_id = $1 AND is_read = false AND is_archived = false
		ORDER BY created_at DESC
		LIMIT $2`, s.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread insights: %w", err)
	}
	defer rows.Close()

	insights := []models.Insight{}
	for rows.Next() {
		var in models.Insight
		if err := rows.Scan(&in.ID, &in.UserID, &in.Type, &in.Title, &in.Description, &in.Confidence,
			&in.Impact, &in.CategoryID, &in.TimePeriod, &in.Data, &in.Recommendations,
			&in.IsRead, &in.IsArchived, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// MonthlyTrend returns income/expense totals per calendar month for the
// `months` months ending at end's month. Months with no rows are zero-filled
// so the series always has the full length.
func (s *UserStore) MonthlyTrend(ctx context.Context, end time.Time, months int) ([]models.MonthlyTrendPoint, error) {
	first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('month', date), 'YYYY-MM') AS month,
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY 1
		ORDER BY 1`, s.userID, first, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly trend: %w", err)
	}
	defer rows.Close()

	byMonth := map[string]models.MonthlyTrendPoint{}
	for rows.Next() {
		var p models.MonthlyTrendPoint
		if err := rows.Scan(&p.Month, &p.Income, &p.Expenses); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		byMonth[p.Month] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trend := make([]models.MonthlyTrendPoint, 0, months)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		if p, ok := byMonth[month]; ok {
			trend = append(trend, p)
		} else {
			trend = append(trend, models.MonthlyTrendPoint{
				Month:    month,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			})
		}
	}
	return trend, nil
}

// Accounts lists the user's active accounts with current balances.
func (s *UserStore) Accounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, balance, currency, COALESCE(institution, ''), is_active, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC`, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.Currency,
			&a.Institution, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
