package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
	"github.com/finlens/backend/internal/store"
)

// DashboardService assembles the dashboard snapshot. The independent reads
// fan out concurrently so the endpoint's latency tracks the slowest read
// instead of the sum of all of them.
type DashboardService struct {
	db *sql.DB
}

const (
	defaultWindowDays   = 30
	maxWindowDays       = 365
	recentTxLimit       = 10
	recentAssetLimit    = 5
	unreadInsightLimit  = 3
	trendMonths         = 6
)

func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

// BuildSnapshot runs every aggregate read for one user over one window and
// joins the results. All-or-nothing: the first failed read cancels the rest
// via the group context and no partial snapshot is ever returned.
func (s *DashboardService) BuildSnapshot(ctx context.Context, userID, windowDays int) (*models.DashboardSnapshot, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", windowDays)
	}

	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -windowDays)

	snapshot := &models.DashboardSnapshot{
		Window: models.DashboardWindow{Start: start, End: end, Days: windowDays},
	}

	scoped := store.ForUser(s.db, userID)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := scoped.SumTransactions(ctx, models.TransactionTypeIncome, start, end)
		snapshot.TotalIncome = total
		return err
	})
	g.Go(func() error {
		total, err := scoped.SumTransactions(ctx, models.TransactionTypeExpense, start, end)
		snapshot.TotalExpenses = total
		return err
	})
	g.Go(func() error {
		netWorth, err := scoped.NetWorth(ctx)
		snapshot.NetWorth = netWorth
		return err
	})
	g.Go(func() error {
		breakdown, err := scoped.CategoryBreakdown(ctx, start, end)
		snapshot.CategoryBreakdown = breakdown
		return err
	})
	g.Go(func() error {
		recent, err := scoped.RecentTransactions(ctx, recentTxLimit)
		snapshot.RecentTransactions = recent
		return err
	})
	g.Go(func() error {
		assets, err := scoped.AssetSummary(ctx, recentAssetLimit)
		snapshot.Assets = assets
		return err
	})
	g.Go(func() error {
		insights, err := scoped.UnreadInsights(ctx, unreadInsightLimit)
		snapshot.UnreadInsights = insights
		return err
	})
	g.Go(func() error {
		trend, err := scoped.MonthlyTrend(ctx, end, trendMonths)
		snapshot.MonthlyTrend = trend
		return err
	})
	g.Go(func() error {
		accounts, err := scoped.Accounts(ctx)
		snapshot.AccountsSummary = accounts
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard snapshot: %w", err)
	}

	snapshot.CashFlow = snapshot.TotalIncome.Sub(snapshot.TotalExpenses)
	return snapshot, nil
}

// HandleGet serves the dashboard snapshot
// @Summary Get dashboard
// @Description Aggregate financial state over a time window
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param range query int false "Window in days (default 30, max 365)"
// @Success 200 {object} models.DashboardSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /dashboard [get]
func (s *DashboardService) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	windowDays := defaultWindowDays
	if v := r.URL.Query().Get("range"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxWindowDays {
			SendErrorResponse(w, "range must be an integer between 1 and 365", http.StatusBadRequest, nil)
			return
		}
		windowDays = n
	}

	started := time.Now()
	snapshot, err := s.BuildSnapshot(r.Context(), userID, windowDays)
	if err != nil {
		log.Printf("[DASHBOARD] Snapshot build failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to build dashboard", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[DASHBOARD] Snapshot built for user %d (window=%dd) in %s", userID, windowDays, time.Since(started))
	SendJSON(w, http.StatusOK, snapshot)
}
