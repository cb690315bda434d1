package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

// InsightService stores derived insights and their read/archive lifecycle.
// Every query filters by both id and owner, so a foreign insight and a
// missing one are indistinguishable to the caller.
type InsightService struct {
	db        *sql.DB
	validator *ValidationHelper
}

type CreateInsightRequest struct {
	Type            string         `json:"type" validate:"required,oneof=spending_trend anomaly cash_flow recommendation budget_alert goal_progress tax_opportunity"`
	Title           string         `json:"title" validate:"required,max=200"`
	Description     string         `json:"description" validate:"required"`
	Confidence      float64        `json:"confidence" validate:"gte=0,lte=100"`
	Impact          string         `json:"impact" validate:"required,oneof=high medium low"`
	CategoryID      *int           `json:"categoryId"`
	TimePeriod      models.Payload `json:"timePeriod"`
	Data            models.Payload `json:"data"`
	Recommendations models.Payload `json:"recommendations"`
}

type UpdateInsightRequest struct {
	Title           *string        `json:"title" validate:"omitempty,max=200"`
	Description     *string        `json:"description"`
	Confidence      *float64       `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Impact          *string        `json:"impact" validate:"omitempty,oneof=high medium low"`
	CategoryID      *int           `json:"categoryId"`
	TimePeriod      models.Payload `json:"timePeriod"`
	Data            models.Payload `json:"data"`
	Recommendations models.Payload `json:"recommendations"`
	IsRead          *bool          `json:"isRead"`
	IsArchived      *bool          `json:"isArchived"`
}

// InsightListOptions are the recognized list filters. Anything omitted
// falls back to defaults: no filter, created_at DESC, page size 20.
type InsightListOptions struct {
	Limit     int
	Offset    int
	Type      string
	Impact    string
	IsRead    *bool
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortOrder string
}

type InsightListResult struct {
	Insights []models.Insight `json:"insights"`
	Total    int              `json:"total"`
	HasMore  bool             `json:"hasMore"`
}

const insightColumns = `id, user_id, type, title, description, confidence, impact, category_id,
	time_period, data, recommendations, is_read, is_archived, created_at, updated_at`

var insightSortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"confidence": "confidence",
	"impact":     "impact",
	"type":       "type",
}

func NewInsightService(db *sql.DB) *InsightService {
	return &InsightService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

func scanInsight(row interface{ Scan(...any) error }) (*models.Insight, error) {
	var in models.Insight
	err := row.Scan(&in.ID, &in.UserID, &in.Type, &in.Title, &in.Description, &in.Confidence,
		&in.Impact, &in.CategoryID, &in.TimePeriod, &in.Data, &in.Recommendations,
		&in.IsRead, &in.IsArchived, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Create persists a new insight for the given owner.
func (s *InsightService) Create(ctx context.Context, userID int, req CreateInsightRequest) (*models.Insight, error) {
	id := uuid.New().String()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO insights (id, user_id, type, title, description, confidence, impact, category_id,
			time_period, data, recommendations, is_read, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, false)
		RETURNING `+insightColumns,
		id, userID, req.Type, req.Title, req.Description, req.Confidence, req.Impact,
		req.CategoryID, req.TimePeriod, req.Data, req.Recommendations)
	return scanInsight(row)
}

// GetByID returns the insight only when it exists AND belongs to userID.
// Both other outcomes surface as sql.ErrNoRows.
func (s *InsightService) GetByID(ctx context.Context, id string, userID int) (*models.Insight, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+insightColumns+`
		FROM insights
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanInsight(row)
}

// List returns a filtered, paginated page plus the unpaginated total.
func (s *InsightService) List(ctx context.Context, userID int, opts InsightListOptions) (*InsightListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	where := []string{"user_id = $1"}
	args := []any{userID}

	addFilter := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if opts.Type != "" {
		addFilter("type = $%d", opts.Type)
	}
	if opts.Impact != "" {
		addFilter("impact = $%d", opts.Impact)
	}
	if opts.IsRead != nil {
		addFilter("is_read = $%d", *opts.IsRead)
	}
	if opts.StartDate != nil {
		addFilter("created_at >= $%d", *opts.StartDate)
	}
	if opts.EndDate != nil {
		addFilter("created_at <= $%d", *opts.EndDate)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM insights WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count insights: %w", err)
	}

	sortCol, ok := insightSortColumns[opts.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		sortDir = "ASC"
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM insights WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		insightColumns, whereClause, sortCol, sortDir, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	insights := []models.Insight{}
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &InsightListResult{
		Insights: insights,
		Total:    total,
		HasMore:  opts.Offset+len(insights) < total,
	}, nil
}

// Update applies a partial patch. Only provided fields change; updated_at is
// refreshed. Ownership mismatch behaves exactly like a missing row.
func (s *InsightService) Update(ctx context.Context, id string, userID int, req UpdateInsightRequest) (*models.Insight, error) {
	set := []string{}
	args := []any{}

	addSet := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Title != nil {
		addSet("title", *req.Title)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.Confidence != nil {
		addSet("confidence", *req.Confidence)
	}
	if req.Impact != nil {
		addSet("impact", *req.Impact)
	}
	if req.CategoryID != nil {
		addSet("category_id", *req.CategoryID)
	}
	if !req.TimePeriod.IsZero() {
		addSet("time_period", req.TimePeriod)
	}
	if !req.Data.IsZero() {
		addSet("data", req.Data)
	}
	if !req.Recommendations.IsZero() {
		addSet("recommendations", req.Recommendations)
	}
	if req.IsRead != nil {
		addSet("is_read", *req.IsRead)
	}
	if req.IsArchived != nil {
		addSet("is_archived", *req.IsArchived)
	}

	if len(set) == 0 {
		return s.GetByID(ctx, id, userID)
	}

	set = append(set, "updated_at = NOW()")
	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE insights SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args)-1, len(args), insightColumns)

	return scanInsight(s.db.QueryRowContext(ctx, query, args...))
}

// MarkRead flips a single insight to read.
func (s *InsightService) MarkRead(ctx context.Context, id string, userID int) (*models.Insight, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE insights SET is_read = true, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+insightColumns, id, userID)
	return scanInsight(row)
}

// MarkAllRead flips every unread insight and returns how many rows actually
// changed. Already-read rows are excluded by the filter, so an immediate
// second call reports 0.
func (s *InsightService) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE insights SET is_read = true, updated_at = NOW()
		WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark insights read: %w", err)
	}
	return result.RowsAffected()
}

// Delete hard-deletes the insight. Unlike users, insights carry no
// soft-delete flag.
func (s *InsightService) Delete(ctx context.Context, id string, userID int) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM insights WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HTTP handlers

// HandleList lists insights
// @Summary List insights
// @Description Get insights with optional filtering and pagination
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Page offset"
// @Param type query string false "Filter by insight type"
// @Param impact query string false "Filter by impact"
// @Param isRead query bool false "Filter by read state"
// @Param startDate query string false "Created on/after (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Created on/before"
// @Param sortBy query string false "Sort column (createdAt, updatedAt, confidence, impact, type)"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} InsightListResult
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /insights [get]
func (s *InsightService) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	opts := InsightListOptions{
		Type:      r.URL.Query().Get("type"),
		Impact:    r.URL.Query().Get("impact"),
		SortBy:    r.URL.Query().Get("sortBy"),
		SortOrder: r.URL.Query().Get("sortOrder"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	if v := r.URL.Query().Get("isRead"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.IsRead = &b
		}
	}
	if v := r.URL.Query().Get("startDate"); v != "" {
		if t, err := parseDate(v); err == nil {
			opts.StartDate = &t
		}
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		if t, err := parseDate(v); err == nil {
			opts.EndDate = &t
		}
	}

	result, err := s.List(r.Context(), userID, opts)
	if err != nil {
		log.Printf("[INSIGHT] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch insights", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, result)
}

// HandleCreate creates an insight
// @Summary Create insight
// @Description Persist a new insight record
// @Tags insights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateInsightRequest true "Insight"
// @Success 201 {object} map[string]models.Insight
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /insights [post]
func (s *InsightService) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateInsightRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[INSIGHT] Create validation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	insight, err := s.Create(r.Context(), userID, req)
	if err != nil {
		log.Printf("[INSIGHT] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create insight", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[INSIGHT] Created insight %s for user %d", insight.ID, userID)
	SendJSON(w, http.StatusCreated, map[string]*models.Insight{"insight": insight})
}

// HandleGet fetches one insight
// @Summary Get insight
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param id path string true "Insight ID"
// @Success 200 {object} map[string]models.Insight
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /insights/{id} [get]
func (s *InsightService) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	insight, err := s.GetByID(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		s.respondFetchError(w, userID, err)
		return
	}

	SendJSON(w, http.StatusOK, map[string]*models.Insight{"insight": insight})
}

// HandleUpdate patches an insight
// @Summary Update insight
// @Description Apply a partial patch; only provided fields change
// @Tags insights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Insight ID"
// @Param request body UpdateInsightRequest true "Patch"
// @Success 200 {object} map[string]models.Insight
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /insights/{id} [put]
func (s *InsightService) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req UpdateInsightRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	insight, err := s.Update(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		s.respondFetchError(w, userID, err)
		return
	}

	SendJSON(w, http.StatusOK, map[string]*models.Insight{"insight": insight})
}

// HandleDelete removes an insight
// @Summary Delete insight
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param id path string true "Insight ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /insights/{id} [delete]
func (s *InsightService) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.Delete(r.Context(), id, userID); err != nil {
		s.respondFetchError(w, userID, err)
		return
	}

	log.Printf("[INSIGHT] Deleted insight %s for user %d", id, userID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Insight deleted"})
}

// HandleMarkRead marks one insight read
// @Summary Mark insight read
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param id path string true "Insight ID"
// @Success 200 {object} map[string]models.Insight
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /insights/{id}/read [post]
func (s *InsightService) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	insight, err := s.MarkRead(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		s.respondFetchError(w, userID, err)
		return
	}

	SendJSON(w, http.StatusOK, map[string]*models.Insight{"insight": insight})
}

// HandleMarkAllRead marks every unread insight read
// @Summary Mark all insights read
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /insights/read-all [post]
func (s *InsightService) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	marked, err := s.MarkAllRead(r.Context(), userID)
	if err != nil {
		log.Printf("[INSIGHT] MarkAllRead failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to mark insights read", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[INSIGHT] Marked %d insights read for user %d", marked, userID)
	SendJSON(w, http.StatusOK, map[string]int64{"marked": marked})
}

// respondFetchError maps sql.ErrNoRows to 404. An ownership mismatch hits
// the same branch, keeping the two cases response-indistinguishable.
func (s *InsightService) respondFetchError(w http.ResponseWriter, userID int, err error) {
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Insight not found", http.StatusNotFound, nil)
		return
	}
	log.Printf("[INSIGHT] Storage error for user %d: %v", userID, err)
	SendErrorResponse(w, "Failed to fetch insight", http.StatusInternalServerError, nil)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
