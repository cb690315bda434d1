package services

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

type AccountService struct {
	db        *sql.DB
	audit     *AuditService
	validator *ValidationHelper
}

type CreateAccountRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Type        string          `json:"type" validate:"required,oneof=checking savings credit investment cash"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	Institution string          `json:"institution" validate:"omitempty,max=100"`
}

type UpdateAccountRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	Type        *string          `json:"type" validate:"omitempty,oneof=checking savings credit investment cash"`
	Balance     *decimal.Decimal `json:"balance"`
	Institution *string          `json:"institution" validate:"omitempty,max=100"`
}

const accountColumns = `id, user_id, name, type, balance, currency, COALESCE(institution, ''), is_active, created_at, updated_at`

func NewAccountService(db *sql.DB, audit *AuditService) *AccountService {
	return &AccountService{
		db:        db,
		audit:     audit,
		validator: NewValidationHelper(),
	}
}

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.Currency,
		&a.Institution, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HandleList lists the user's accounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]models.Account
// @Failure 401 {object} ErrorResponse
// @Router /accounts [get]
func (s *AccountService) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		log.Printf("[ACCOUNT] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			log.Printf("[ACCOUNT] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
			return
		}
		accounts = append(accounts, *a)
	}

	SendJSON(w, http.StatusOK, map[string][]models.Account{"accounts": accounts})
}

// HandleCreate creates an account
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account"
// @Success 201 {object} map[string]models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /accounts [post]
func (s *AccountService) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateAccountRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	row := s.db.QueryRowContext(r.Context(), `
		INSERT INTO accounts (user_id, name, type, balance, currency, institution, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), true)
		RETURNING `+accountColumns,
		userID, req.Name, req.Type, req.Balance, req.Currency, req.Institution)
	account, err := scanAccount(row)
	if err != nil {
		log.Printf("[ACCOUNT] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAccount,
		EntityID:   strconv.Itoa(account.ID),
		Action:     models.AuditActionCreate,
		NewValue:   Snapshot(account),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[ACCOUNT] Created account %d for user %d", account.ID, userID)
	SendJSON(w, http.StatusCreated, map[string]*models.Account{"account": account})
}

// HandleUpdate patches an account
// @Summary Update account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body UpdateAccountRequest true "Patch"
// @Success 200 {object} map[string]models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [put]
func (s *AccountService) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateAccountRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	before, err := scanAccount(s.db.QueryRowContext(r.Context(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND user_id = $2 AND is_active = true`, accountID, userID))
	if err != nil {
		// Ownership mismatch and absence look identical.
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ACCOUNT] Fetch failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update account", http.StatusInternalServerError, nil)
		}
		return
	}

	after := *before
	if req.Name != nil {
		after.Name = *req.Name
	}
	if req.Type != nil {
		after.Type = *req.Type
	}
	if req.Balance != nil {
		after.Balance = *req.Balance
	}
	if req.Institution != nil {
		after.Institution = *req.Institution
	}

	err = s.db.QueryRowContext(r.Context(), `
		UPDATE accounts
		SET name = $1, type = $2, balance = $3, institution = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $5 AND user_id = $6 AND is_active = true
		RETURNING updated_at`,
		after.Name, after.Type, after.Balance, after.Institution, accountID, userID,
	).Scan(&after.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ACCOUNT] Update failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update account", http.StatusInternalServerError, nil)
		}
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAccount,
		EntityID:   strconv.Itoa(accountID),
		Action:     models.AuditActionUpdate,
		OldValue:   Snapshot(before),
		NewValue:   Snapshot(after),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	SendJSON(w, http.StatusOK, map[string]*models.Account{"account": &after})
}

// HandleDelete deactivates an account
// @Summary Delete account
// @Description Deactivates the account; its transactions stay for history
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [delete]
func (s *AccountService) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	before, err := scanAccount(s.db.QueryRowContext(r.Context(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND user_id = $2 AND is_active = true`, accountID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ACCOUNT] Fetch failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		}
		return
	}

	_, err = s.db.ExecContext(r.Context(), `
		UPDATE accounts SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		log.Printf("[ACCOUNT] Delete failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		return
	}

	after := *before
	after.IsActive = false

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAccount,
		EntityID:   strconv.Itoa(accountID),
		Action:     models.AuditActionDelete,
		OldValue:   Snapshot(before),
		NewValue:   Snapshot(after),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[ACCOUNT] Deactivated account %d for user %d", accountID, userID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}
