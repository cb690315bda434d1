package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

// TransactionService records categorized money movements. Creating or
// deleting a transaction adjusts the owning account's balance in the same
// database transaction, so the two can never drift apart.
type TransactionService struct {
	db        *sql.DB
	audit     *AuditService
	validator *ValidationHelper
}

type CreateTransactionRequest struct {
	AccountID   int             `json:"accountId" validate:"required,gt=0"`
	CategoryID  *int            `json:"categoryId"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=200"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"omitempty,max=500"`
}

const transactionColumns = `id, user_id, account_id, category_id, type, amount, description, date, COALESCE(notes, ''), created_at`

func NewTransactionService(db *sql.DB, audit *AuditService) *TransactionService {
	return &TransactionService{
		db:        db,
		audit:     audit,
		validator: NewValidationHelper(),
	}
}

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.CategoryID, &tx.Type, &tx.Amount,
		&tx.Description, &tx.Date, &tx.Notes, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// HandleList lists transactions with optional filters
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId query int false "Filter by account"
// @Param categoryId query int false "Filter by category"
// @Param type query string false "income or expense"
// @Param startDate query string false "On/after date (YYYY-MM-DD)"
// @Param endDate query string false "On/before date (YYYY-MM-DD)"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} object{transactions=[]models.Transaction,total=int,hasMore=bool}
// @Failure 401 {object} ErrorResponse
// @Router /transactions [get]
func (s *TransactionService) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	where := []string{"user_id = $1"}
	args := []any{userID}

	addFilter := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if v := r.URL.Query().Get("accountId"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			addFilter("account_id = $%d", n)
		}
	}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			addFilter("category_id = $%d", n)
		}
	}
	if v := r.URL.Query().Get("type"); v == models.TransactionTypeIncome || v == models.TransactionTypeExpense {
		addFilter("type = $%d", v)
	}
	if v := r.URL.Query().Get("startDate"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			addFilter("date >= $%d", t)
		}
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			addFilter("date <= $%d", t)
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM transactions WHERE `+whereClause, args...).Scan(&total); err != nil {
		log.Printf("[TRANSACTION] Count failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, whereClause, len(args)-1, len(args))

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[TRANSACTION] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			log.Printf("[TRANSACTION] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, *tx)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"total":        total,
		"hasMore":      offset+len(transactions) < total,
	})
}

// HandleCreate records a transaction
// @Summary Create transaction
// @Description Record a transaction and adjust the account balance atomically
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "Transaction"
// @Success 201 {object} map[string]models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions [post]
func (s *TransactionService) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateTransactionRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !req.Amount.IsPositive() {
		SendErrorResponse(w, "Amount must be positive", http.StatusBadRequest, nil)
		return
	}

	date, _ := time.Parse("2006-01-02", req.Date)

	dbTx, err := s.db.Begin()
	if err != nil {
		log.Printf("[TRANSACTION] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}
	defer dbTx.Rollback()

	// The ownership check on the account doubles as the existence check.
	var accountExists bool
	err = dbTx.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2 AND is_active = true)`,
		req.AccountID, userID).Scan(&accountExists)
	if err != nil {
		log.Printf("[TRANSACTION] Account check failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}
	if !accountExists {
		SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		return
	}

	row := dbTx.QueryRow(`
		INSERT INTO transactions (user_id, account_id, category_id, type, amount, description, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING `+transactionColumns,
		userID, req.AccountID, req.CategoryID, req.Type, req.Amount, req.Description, date, req.Notes)
	tx, err := scanTransaction(row)
	if err != nil {
		log.Printf("[TRANSACTION] Insert failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	delta := req.Amount
	if req.Type == models.TransactionTypeExpense {
		delta = delta.Neg()
	}
	_, err = dbTx.Exec(`
		UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3`, delta, req.AccountID, userID)
	if err != nil {
		log.Printf("[TRANSACTION] Balance update failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	if err := dbTx.Commit(); err != nil {
		log.Printf("[TRANSACTION] Commit failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityTransaction,
		EntityID:   strconv.Itoa(tx.ID),
		Action:     models.AuditActionCreate,
		NewValue:   Snapshot(tx),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[TRANSACTION] Created transaction %d for user %d", tx.ID, userID)
	SendJSON(w, http.StatusCreated, map[string]*models.Transaction{"transaction": tx})
}

// HandleDelete removes a transaction and reverses its balance effect
// @Summary Delete transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{id} [delete]
func (s *TransactionService) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	txID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		log.Printf("[TRANSACTION] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}
	defer dbTx.Rollback()

	before, err := scanTransaction(dbTx.QueryRow(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2`, txID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Fetch failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if _, err := dbTx.Exec(`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, txID, userID); err != nil {
		log.Printf("[TRANSACTION] Delete failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	delta := before.Amount
	if before.Type == models.TransactionTypeIncome {
		delta = delta.Neg()
	}
	if _, err := dbTx.Exec(`
		UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3`, delta, before.AccountID, userID); err != nil {
		log.Printf("[TRANSACTION] Balance reversal failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	if err := dbTx.Commit(); err != nil {
		log.Printf("[TRANSACTION] Commit failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityTransaction,
		EntityID:   strconv.Itoa(txID),
		Action:     models.AuditActionDelete,
		OldValue:   Snapshot(before),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[TRANSACTION] Deleted transaction %d for user %d", txID, userID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted"})
}
