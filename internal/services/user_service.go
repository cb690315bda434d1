package services

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

// UserService owns user identity: lookups, profile changes and soft
// deletion. Every mutation writes old/new snapshots to the audit trail.
type UserService struct {
	db        *sql.DB
	audit     *AuditService
	validator *ValidationHelper
}

type UpdateProfileRequest struct {
	FirstName    *string `json:"firstName" validate:"omitempty,min=2"`
	LastName     *string `json:"lastName" validate:"omitempty,min=2"`
	BaseCurrency *string `json:"baseCurrency" validate:"omitempty,len=3"`
	Reason       string  `json:"reason" validate:"omitempty,max=200"`
}

func NewUserService(db *sql.DB, audit *AuditService) *UserService {
	return &UserService{
		db:        db,
		audit:     audit,
		validator: NewValidationHelper(),
	}
}

// GetByEmail looks a user up by case-normalized email. Soft-deleted users
// are not returned.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.fetchUser(ctx, `email = $1 AND is_active = true`, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID looks a user up by id.
func (s *UserService) GetByID(ctx context.Context, id int) (*models.User, error) {
	return s.fetchUser(ctx, `id = $1 AND is_active = true`, id)
}

func (s *UserService) fetchUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, base_currency, is_active, last_login, created_at, updated_at
		FROM users
		WHERE `+where, arg,
	).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.BaseCurrency,
		&user.IsActive, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile patches the authenticated user's profile
// @Summary Update profile
// @Description Patch first name, last name or base currency
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile patch"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/profile [put]
func (s *UserService) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req UpdateProfileRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	before, err := s.GetByID(r.Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[USER] Failed to load user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update profile", http.StatusInternalServerError, nil)
		}
		return
	}

	after := *before
	if req.FirstName != nil {
		after.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		after.LastName = *req.LastName
	}
	if req.BaseCurrency != nil {
		after.BaseCurrency = strings.ToUpper(*req.BaseCurrency)
	}

	err = s.db.QueryRowContext(r.Context(), `
		UPDATE users
		SET first_name = $1, last_name = $2, base_currency = $3, updated_at = NOW()
		WHERE id = $4 AND is_active = true
		RETURNING updated_at`,
		after.FirstName, after.LastName, after.BaseCurrency, userID,
	).Scan(&after.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[USER] Failed to update user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update profile", http.StatusInternalServerError, nil)
		}
		return
	}

	actor := strconv.Itoa(userID)
	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     actor,
		EntityType: models.AuditEntityUser,
		EntityID:   actor,
		Action:     models.AuditActionUpdate,
		OldValue:   Snapshot(before),
		NewValue:   Snapshot(after),
		Reason:     req.Reason,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[USER] Profile updated for user %d", userID)
	SendJSON(w, http.StatusOK, after)
}

// DeleteAccount soft-deletes the authenticated user
// @Summary Delete account
// @Description Deactivate the account; rows are flagged, never removed
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/account [delete]
func (s *UserService) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	before, err := s.GetByID(r.Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[USER] Failed to load user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		}
		return
	}

	result, err := s.db.ExecContext(r.Context(), `
		UPDATE users SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND is_active = true`, userID)
	if err != nil {
		log.Printf("[USER] Failed to deactivate user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}

	after := *before
	after.IsActive = false

	actor := strconv.Itoa(userID)
	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     actor,
		EntityType: models.AuditEntityUser,
		EntityID:   actor,
		Action:     models.AuditActionDelete,
		OldValue:   Snapshot(before),
		NewValue:   Snapshot(after),
		Reason:     "account deactivation requested",
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[USER] Account deactivated for user %d", userID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Account deactivated"})
}
