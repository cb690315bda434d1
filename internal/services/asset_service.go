package services

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

type AssetService struct {
	db        *sql.DB
	audit     *AuditService
	validator *ValidationHelper
}

type CreateAssetRequest struct {
	Name          string           `json:"name" validate:"required,max=100"`
	Type          string           `json:"type" validate:"required,oneof=property vehicle investment collectible other"`
	CurrentValue  decimal.Decimal  `json:"currentValue"`
	PurchaseValue *decimal.Decimal `json:"purchaseValue"`
	PurchaseDate  *string          `json:"purchaseDate" validate:"omitempty,datetime=2006-01-02"`
	Notes         string           `json:"notes" validate:"omitempty,max=500"`
}

type UpdateAssetRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Type          *string          `json:"type" validate:"omitempty,oneof=property vehicle investment collectible other"`
	CurrentValue  *decimal.Decimal `json:"currentValue"`
	PurchaseValue *decimal.Decimal `json:"purchaseValue"`
	Notes         *string          `json:"notes" validate:"omitempty,max=500"`
}

const assetColumns = `id, user_id, name, type, current_value, purchase_value, purchase_date, COALESCE(notes, ''), created_at, updated_at`

func NewAssetService(db *sql.DB, audit *AuditService) *AssetService {
	return &AssetService{
		db:        db,
		audit:     audit,
		validator: NewValidationHelper(),
	}
}

func scanAsset(row interface{ Scan(...any) error }) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.CurrentValue, &a.PurchaseValue,
		&a.PurchaseDate, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HandleList lists the user's assets
// @Summary List assets
// @Tags assets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]models.Asset
// @Failure 401 {object} ErrorResponse
// @Router /assets [get]
func (s *AssetService) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT `+assetColumns+`
		FROM assets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		log.Printf("[ASSET] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch assets", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			log.Printf("[ASSET] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch assets", http.StatusInternalServerError, nil)
			return
		}
		assets = append(assets, *a)
	}

	SendJSON(w, http.StatusOK, map[string][]models.Asset{"assets": assets})
}

// HandleCreate creates an asset
// @Summary Create asset
// @Tags assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAssetRequest true "Asset"
// @Success 201 {object} map[string]models.Asset
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /assets [post]
func (s *AssetService) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateAssetRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var purchaseDate *time.Time
	if req.PurchaseDate != nil {
		t, _ := time.Parse("2006-01-02", *req.PurchaseDate)
		purchaseDate = &t
	}

	row := s.db.QueryRowContext(r.Context(), `
		INSERT INTO assets (user_id, name, type, current_value, purchase_value, purchase_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING `+assetColumns,
		userID, req.Name, req.Type, req.CurrentValue, req.PurchaseValue, purchaseDate, req.Notes)
	asset, err := scanAsset(row)
	if err != nil {
		log.Printf("[ASSET] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create asset", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAsset,
		EntityID:   strconv.Itoa(asset.ID),
		Action:     models.AuditActionCreate,
		NewValue:   Snapshot(asset),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[ASSET] Created asset %d for user %d", asset.ID, userID)
	SendJSON(w, http.StatusCreated, map[string]*models.Asset{"asset": asset})
}

// HandleUpdate patches an asset
// @Summary Update asset
// @Tags assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Param request body UpdateAssetRequest true "Patch"
// @Success 200 {object} map[string]models.Asset
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assets/{id} [put]
func (s *AssetService) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	assetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid asset id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateAssetRequest
	if err := DecodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	before, err := scanAsset(s.db.QueryRowContext(r.Context(), `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id = $1 AND user_id = $2`, assetID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Asset not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ASSET] Fetch failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update asset", http.StatusInternalServerError, nil)
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
	if req.CurrentValue != nil {
		after.CurrentValue = *req.CurrentValue
	}
	if req.PurchaseValue != nil {
		after.PurchaseValue = req.PurchaseValue
	}
	if req.Notes != nil {
		after.Notes = *req.Notes
	}

	err = s.db.QueryRowContext(r.Context(), `
		UPDATE assets
		SET name = $1, type = $2, current_value = $3, purchase_value = $4, notes = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at`,
		after.Name, after.Type, after.CurrentValue, after.PurchaseValue, after.Notes, assetID, userID,
	).Scan(&after.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Asset not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ASSET] Update failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to update asset", http.StatusInternalServerError, nil)
		}
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAsset,
		EntityID:   strconv.Itoa(assetID),
		Action:     models.AuditActionUpdate,
		OldValue:   Snapshot(before),
		NewValue:   Snapshot(after),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	SendJSON(w, http.StatusOK, map[string]*models.Asset{"asset": &after})
}

// HandleDelete removes an asset
// @Summary Delete asset
// @Tags assets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Asset ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assets/{id} [delete]
func (s *AssetService) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	assetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid asset id", http.StatusBadRequest, nil)
		return
	}

	before, err := scanAsset(s.db.QueryRowContext(r.Context(), `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id = $1 AND user_id = $2`, assetID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Asset not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ASSET] Fetch failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to delete asset", http.StatusInternalServerError, nil)
		}
		return
	}

	_, err = s.db.ExecContext(r.Context(), `
		DELETE FROM assets WHERE id = $1 AND user_id = $2`, assetID, userID)
	if err != nil {
		log.Printf("[ASSET] Delete failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to delete asset", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordOrLog(r.Context(), models.AuditEntry{
		UserID:     strconv.Itoa(userID),
		EntityType: models.AuditEntityAsset,
		EntityID:   strconv.Itoa(assetID),
		Action:     models.AuditActionDelete,
		OldValue:   Snapshot(before),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	log.Printf("[ASSET] Deleted asset %d for user %d", assetID, userID)
	SendJSON(w, http.StatusOK, map[string]string{"message": "Asset deleted"})
}
