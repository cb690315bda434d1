package services

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finlens/backend/internal/models"
)

var assetTestColumns = []string{"id", "user_id", "name", "type", "current_value", "purchase_value",
	"purchase_date", "notes", "created_at", "updated_at"}

func TestAssetService_HandleCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAssetService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("create with purchase details", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO assets").
			WithArgs(7, "Apartment", "property", decimalArg{decimal.NewFromInt(250000)},
				sqlmock.AnyArg(), sqlmock.AnyArg(), "Bought off-plan").
			WillReturnRows(sqlmock.NewRows(assetTestColumns).
				AddRow(4, 7, "Apartment", "property", "250000", "180000", now, "Bought off-plan", now, now))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAsset, "4", models.AuditActionCreate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		body := []byte(`{"name":"Apartment","type":"property","currentValue":"250000","purchaseValue":"180000","purchaseDate":"2019-05-01","notes":"Bought off-plan"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/assets", body, 7))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]models.Asset
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, 4, resp["asset"].ID)
		assert.NotNil(t, resp["asset"].PurchaseValue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("purchase details are optional", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO assets").
			WithArgs(7, "Watch", "collectible", decimalArg{decimal.NewFromInt(3200)},
				sqlmock.AnyArg(), sqlmock.AnyArg(), "").
			WillReturnRows(sqlmock.NewRows(assetTestColumns).
				AddRow(5, 7, "Watch", "collectible", "3200", nil, nil, "", now, now))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAsset, "5", models.AuditActionCreate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		body := []byte(`{"name":"Watch","type":"collectible","currentValue":"3200"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/assets", body, 7))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]models.Asset
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Nil(t, resp["asset"].PurchaseValue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid asset type is rejected", func(t *testing.T) {
		body := []byte(`{"name":"Yacht","type":"boat","currentValue":"90000"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/assets", body, 7))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAssetService_HandleList(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAssetService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("returns newest first", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE user_id = \\$1 ORDER BY created_at DESC").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(assetTestColumns).
				AddRow(5, 7, "Watch", "collectible", "3200", nil, nil, "", now, now).
				AddRow(4, 7, "Apartment", "property", "250000", "180000", now, "", now, now))

		w := httptest.NewRecorder()
		service.HandleList(w, authedRequest("GET", "/assets", nil, 7))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string][]models.Asset
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Len(t, resp["assets"], 2)
		assert.Equal(t, "Watch", resp["assets"][0].Name)
	})

	t.Run("no assets is an empty list", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(assetTestColumns))

		w := httptest.NewRecorder()
		service.HandleList(w, authedRequest("GET", "/assets", nil, 7))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"assets":[]}`, w.Body.String())
	})
}

func TestAssetService_HandleUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAssetService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("patch revalues without touching name", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(4, 7).
			WillReturnRows(sqlmock.NewRows(assetTestColumns).
				AddRow(4, 7, "Apartment", "property", "250000", "180000", now, "", now, now))
		mock.ExpectQuery("UPDATE assets").
			WithArgs("Apartment", "property", decimalArg{decimal.NewFromInt(265000)},
				sqlmock.AnyArg(), "", 4, 7).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAsset, "4", models.AuditActionUpdate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		body := []byte(`{"currentValue":"265000"}`)
		r := withURLParam(authedRequest("PUT", "/assets/4", body, 7), "id", "4")
		w := httptest.NewRecorder()

		service.HandleUpdate(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]models.Asset
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Apartment", resp["asset"].Name)
		assert.True(t, resp["asset"].CurrentValue.Equal(decimal.NewFromInt(265000)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign asset is 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets").
			WithArgs(4, 99).
			WillReturnError(sql.ErrNoRows)

		body := []byte(`{"currentValue":"1"}`)
		r := withURLParam(authedRequest("PUT", "/assets/4", body, 99), "id", "4")
		w := httptest.NewRecorder()

		service.HandleUpdate(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Asset not found")
	})
}

func TestAssetService_HandleDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAssetService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("delete removes the row and records the old value", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets").
			WithArgs(4, 7).
			WillReturnRows(sqlmock.NewRows(assetTestColumns).
				AddRow(4, 7, "Apartment", "property", "250000", "180000", now, "", now, now))
		mock.ExpectExec("DELETE FROM assets WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(4, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAsset, "4", models.AuditActionDelete,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

		r := withURLParam(authedRequest("DELETE", "/assets/4", nil, 7), "id", "4")
		w := httptest.NewRecorder()

		service.HandleDelete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown asset is 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets").
			WithArgs(40, 7).
			WillReturnError(sql.ErrNoRows)

		r := withURLParam(authedRequest("DELETE", "/assets/40", nil, 7), "id", "40")
		w := httptest.NewRecorder()

		service.HandleDelete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
