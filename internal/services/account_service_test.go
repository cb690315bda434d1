package services

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/finlens/backend/internal/models"
)

var accountTestColumns = []string{"id", "user_id", "name", "type", "balance", "currency",
	"institution", "is_active", "created_at", "updated_at"}

func TestAccountService_HandleCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("successful create writes an audit entry", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(7, "Checking", "checking", sqlmock.AnyArg(), "USD", "First Bank").
			WillReturnRows(sqlmock.NewRows(accountTestColumns).
				AddRow(3, 7, "Checking", "checking", "1500.25", "USD", "First Bank", true, now, now))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAccount, "3", models.AuditActionCreate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		body := []byte(`{"name":"Checking","type":"checking","balance":"1500.25","currency":"USD","institution":"First Bank"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/accounts", body, 7))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]models.Account
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, 3, resp["account"].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid account type is rejected", func(t *testing.T) {
		body := []byte(`{"name":"Vault","type":"offshore","currency":"USD"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/accounts", body, 7))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		body := []byte(`{"name":"Checking","type":"checking","currency":"USD","role":"admin"}`)
		w := httptest.NewRecorder()

		service.HandleCreate(w, authedRequest("POST", "/accounts", body, 7))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccountService_HandleUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("patch keeps unspecified fields", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 AND user_id = \\$2 AND is_active = true").
			WithArgs(3, 7).
			WillReturnRows(sqlmock.NewRows(accountTestColumns).
				AddRow(3, 7, "Checking", "checking", "1500.25", "USD", "First Bank", true, now, now))
		mock.ExpectQuery("UPDATE accounts").
			WithArgs("Everyday Checking", "checking", sqlmock.AnyArg(), "First Bank", 3, 7).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAccount, "3", models.AuditActionUpdate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		body := []byte(`{"name":"Everyday Checking"}`)
		r := withURLParam(authedRequest("PUT", "/accounts/3", body, 7), "id", "3")
		w := httptest.NewRecorder()

		service.HandleUpdate(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]models.Account
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Everyday Checking", resp["account"].Name)
		assert.Equal(t, "First Bank", resp["account"].Institution)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign account is 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(3, 99).
			WillReturnError(sql.ErrNoRows)

		body := []byte(`{"name":"Mine now"}`)
		r := withURLParam(authedRequest("PUT", "/accounts/3", body, 99), "id", "3")
		w := httptest.NewRecorder()

		service.HandleUpdate(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAccountService_HandleDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, NewAuditService(db))
	now := time.Now().UTC()

	t.Run("delete deactivates instead of removing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(3, 7).
			WillReturnRows(sqlmock.NewRows(accountTestColumns).
				AddRow(3, 7, "Checking", "checking", "1500.25", "USD", "", true, now, now))
		mock.ExpectExec("UPDATE accounts SET is_active = false").
			WithArgs(3, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAccount, "3", models.AuditActionDelete,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		r := withURLParam(authedRequest("DELETE", "/accounts/3", nil, 7), "id", "3")
		w := httptest.NewRecorder()

		service.HandleDelete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted account is 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(3, 7).
			WillReturnError(sql.ErrNoRows)

		r := withURLParam(authedRequest("DELETE", "/accounts/3", nil, 7), "id", "3")
		w := httptest.NewRecorder()

		service.HandleDelete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
