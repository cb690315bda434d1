package services

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/finlens/backend/internal/models"
)

func TestAuditService_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	t.Run("timestamp is assigned by the service", func(t *testing.T) {
		before := time.Now().UTC()

		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs("7", models.AuditEntityAccount, "12", models.AuditActionUpdate,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "", "10.0.0.1", "test-agent",
				timestampWithin{before: before}).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))

		id, err := service.Record(context.Background(), models.AuditEntry{
			UserID:     "7",
			EntityType: models.AuditEntityAccount,
			EntityID:   "12",
			Action:     models.AuditActionUpdate,
			OldValue:   Snapshot(map[string]any{"balance": "100"}),
			NewValue:   Snapshot(map[string]any{"balance": "150"}),
			IPAddress:  "10.0.0.1",
			UserAgent:  "test-agent",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(41), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty user id becomes anonymous", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO audit_logs").
			WithArgs(models.AuditAnonymousUser, models.AuditEntityUser, "ghost@example.com",
				models.AuditActionLogin, sqlmock.AnyArg(), sqlmock.AnyArg(), "",
				"10.0.0.2", "test-agent", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		id, err := service.Record(context.Background(), models.AuditEntry{
			EntityType: models.AuditEntityUser,
			EntityID:   "ghost@example.com",
			Action:     models.AuditActionLogin,
			NewValue:   Snapshot(map[string]any{"outcome": "failure"}),
			IPAddress:  "10.0.0.2",
			UserAgent:  "test-agent",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO audit_logs").
			WillReturnError(assert.AnError)

		_, err := service.Record(context.Background(), models.AuditEntry{
			UserID:     "7",
			EntityType: models.AuditEntityUser,
			EntityID:   "7",
			Action:     models.AuditActionDelete,
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// timestampWithin matches a time argument that is not before the anchoring
// instant and not in the future.
type timestampWithin struct {
	before time.Time
}

func (m timestampWithin) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	if !ok {
		return false
	}
	return !ts.Before(m.before.Truncate(time.Second)) && !ts.After(time.Now().UTC().Add(time.Second))
}

func TestAuditService_QueryByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	columns := []string{"id", "user_id", "entity_type", "entity_id", "action",
		"old_value", "new_value", "reason", "ip_address", "user_agent", "created_at"}

	t.Run("entries come back most recent first", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery("SELECT (.+) FROM audit_logs WHERE user_id = \\$1 ORDER BY created_at DESC, id DESC").
			WithArgs("7", 100).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(3, "7", models.AuditEntityUser, "7", models.AuditActionLogin, nil, []byte(`{"outcome":"success"}`), "", "10.0.0.1", "ua", now).
				AddRow(2, "7", models.AuditEntityUser, "7", models.AuditActionCreate, nil, []byte(`{"email":"a@b.c"}`), "user registration", "10.0.0.1", "ua", now.Add(-time.Minute)))

		records, err := service.QueryByUser(context.Background(), "7", 0)
		assert.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, int64(3), records[0].ID)
		assert.Equal(t, models.AuditActionLogin, records[0].Action)
		assert.Equal(t, "user registration", records[1].Reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entries yields empty slice", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM audit_logs").
			WithArgs(models.AuditAnonymousUser, 50).
			WillReturnRows(sqlmock.NewRows(columns))

		records, err := service.QueryByUser(context.Background(), models.AuditAnonymousUser, 50)
		assert.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Snapshot(nil))
	})

	t.Run("struct is encoded", func(t *testing.T) {
		p := Snapshot(map[string]any{"name": "Cash"})
		assert.JSONEq(t, `{"name":"Cash"}`, string(p))
	})

	t.Run("unencodable value degrades to nil", func(t *testing.T) {
		assert.Nil(t, Snapshot(make(chan int)))
	})
}
