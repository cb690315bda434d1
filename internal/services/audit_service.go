package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/finlens/backend/internal/models"
)

// AuditService is the append-only trail of state-changing actions. There is
// deliberately no update or delete operation: a trail that can be mutated is
// not a trail. Retention is a data-governance concern outside the service.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one entry and returns its id. The timestamp is taken here,
// never from the caller, so entries cannot be backdated. A storage failure
// is returned to the caller, which decides whether to fail the parent
// operation or continue degraded.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) (int64, error) {
	if entry.UserID == "" {
		entry.UserID = models.AuditAnonymousUser
	}

	now := time.Now().UTC()

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, entity_type, entity_id, action, old_value, new_value, reason, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING id`,
		entry.UserID, entry.EntityType, entry.EntityID, entry.Action,
		entry.OldValue, entry.NewValue, entry.Reason, entry.IPAddress, entry.UserAgent, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record audit entry: %w", err)
	}

	return id, nil
}

// RecordOrLog is for mutation paths that should not fail when only the audit
// write fails. The miss itself is logged so it stays visible.
func (s *AuditService) RecordOrLog(ctx context.Context, entry models.AuditEntry) {
	if _, err := s.Record(ctx, entry); err != nil {
		log.Printf("[AUDIT] Failed to record %s %s for user %s: %v",
			entry.Action, entry.EntityType, entry.UserID, err)
	}
}

// QueryByUser returns a user's trail entries, most recent first. The id
// tiebreak keeps causal pairs written within the same instant (e.g. register
// then auto-login) in insertion order.
func (s *AuditService) QueryByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entity_type, entity_id, action, old_value, new_value, COALESCE(reason, ''), ip_address, user_agent, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	records := []models.AuditRecord{}
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.EntityType, &rec.EntityID, &rec.Action,
			&rec.OldValue, &rec.NewValue, &rec.Reason, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Snapshot encodes an entity state for old/new value columns. Encoding
// failures degrade to nil rather than blocking the audited action.
func Snapshot(v any) models.Payload {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[AUDIT] Failed to encode snapshot: %v", err)
		return nil
	}
	return models.Payload(data)
}
