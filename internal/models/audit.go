package models

import "time"

const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionLogin  = "login"
)

const (
	AuditEntityUser        = "user"
	AuditEntityTransaction = "transaction"
	AuditEntityAccount     = "account"
	AuditEntityAsset       = "asset"
	AuditEntityInsight     = "insight"
)

// AuditAnonymousUser is recorded as the acting user when no authenticated
// context exists, e.g. a login attempt against an unknown email.
const AuditAnonymousUser = "anonymous"

// AuditEntry is what callers hand to the trail. The trail assigns the
// timestamp itself; any caller-supplied time is ignored.
type AuditEntry struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	OldValue   Payload
	NewValue   Payload
	Reason     string
	IPAddress  string
	UserAgent  string
}

// AuditRecord is a persisted trail entry. Records are immutable once
// written; no update or delete path exists.
type AuditRecord struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	EntityType string    `json:"entityType" db:"entity_type"`
	EntityID   string    `json:"entityId" db:"entity_id"`
	Action     string    `json:"action" db:"action"`
	OldValue   Payload   `json:"oldValue,omitempty" db:"old_value"`
	NewValue   Payload   `json:"newValue,omitempty" db:"new_value"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	IPAddress  string    `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  string    `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
