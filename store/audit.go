package store

import (
	"time"
)

// Audit entities and actions. Rollups and profile scores are overwritten in
// place on every recompute, so the audit trail is the only record of which
// run produced a value and who triggered it.
const (
	AuditEntityStaff       = "staff"
	AuditEntityStore       = "store"
	AuditEntitySignal      = "signal"
	AuditEntityStaffRollup = "staff_rollup"
	AuditEntityStoreRollup = "store_rollup"

	AuditActionCreate     = "create"
	AuditActionComputed   = "computed"
	AuditActionReconciled = "reconciled"
	AuditActionInvalidate = "invalidate"

	// AuditActorSystem marks entries written by the engine's own event
	// handlers rather than an admin session.
	AuditActorSystem = "system"
)

type AuditEntry struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Action     string    `json:"action"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

const auditColumns = `id, entity_type, entity_id, action, old_value, new_value, actor, created_at`

func (db *DB) AppendAudit(entityType string, entityID int64, action, oldValue, newValue, actor string) error {
	_, err := db.Exec(db.Q(`INSERT INTO audit_log (entity_type, entity_id, action, old_value, new_value, actor) VALUES (?, ?, ?, ?, ?, ?)`),
		entityType, entityID, action, oldValue, newValue, actor)
	return err
}

// ListAuditLog returns the newest entries across all entities.
func (db *DB) ListAuditLog(limit int) ([]*AuditEntry, error) {
	return db.queryAudit(`SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
}

// ListEntityAudit returns the full history of one entity, newest first.
func (db *DB) ListEntityAudit(entityType string, entityID int64) ([]*AuditEntry, error) {
	return db.queryAudit(`SELECT `+auditColumns+` FROM audit_log WHERE entity_type=? AND entity_id=? ORDER BY id DESC`, entityType, entityID)
}

func (db *DB) queryAudit(query string, args ...any) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.OldValue, &e.NewValue, &e.Actor, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
