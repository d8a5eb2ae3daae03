package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// MaxAuditDetails is the storage limit of audit_log.details in characters.
const MaxAuditDetails = 4000

// DefaultAuditModule tags records written by this loader.
const DefaultAuditModule = "GO_LOADER"

const insertAuditSQL = `INSERT INTO audit_log (id, log_time, usr, module, action, details)
VALUES (nextval('seq_audit_log'), now(), current_user, $1, $2, $3)`

const recentAuditSQL = `SELECT id, log_time, usr, module, action, details
FROM audit_log
WHERE module = $1
ORDER BY id DESC
LIMIT $2`

// AuditEntry is one persisted audit record.
type AuditEntry struct {
	ID      int64     `json:"id"`
	LogTime time.Time `json:"logTime"`
	User    string    `json:"user"`
	Module  string    `json:"module"`
	Action  string    `json:"action"`
	Details string    `json:"details"`
}

// AuditLogger appends pipeline events to audit_log.
// The id comes from seq_audit_log; time and acting user are server-side.
type AuditLogger struct {
	Module string
}

// NewAuditLogger creates a logger tagging records with module.
func NewAuditLogger(module string) AuditLogger {
	if module == "" {
		module = DefaultAuditModule
	}
	return AuditLogger{Module: module}
}

// Log inserts one audit record. details is cut to MaxAuditDetails characters.
func (a AuditLogger) Log(ctx context.Context, db DBTX, action AuditAction, details string) error {
	_, err := db.Exec(ctx, insertAuditSQL, a.Module, string(action), truncateRunes(details, MaxAuditDetails))
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// Recent returns up to limit records of this module, newest first.
func (a AuditLogger) Recent(ctx context.Context, db DBTX, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, recentAuditSQL, a.Module, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AuditEntry, error) {
		var e AuditEntry
		err := row.Scan(&e.ID, &e.LogTime, &e.User, &e.Module, &e.Action, &e.Details)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// bestEffort runs fn inside a savepoint of tx. A failure rolls back to the
// savepoint and is logged as a warning; it never reaches the caller and
// leaves the surrounding transaction usable.
func bestEffort(ctx context.Context, tx DBTX, logger *slog.Logger, what string, fn func() error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT best_effort"); err != nil {
		logger.Warn("cannot write audit log", "event", what, "error", err)
		return
	}
	if err := fn(); err != nil {
		_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT best_effort")
		logger.Warn("cannot write audit log", "event", what, "error", err)
		return
	}
	_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT best_effort")
}
