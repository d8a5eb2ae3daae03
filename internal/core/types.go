package core

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Session is a single database connection held for the whole of one file load.
// Satisfied by *pgxpool.Conn.
type Session interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Connector hands out sessions.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// PoolConnector acquires sessions from a pgx connection pool.
type PoolConnector struct {
	Pool *pgxpool.Pool
}

// Connect acquires one connection from the pool.
func (c PoolConnector) Connect(ctx context.Context) (Session, error) {
	conn, err := c.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Row holds the expected columns of one input line, keyed by column name.
// Columns missing from the file header are absent.
type Row map[string]string

// Value returns the trimmed value of col, or "" when the column is absent.
func (r Row) Value(col string) string {
	return strings.TrimSpace(r[col])
}

// AuditAction is the action tag of an audit record.
type AuditAction string

const (
	ActionStartFile  AuditAction = "START_FILE"
	ActionRowInvalid AuditAction = "ROW_INVALID"
	ActionDBError    AuditAction = "DB_ERROR"
	ActionEndFile    AuditAction = "END_FILE"
)

// FileResult is the outcome of loading one input file.
type FileResult struct {
	Table    string        `json:"table"`
	File     string        `json:"file"`
	Good     int           `json:"good"`
	Bad      int           `json:"bad"`
	Skipped  bool          `json:"skipped,omitempty"` // file was not present
	Duration time.Duration `json:"durationNs"`
	Error    string        `json:"error,omitempty"`
}

// CycleResult is the outcome of one pass over the job list.
type CycleResult struct {
	RunID      string       `json:"runId"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Files      []FileResult `json:"files"`
	Error      string       `json:"error,omitempty"`
}

// Totals sums good and bad rows across all files of the cycle.
func (c CycleResult) Totals() (good, bad int) {
	for _, f := range c.Files {
		good += f.Good
		bad += f.Bad
	}
	return good, bad
}
