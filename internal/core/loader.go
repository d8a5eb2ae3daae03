package core

// loader.go loads one input file into its table.
//
// The whole file runs in one transaction on one connection. Every row gets a
// savepoint so a failed statement does not poison the transaction: invalid
// rows are skipped and audited, while a failed insert rolls back only its own
// row, records DB_ERROR, commits everything staged so far and aborts the file.
// Rows before the failure therefore stay committed; the file is not atomic.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/invload/internal/logging"
	"github.com/jackc/pgx/v5"
)

// DefaultProgressEvery is the row interval of the bind-value progress log.
const DefaultProgressEvery = 20

// LoaderConfig holds File Loader settings.
type LoaderConfig struct {
	AuditModule   string // module tag of audit records
	ProgressEvery int    // log bind values on row 1 and every Nth row; 0 disables
}

// Loader validates and inserts the rows of one file at a time.
type Loader struct {
	connector     Connector
	audit         AuditLogger
	progressEvery int
}

// NewLoader creates a Loader drawing connections from connector.
func NewLoader(connector Connector, cfg LoaderConfig) *Loader {
	return &Loader{
		connector:     connector,
		audit:         NewAuditLogger(cfg.AuditModule),
		progressEvery: cfg.ProgressEvery,
	}
}

// Audit returns the audit logger the loader writes with.
func (l *Loader) Audit() AuditLogger {
	return l.audit
}

// LoadFile loads path into the table of kind and reports good and bad row
// counts. A returned *InsertError means the file was aborted part way; rows
// loaded before it are committed.
func (l *Loader) LoadFile(ctx context.Context, path string, kind TableKind) (FileResult, error) {
	if !kind.Valid() {
		return FileResult{File: path}, fmt.Errorf("unknown table kind %d", int(kind))
	}
	def := kind.Definition()
	start := time.Now()
	res := FileResult{Table: def.Table, File: path}
	logger := logging.WithFields(ctx, "table", kind.String(), "file", path)

	err := l.loadFile(ctx, path, kind, def, &res, logger)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	logger.Info("file load finished", "good", res.Good, "bad", res.Bad,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, kind TableKind, def TableDefinition, res *FileResult, logger *slog.Logger) error {
	sess, err := l.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Release()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	logger.Info("file load started")
	l.writeAudit(ctx, tx, logger, ActionStartFile, fmt.Sprintf("%s file=%s", kind, path))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	src, err := newRowSource(f, def.Columns())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	insertSQL := def.InsertSQL()

	for rowNum := 1; ; rowNum++ {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read row %d: %w", path, rowNum, err)
		}

		if _, err := tx.Exec(ctx, "SAVEPOINT row_load"); err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}

		problems, err := ValidateRow(ctx, tx, kind, row)
		if err != nil {
			return l.abort(ctx, tx, logger, kind, rowNum, "", err)
		}

		var values []any
		if len(problems) == 0 {
			values, err = bindValues(def, row)
			if err != nil {
				problems = append(problems, err.Error())
			}
		}

		if len(problems) > 0 {
			_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT row_load")
			res.Bad++
			logger.Warn("row invalid", "row", rowNum, "errors", problems, "data", map[string]string(row))
			l.writeAudit(ctx, tx, logger, ActionRowInvalid,
				fmt.Sprintf("%s row=%d errors=[%s]", kind, rowNum, strings.Join(problems, "; ")))
			continue
		}

		if l.progressEvery > 0 && (rowNum == 1 || rowNum%l.progressEvery == 0) {
			logger.Info("row bind", "row", rowNum, "bind", formatBind(def, values))
		}

		if _, err := tx.Exec(ctx, insertSQL, values...); err != nil {
			return l.abort(ctx, tx, logger, kind, rowNum, formatBind(def, values), err)
		}
		_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT row_load")
		res.Good++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", def.Table, err)
	}

	l.finish(ctx, sess, logger, kind, res)
	return nil
}

// abort handles a database failure on the current row: it rolls back that
// row, records DB_ERROR, commits what was staged before it and returns the
// fatal error.
func (l *Loader) abort(ctx context.Context, tx pgx.Tx, logger *slog.Logger, kind TableKind, rowNum int, bind string, cause error) error {
	_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT row_load")

	msg := MapDBError(cause)
	logger.Error("insert failed",
		"row", rowNum,
		"bind", bind,
		"code", msg.Code,
		"hint", msg.Action,
		"error", cause,
	)

	l.writeAudit(ctx, tx, logger, ActionDBError,
		fmt.Sprintf("%s row=%d bind=%s err=%v", kind, rowNum, bind, cause))
	if err := tx.Commit(ctx); err != nil {
		logger.Warn("commit after insert failure", "error", err)
	}

	return &InsertError{Table: kind.Definition().Table, Row: rowNum, Bind: bind, Err: cause}
}

// finish records END_FILE in its own transaction after the data commit.
func (l *Loader) finish(ctx context.Context, sess Session, logger *slog.Logger, kind TableKind, res *FileResult) {
	tx, err := sess.Begin(ctx)
	if err != nil {
		logger.Warn("cannot write audit log", "event", ActionEndFile, "error", err)
		return
	}
	defer tx.Rollback(ctx)

	l.writeAudit(ctx, tx, logger, ActionEndFile, fmt.Sprintf("%s good=%d bad=%d", kind, res.Good, res.Bad))
	if err := tx.Commit(ctx); err != nil {
		logger.Warn("cannot write audit log", "event", ActionEndFile, "error", err)
	}
}

func (l *Loader) writeAudit(ctx context.Context, tx DBTX, logger *slog.Logger, action AuditAction, details string) {
	bestEffort(ctx, tx, logger, string(action), func() error {
		return l.audit.Log(ctx, tx, action, details)
	})
}
