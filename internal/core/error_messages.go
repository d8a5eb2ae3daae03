package core

// error_messages.go classifies database failures for the fatal-insert dump.
//
// Codes give operators something short to grep for:
//
//	DB001 - Duplicate key: a row with this identifier already exists
//	DB002 - Foreign key: the database rejected a reference
//	DB003 - Not null: a required column bound NULL
//	DB004 - Bad value: a value did not fit its column
//	DB005 - Connection: the database connection failed
//	DB006 - Timeout: the statement was cancelled or timed out
//	DB007 - Deadlock or serialization failure
//	DB000 - Anything else

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage is an operator-facing description of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Short reference code
}

var (
	msgDuplicate  = UserMessage{Code: "DB001", Message: "A row with this identifier already exists", Action: "Clear the table or remove the row before re-running; loads are not idempotent"}
	msgForeignKey = UserMessage{Code: "DB002", Message: "Referenced record does not exist", Action: "Load parent tables first"}
	msgNotNull    = UserMessage{Code: "DB003", Message: "A required column is empty", Action: "Fill the column in the input file"}
	msgBadValue   = UserMessage{Code: "DB004", Message: "A value does not fit its column", Action: "Check lengths and number ranges in the input file"}
	msgConnection = UserMessage{Code: "DB005", Message: "Database connection failed", Action: "Check database availability; the next cycle retries"}
	msgTimeout    = UserMessage{Code: "DB006", Message: "Operation timed out or was cancelled", Action: "Retry when the database is less busy"}
	msgConflict   = UserMessage{Code: "DB007", Message: "Database was busy with conflicting operations", Action: "Retry the load"}
	msgUnknown    = UserMessage{Code: "DB000", Message: "Unexpected database error", Action: "See the error text in the log"}
)

// MapDBError classifies err by PostgreSQL SQLSTATE when available, falling
// back to message patterns for errors that never reached the server.
func MapDBError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return msgDuplicate
		case pgErr.Code == "23503":
			return msgForeignKey
		case pgErr.Code == "23502":
			return msgNotNull
		case pgErr.Code == "40P01", pgErr.Code == "40001":
			return msgConflict
		case pgErr.Code == "57014":
			return msgTimeout
		case strings.HasPrefix(pgErr.Code, "22"):
			return msgBadValue
		case strings.HasPrefix(pgErr.Code, "08"):
			return msgConnection
		}
		return msgUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return msgTimeout
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "duplicate key"):
		return msgDuplicate
	case strings.Contains(lower, "foreign key"):
		return msgForeignKey
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "conn closed"):
		return msgConnection
	case strings.Contains(lower, "timeout"):
		return msgTimeout
	case strings.Contains(lower, "deadlock"):
		return msgConflict
	}
	return msgUnknown
}

// InsertError is a database failure while loading a row that passed
// validation, either on the insert or on an existence query. It is fatal to
// the file and to the rest of the cycle.
type InsertError struct {
	Table string
	Row   int    // 1-based data row
	Bind  string // rendered bound values, empty if the row never reached the insert
	Err   error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert into %s failed at row %d: %v", e.Table, e.Row, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }
