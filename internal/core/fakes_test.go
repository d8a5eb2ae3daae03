package core

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execCall is one statement seen by fakeDB.
type execCall struct {
	SQL  string
	Args []any
}

// fakeDB records statements and answers existence queries in memory.
// It stands in for a pool, a session and its transactions.
type fakeDB struct {
	execs     []execCall
	execErr   func(sql string, args []any) error
	counts    func(sql string, id int64) (int64, error)
	queries   []string
	begins    int
	commits   int
	rollbacks int
	beginErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{SQL: sql, Args: args})
	if db.execErr != nil {
		if err := db.execErr(sql, args); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("fakeDB: Query not supported")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	if db.counts == nil {
		return fakeRow{n: 1}
	}
	id, _ := args[0].(int64)
	n, err := db.counts(sql, id)
	return fakeRow{n: n, err: err}
}

// Connect satisfies Connector.
func (db *fakeDB) Connect(context.Context) (Session, error) {
	return fakeSession{db: db}, nil
}

// audits returns action and details of every audit insert, in order.
func (db *fakeDB) audits() [][2]string {
	var out [][2]string
	for _, e := range db.execs {
		if e.SQL == insertAuditSQL {
			out = append(out, [2]string{e.Args[1].(string), e.Args[2].(string)})
		}
	}
	return out
}

// auditActions returns only the action tags of audits.
func (db *fakeDB) auditActions() []string {
	var out []string
	for _, a := range db.audits() {
		out = append(out, a[0])
	}
	return out
}

// statements returns every executed statement starting with prefix.
func (db *fakeDB) statements(prefix string) []execCall {
	var out []execCall
	for _, e := range db.execs {
		if strings.HasPrefix(e.SQL, prefix) {
			out = append(out, e)
		}
	}
	return out
}

type fakeRow struct {
	n   int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.n
	return nil
}

type fakeSession struct {
	db *fakeDB
}

func (s fakeSession) Begin(context.Context) (pgx.Tx, error) {
	if s.db.beginErr != nil {
		return nil, s.db.beginErr
	}
	s.db.begins++
	return &fakeTx{db: s.db}, nil
}

func (s fakeSession) Release() {}

// fakeTx routes statements to its fakeDB. Methods the loader never calls
// are left to the nil embedded pgx.Tx.
type fakeTx struct {
	pgx.Tx
	db     *fakeDB
	closed bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.db.Exec(ctx, sql, args...)
}

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return tx.db.Query(ctx, sql, args...)
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return tx.db.QueryRow(ctx, sql, args...)
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.rollbacks++
	return nil
}

// failConnector refuses every connection.
type failConnector struct {
	err error
}

func (c failConnector) Connect(context.Context) (Session, error) {
	return nil, c.err
}
