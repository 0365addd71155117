// Package conn executes generated SQL against a live backend through a pool
// of single-owner workers. Each worker tracks nested-transaction depth and
// issues BEGIN/SAVEPOINT/COMMIT/ROLLBACK accordingly; execution errors inside
// a transaction put it into an aborted sub-state until rollback, mirroring
// the backend's own behavior.
package conn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Mode selects worker behavior at pool checkin.
type Mode int

const (
	// ModeRaw commits and rolls back as instructed.
	ModeRaw Mode = iota
	// ModeSandbox wraps every checkout in a transaction that is rolled back
	// at checkin, so nothing a holder does is ever persisted. Holder
	// transactions become savepoints inside the wrapper.
	ModeSandbox
)

// Worker owns one backend handle. Exclusivity is granted by pool checkout:
// exactly one holder issues operations at a time, so the worker itself does
// no locking. The handle is established lazily and, outside transactions,
// re-established lazily after a disconnect.
type Worker struct {
	db  *sql.DB
	log *slog.Logger

	handle  *sql.Conn
	depth   int
	floor   int // transaction levels owned by the pool (sandbox wrapper)
	aborted bool
	broken  bool
}

// NewWorker creates a worker over db. A nil logger means slog.Default().
func NewWorker(db *sql.DB, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{db: db, log: logger}
}

// Depth returns the current transaction nesting depth, sandbox wrapper
// excluded.
func (w *Worker) Depth() int { return w.depth - w.floor }

// InTransaction reports whether the holder has an open transaction.
func (w *Worker) InTransaction() bool { return w.depth > w.floor }

func savepointName(depth int) string {
	return fmt.Sprintf("relsql_%d", depth)
}

// Begin opens a transaction. At depth 0 it issues BEGIN; inside a
// transaction it issues a SAVEPOINT instead. A failed begin leaves the
// backend in an ambiguous state, so it breaks the worker.
func (w *Worker) Begin(ctx context.Context) error {
	if w.broken {
		return ErrWorkerBroken
	}
	if w.aborted {
		return ErrTxAborted
	}
	handle, err := w.ensure(ctx)
	if err != nil {
		return err
	}
	stmt := "BEGIN"
	if w.depth > 0 {
		stmt = "SAVEPOINT " + savepointName(w.depth)
	}
	if _, err := handle.ExecContext(ctx, stmt); err != nil {
		w.breakWorker("begin failed", err)
		return fmt.Errorf("relsql: begin: %w", err)
	}
	w.depth++
	return nil
}

// Commit closes the innermost transaction level. The outermost level issues
// COMMIT; inner levels are local no-ops because savepoints merge into the
// enclosing transaction.
func (w *Worker) Commit(ctx context.Context) error {
	if w.broken {
		return ErrWorkerBroken
	}
	if w.depth <= w.floor {
		return ErrNoTransaction
	}
	if w.aborted {
		return ErrTxAborted
	}
	if w.depth == 1 {
		handle, err := w.ensure(ctx)
		if err != nil {
			return err
		}
		if _, err := handle.ExecContext(ctx, "COMMIT"); err != nil {
			return w.statementError(fmt.Errorf("relsql: commit: %w", err))
		}
	}
	w.depth--
	return nil
}

// Rollback undoes the innermost transaction level: ROLLBACK at the outermost
// level, ROLLBACK TO SAVEPOINT inside. Either clears the aborted sub-state at
// that level, leaving the session usable.
func (w *Worker) Rollback(ctx context.Context) error {
	if w.broken {
		return ErrWorkerBroken
	}
	if w.depth <= w.floor {
		return ErrNoTransaction
	}
	handle, err := w.ensure(ctx)
	if err != nil {
		return err
	}
	stmt := "ROLLBACK"
	if w.depth > 1 {
		stmt = "ROLLBACK TO SAVEPOINT " + savepointName(w.depth-1)
	}
	if _, err := handle.ExecContext(ctx, stmt); err != nil {
		return w.statementError(fmt.Errorf("relsql: rollback: %w", err))
	}
	w.depth--
	w.aborted = false
	return nil
}

// Exec runs a statement and returns its result. Constraint violations come
// back as *ConstraintError.
func (w *Worker) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	handle, err := w.ready(ctx)
	if err != nil {
		return nil, err
	}
	res, err := handle.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, w.statementError(err)
	}
	return res, nil
}

// Query runs a query and returns its rows. The holder must close the rows
// before issuing the next operation.
func (w *Worker) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	handle, err := w.ready(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, w.statementError(err)
	}
	return rows, nil
}

// QueryRow runs a query expected to return at most one row. A failing
// statement is caught here, not at Scan: the error feeds the same state
// transitions as Exec and Query.
func (w *Worker) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	handle, err := w.ready(ctx)
	if err != nil {
		return nil, err
	}
	row := handle.QueryRowContext(ctx, query, args...)
	if err := row.Err(); err != nil {
		return nil, w.statementError(err)
	}
	return row, nil
}

func (w *Worker) ready(ctx context.Context) (*sql.Conn, error) {
	if w.broken {
		return nil, ErrWorkerBroken
	}
	if w.aborted {
		return nil, ErrTxAborted
	}
	return w.ensure(ctx)
}

// ensure returns the live handle, establishing one when absent. Outside a
// transaction a dropped handle is replaced here, invisibly to callers.
func (w *Worker) ensure(ctx context.Context) (*sql.Conn, error) {
	if w.handle != nil {
		return w.handle, nil
	}
	handle, err := w.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("relsql: connect: %w", err)
	}
	w.log.Debug("connection established")
	w.handle = handle
	return handle, nil
}

// statementError classifies an execution failure. A lost connection outside
// a transaction is dropped silently for lazy reconnect; inside a transaction
// it breaks the worker and surfaces ErrConnLost, never a silent reconnect.
// Other failures inside a transaction flip the aborted sub-state.
func (w *Worker) statementError(err error) error {
	if isConnLost(err) {
		if w.depth > 0 {
			w.breakWorker("connection lost mid-transaction", err)
			return ErrConnLost
		}
		w.disconnect("connection lost")
		return fmt.Errorf("relsql: connection lost: %w", err)
	}
	if w.depth > 0 {
		w.aborted = true
	}
	return translateError(err)
}

func isConnLost(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func (w *Worker) breakWorker(reason string, err error) {
	w.broken = true
	w.disconnect(reason)
	w.log.Warn("worker broken", "reason", reason, "error", err)
}

func (w *Worker) disconnect(reason string) {
	if w.handle == nil {
		return
	}
	// Raw close: the handle may hold transaction state that must not be
	// returned to database/sql's idle pool.
	_ = w.handle.Raw(func(any) error { return driver.ErrBadConn })
	_ = w.handle.Close()
	w.handle = nil
	w.log.Debug("connection dropped", "reason", reason)
}

// reset prepares the worker for the next holder. A worker still
// mid-transaction (holder died or leaked) or broken is disconnected rather
// than reused with stale state.
func (w *Worker) reset() {
	if w.depth > 0 || w.aborted || w.broken {
		w.disconnect("reset with open state")
	}
	w.depth = 0
	w.floor = 0
	w.aborted = false
	w.broken = false
}
