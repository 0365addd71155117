package conn

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockWorker(t *testing.T) (*Worker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWorker(db, nil), mock
}

func expectExec(mock sqlmock.Sqlmock, stmt string) {
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestNestedTransactionStatementSequence(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	// Three nested begins and three commits issue exactly one BEGIN, two
	// SAVEPOINTs, and one COMMIT, in that order.
	expectExec(mock, "BEGIN")
	expectExec(mock, "SAVEPOINT relsql_1")
	expectExec(mock, "SAVEPOINT relsql_2")
	expectExec(mock, "COMMIT")

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Begin(ctx))
	}
	assert.Equal(t, 3, w.Depth())
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Commit(ctx))
	}
	assert.Equal(t, 0, w.Depth())
	assert.False(t, w.InTransaction())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedRollbackTargetsSavepoint(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	expectExec(mock, "SAVEPOINT relsql_1")
	expectExec(mock, "ROLLBACK TO SAVEPOINT relsql_1")
	expectExec(mock, "ROLLBACK")

	require.NoError(t, w.Begin(ctx))
	require.NoError(t, w.Begin(ctx))
	require.NoError(t, w.Rollback(ctx))
	assert.Equal(t, 1, w.Depth())
	require.NoError(t, w.Rollback(ctx))
	assert.Equal(t, 0, w.Depth())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitWithoutTransaction(t *testing.T) {
	w, _ := newMockWorker(t)
	assert.ErrorIs(t, w.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, w.Rollback(context.Background()), ErrNoTransaction)
}

func TestStatementErrorAbortsTransactionUntilRollback(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	mock.ExpectExec("UPDATE posts SET views = 1").WillReturnError(errors.New("syntax error"))
	expectExec(mock, "ROLLBACK")
	expectExec(mock, "SELECT 1")

	require.NoError(t, w.Begin(ctx))
	_, err := w.Exec(ctx, "UPDATE posts SET views = 1")
	require.Error(t, err)

	// Every statement is rejected locally until rollback, including commit.
	_, err = w.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrTxAborted)
	assert.ErrorIs(t, w.Commit(ctx), ErrTxAborted)
	assert.ErrorIs(t, w.Begin(ctx), ErrTxAborted)

	// Rollback clears the aborted sub-state and the session stays usable.
	require.NoError(t, w.Rollback(ctx))
	_, err = w.Exec(ctx, "SELECT 1")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRowErrorAbortsTransaction(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	stmt := "INSERT INTO posts (title) VALUES ($1) RETURNING id"
	expectExec(mock, "BEGIN")
	mock.ExpectQuery(stmt).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "posts_title_key"})
	expectExec(mock, "ROLLBACK")

	require.NoError(t, w.Begin(ctx))

	// The failure surfaces at the call, translated, not at Scan.
	_, err := w.QueryRow(ctx, stmt, "hello")
	require.Error(t, err)
	ce, ok := IsConstraintError(err)
	require.True(t, ok)
	assert.Equal(t, ConstraintUnique, ce.Kind)

	// And it aborts the transaction like any other failing statement.
	_, err = w.QueryRow(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrTxAborted)
	assert.ErrorIs(t, w.Commit(ctx), ErrTxAborted)

	require.NoError(t, w.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavepointRollbackClearsAbortedState(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	expectExec(mock, "SAVEPOINT relsql_1")
	mock.ExpectExec("UPDATE posts SET views = 1").WillReturnError(errors.New("deadlock"))
	expectExec(mock, "ROLLBACK TO SAVEPOINT relsql_1")
	expectExec(mock, "SELECT 1")
	expectExec(mock, "COMMIT")

	require.NoError(t, w.Begin(ctx))
	require.NoError(t, w.Begin(ctx))
	_, err := w.Exec(ctx, "UPDATE posts SET views = 1")
	require.Error(t, err)

	// Rolling back the inner savepoint keeps the outer transaction usable.
	require.NoError(t, w.Rollback(ctx))
	_, err = w.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionLossInsideTransactionBreaksWorker(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	mock.ExpectExec("SELECT 1").WillReturnError(driver.ErrBadConn)

	require.NoError(t, w.Begin(ctx))
	_, err := w.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrConnLost)

	// The worker never silently reconnects mid-transaction.
	_, err = w.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrWorkerBroken)
	assert.ErrorIs(t, w.Begin(ctx), ErrWorkerBroken)

	// Checkin-style reset restores it.
	w.reset()
	expectExec(mock, "SELECT 1")
	_, err = w.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
}

func TestConnectionLossOutsideTransactionReconnectsLazily(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	mock.ExpectExec("SELECT 1").WillReturnError(driver.ErrBadConn)
	_, err := w.Exec(ctx, "SELECT 1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConnLost)
	assert.Nil(t, w.handle)

	// The next operation gets a fresh handle without caller involvement.
	expectExec(mock, "SELECT 1")
	_, err = w.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
}

func TestFailedBeginBreaksWorker(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	mock.ExpectExec("BEGIN").WillReturnError(errors.New("backend whimpered"))

	require.Error(t, w.Begin(ctx))
	assert.ErrorIs(t, w.Begin(ctx), ErrWorkerBroken)
}

func TestResetDisconnectsMidTransactionWorker(t *testing.T) {
	w, mock := newMockWorker(t)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	require.NoError(t, w.Begin(ctx))
	require.True(t, w.InTransaction())

	w.reset()
	assert.Equal(t, 0, w.Depth())
	assert.Nil(t, w.handle)
}
