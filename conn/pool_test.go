package conn

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T, opts Options) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	p := NewPool(db, opts)
	t.Cleanup(p.Close)
	return p, mock
}

func TestCheckoutGrantsExclusiveWorkers(t *testing.T) {
	p, _ := newMockPool(t, Options{Size: 2})
	ctx := context.Background()

	w1, err := p.Checkout(ctx)
	require.NoError(t, err)
	w2, err := p.Checkout(ctx)
	require.NoError(t, err)
	assert.NotSame(t, w1, w2)

	// Pool exhausted: a bounded wait times out instead of blocking forever.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = p.Checkout(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// A timed-out waiter leaves no phantom reservation behind.
	p.Checkin(ctx, w1)
	w3, err := p.Checkout(ctx)
	require.NoError(t, err)
	p.Checkin(ctx, w3)
	p.Checkin(ctx, w2)
}

func TestCheckoutHonorsCancelledContext(t *testing.T) {
	p, _ := newMockPool(t, Options{Size: 1})

	w, err := p.Checkout(context.Background())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Checkout(cancelled)
	require.ErrorIs(t, err, context.Canceled)

	p.Checkin(context.Background(), w)
}

func TestCheckinResetsMidTransactionWorker(t *testing.T) {
	p, mock := newMockPool(t, Options{Size: 1})
	ctx := context.Background()

	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))

	w, err := p.Checkout(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx))

	// Holder leaks the transaction; checkin disconnects rather than reusing
	// stale transaction state.
	p.Checkin(ctx, w)

	again, err := p.Checkout(ctx)
	require.NoError(t, err)
	assert.False(t, again.InTransaction())
	assert.Nil(t, again.handle)
	p.Checkin(ctx, again)
}

func TestClosedPoolRejectsCheckout(t *testing.T) {
	p, _ := newMockPool(t, Options{Size: 1})
	p.Close()

	_, err := p.Checkout(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestSandboxPoolWrapsCheckoutInTransaction(t *testing.T) {
	p, mock := newMockPool(t, Options{Size: 1, Mode: ModeSandbox})
	ctx := context.Background()

	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT relsql_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO posts (title) VALUES (?)").
		WithArgs("draft").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))

	w, err := p.Checkout(ctx)
	require.NoError(t, err)
	assert.False(t, w.InTransaction(), "the sandbox wrapper is not the holder's transaction")

	// The holder's own transaction becomes a savepoint inside the wrapper.
	require.NoError(t, w.Begin(ctx))
	_, err = w.Exec(ctx, "INSERT INTO posts (title) VALUES (?)", "draft")
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))

	// Checkin rolls the wrapper back: nothing persists.
	p.Checkin(ctx, w)
	require.NoError(t, mock.ExpectationsWereMet())
}
