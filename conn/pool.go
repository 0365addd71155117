package conn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Options configures a pool.
type Options struct {
	// Size is the number of workers. Zero means 1.
	Size int
	// Mode selects raw or sandbox checkin behavior.
	Mode Mode
	// Logger receives reconnect/disconnect events. Nil means slog.Default().
	Logger *slog.Logger
}

// Pool holds independent workers and hands out exclusive use of one per
// checkout. Waiting is cancellation-safe: a caller whose context expires
// while queued leaves no phantom reservation behind.
type Pool struct {
	sem  *semaphore.Weighted
	mode Mode
	log  *slog.Logger

	mu     sync.Mutex
	idle   []*Worker
	closed bool
}

// NewPool creates a pool of opts.Size workers over db.
func NewPool(db *sql.DB, opts Options) *Pool {
	size := opts.Size
	if size <= 0 {
		size = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		mode: opts.Mode,
		log:  logger,
		idle: make([]*Worker, 0, size),
	}
	for i := 0; i < size; i++ {
		p.idle = append(p.idle, NewWorker(db, logger))
	}
	return p
}

// Checkout grants exclusive use of one worker. It blocks until a worker is
// free or ctx is done. In sandbox mode the returned worker already has the
// wrapping transaction open.
func (p *Pool) Checkout(ctx context.Context) (*Worker, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("relsql: checkout: %w", err)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	w := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	p.mu.Unlock()

	if p.mode == ModeSandbox {
		if err := w.Begin(ctx); err != nil {
			p.checkin(w)
			return nil, err
		}
		w.floor = 1
	}
	return w, nil
}

// Checkin returns a worker to the pool. A worker still mid-transaction is
// reset by disconnecting, never by silently committing or reusing stale
// state; in sandbox mode the wrapping transaction is rolled back instead.
func (p *Pool) Checkin(ctx context.Context, w *Worker) {
	if p.mode == ModeSandbox && !w.broken && w.depth > 0 && w.handle != nil {
		if _, err := w.handle.ExecContext(ctx, "ROLLBACK"); err != nil {
			w.breakWorker("sandbox rollback failed", err)
		} else {
			w.depth = 0
			w.floor = 0
			w.aborted = false
		}
	}
	p.checkin(w)
}

func (p *Pool) checkin(w *Worker) {
	w.reset()
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, w)
	} else {
		w.disconnect("pool closed")
	}
	p.mu.Unlock()
	p.sem.Release(1)
}

// Close marks the pool closed and disconnects idle workers. Checked-out
// workers are disconnected as they come back.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, w := range p.idle {
		w.disconnect("pool closed")
	}
	p.idle = nil
	p.log.Debug("pool closed")
}
