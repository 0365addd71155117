package conn

import (
	"errors"
	"fmt"
)

var (
	// ErrTxAborted rejects statements issued inside a transaction after an
	// execution error, until the caller rolls back.
	ErrTxAborted = errors.New("relsql: transaction is aborted, roll back before issuing statements")

	// ErrConnLost reports a backend handle dying inside an open transaction.
	// The transactional state is unrecoverable and the worker is broken.
	ErrConnLost = errors.New("relsql: connection lost inside a transaction")

	// ErrNoTransaction reports commit or rollback without an open transaction.
	ErrNoTransaction = errors.New("relsql: no transaction is open")

	// ErrWorkerBroken reports use of a worker after a failed begin or a
	// mid-transaction disconnect. Check it in to reset it.
	ErrWorkerBroken = errors.New("relsql: worker is broken, check it in to reset")

	// ErrPoolClosed reports checkout from a closed pool.
	ErrPoolClosed = errors.New("relsql: pool is closed")
)

// ConstraintKind classifies a violated database constraint.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintExclusion  ConstraintKind = "exclusion"
)

// ConstraintError is a backend constraint violation translated into the
// driver-independent taxonomy. The original driver error is wrapped.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string // constraint name when the backend reports one
	cause      error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("relsql: %s constraint %q violated: %v", e.Kind, e.Constraint, e.cause)
	}
	return fmt.Sprintf("relsql: %s constraint violated: %v", e.Kind, e.cause)
}

func (e *ConstraintError) Unwrap() error { return e.cause }

// IsConstraintError reports whether err is a translated constraint violation,
// returning it when so.
func IsConstraintError(err error) (*ConstraintError, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
