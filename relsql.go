// Package relsql compiles composable query values into dialect-specific SQL
// and executes it through a transactional worker pool.
//
// The pieces compose left to right: the query package builds an immutable
// AST, query/plan validates and normalizes it against schema metadata,
// query/compile renders the normalized AST to SQL text with an ordered
// parameter list, and conn executes that text with nested-transaction
// semantics. PlanAndRender is the one-call form covering the first three.
package relsql

import (
	"fmt"

	"github.com/relsql/relsql/query"
	"github.com/relsql/relsql/query/compile"
	"github.com/relsql/relsql/query/plan"
)

// PlanAndRender normalizes q for the given operation against resolver
// metadata and renders it for the dialect. The returned parameters are in
// placeholder order.
func PlanAndRender(q *query.Query, op query.Op, d compile.Dialect, r query.Resolver) (compile.Result, error) {
	nq, err := plan.Normalize(q, op, r, d)
	if err != nil {
		return compile.Result{}, err
	}
	c := compile.NewCompiler(d)
	switch op {
	case query.All:
		return c.All(nq)
	case query.UpdateAll:
		return c.UpdateAll(nq)
	case query.DeleteAll:
		return c.DeleteAll(nq)
	default:
		return compile.Result{}, fmt.Errorf("relsql: operation %q cannot be rendered from a query", op)
	}
}

// IsInvalidQuery reports whether err is a query construction or planning
// error.
func IsInvalidQuery(err error) bool { return query.IsInvalidQuery(err) }
