// Package compile turns normalized query ASTs into dialect-specific SQL
// text. Generation is pure: no I/O, no shared state across calls, and
// placeholders are emitted in exactly the order the parameter list was built
// during escaping. Malformed input (a surface node, an unplanned query) is a
// programming error and surfaces as ErrMalformed, never as a user error.
package compile

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/relsql/relsql/query"
)

// ErrMalformed marks internal-invariant violations: an AST that was never
// normalized, or canonical-set violations inside one. These are defects in
// the calling code, not recoverable user errors.
var ErrMalformed = errors.New("relsql: malformed query reached the generator")

// Result holds the output of compiling a query to SQL.
type Result struct {
	// SQL is the generated statement text.
	SQL string

	// Params are the parameter values in placeholder order. Placeholders
	// read left-to-right in SQL correspond exactly to this list, with no
	// gaps or reordering.
	Params []query.Param
}

// Values returns the raw parameter values in placeholder order.
func (r Result) Values() []any {
	vals := make([]any, len(r.Params))
	for i, p := range r.Params {
		vals[i] = p.Value
	}
	return vals
}

// Compiler compiles normalized ASTs to SQL for a specific dialect.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a compiler for the given dialect.
func NewCompiler(dialect Dialect) *Compiler {
	return &Compiler{dialect: dialect}
}

// All renders a SELECT statement.
func (c *Compiler) All(q *query.Query) (Result, error) {
	st, err := c.newState(q)
	if err != nil {
		return Result{}, err
	}
	if err := st.writeQuery(scope{q: q, aliases: aliasesFor(q)}); err != nil {
		return Result{}, err
	}
	return st.result(), nil
}

// UpdateAll renders an UPDATE statement from the query's set/inc
// instructions. With no filters the statement has no WHERE clause and
// affects every row.
func (c *Compiler) UpdateAll(q *query.Query) (Result, error) {
	st, err := c.newState(q)
	if err != nil {
		return Result{}, err
	}
	if err := st.writeUpdateAll(scope{q: q, aliases: aliasesFor(q)}); err != nil {
		return Result{}, err
	}
	return st.result(), nil
}

// DeleteAll renders a DELETE statement.
func (c *Compiler) DeleteAll(q *query.Query) (Result, error) {
	st, err := c.newState(q)
	if err != nil {
		return Result{}, err
	}
	if err := st.writeDeleteAll(scope{q: q, aliases: aliasesFor(q)}); err != nil {
		return Result{}, err
	}
	return st.result(), nil
}

// DefaultValue renders as DEFAULT in an insert row.
type DefaultValue struct{}

// Insert renders an INSERT statement from already-planned columns and value
// rows. Every value becomes one parameter, in row-major order; use
// DefaultValue{} for columns that should take their default.
func (c *Compiler) Insert(table string, cols []string, rows [][]any, returning []string) (Result, error) {
	if len(cols) == 0 || len(rows) == 0 {
		return Result{}, fmt.Errorf("%w: insert requires columns and at least one row", ErrMalformed)
	}
	if len(returning) > 0 && !c.dialect.SupportsReturning() {
		return Result{}, fmt.Errorf("relsql: %s does not support RETURNING", c.dialect.Name())
	}

	st := &state{d: c.dialect}
	st.b.WriteString("INSERT INTO ")
	st.b.WriteString(c.dialect.QuoteIdentifier(table))
	st.b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			st.b.WriteString(", ")
		}
		st.b.WriteString(c.dialect.QuoteIdentifier(col))
	}
	st.b.WriteString(") VALUES ")
	for ri, row := range rows {
		if len(row) != len(cols) {
			return Result{}, fmt.Errorf("%w: insert row %d has %d values for %d columns", ErrMalformed, ri, len(row), len(cols))
		}
		if ri > 0 {
			st.b.WriteString(", ")
		}
		st.b.WriteString("(")
		for vi, v := range row {
			if vi > 0 {
				st.b.WriteString(", ")
			}
			if _, ok := v.(DefaultValue); ok {
				st.b.WriteString("DEFAULT")
				continue
			}
			st.params = append(st.params, query.Param{Value: v, Type: query.TypeAny})
			st.b.WriteString(c.dialect.Placeholder(len(st.params)))
		}
		st.b.WriteString(")")
	}
	if len(returning) > 0 {
		st.b.WriteString(" RETURNING ")
		for i, col := range returning {
			if i > 0 {
				st.b.WriteString(", ")
			}
			st.b.WriteString(c.dialect.QuoteIdentifier(col))
		}
	}
	return st.result(), nil
}

func (c *Compiler) newState(q *query.Query) (*state, error) {
	if q == nil || q.Err() != nil || !q.Normalized() {
		return nil, fmt.Errorf("%w: query was not normalized", ErrMalformed)
	}
	return &state{d: c.dialect}, nil
}

// =============================================================================
// Generation state
// =============================================================================

// state accumulates SQL text and the final parameter list. Nested queries
// (CTEs, subqueries) share the state, so placeholder numbering stays correct
// across query boundaries.
type state struct {
	d      Dialect
	b      strings.Builder
	params []query.Param
}

// scope is the per-query rendering context: the query whose parameter list
// positional placeholders resolve against, and the alias of each binding.
type scope struct {
	q       *query.Query
	aliases []string
}

func (st *state) result() Result {
	return Result{SQL: st.b.String(), Params: st.params}
}

// aliasesFor derives the table alias of each binding: first letter of the
// table name plus the binding index, e.g. posts at binding 0 becomes p0.
func aliasesFor(q *query.Query) []string {
	aliases := make([]string, q.NumSources())
	for i := range aliases {
		table := q.SourceAt(i).Table
		letter := "t"
		if table != "" {
			r := strings.ToLower(table[:1])
			if r[0] >= 'a' && r[0] <= 'z' {
				letter = r
			}
		}
		aliases[i] = letter + strconv.Itoa(i)
	}
	return aliases
}

// =============================================================================
// SELECT
// =============================================================================

// writeQuery renders a full SELECT, including leading CTEs. Used for the
// top-level query and, recursively, for subqueries.
func (st *state) writeQuery(sc scope) error {
	if err := st.writeCTEs(sc); err != nil {
		return err
	}

	st.b.WriteString("SELECT ")
	if d := sc.q.Distincts; d != nil {
		st.b.WriteString("DISTINCT ")
		if len(d.On) > 0 {
			st.b.WriteString("ON (")
			if err := st.writeExprList(sc, d.On); err != nil {
				return err
			}
			st.b.WriteString(") ")
		}
	}
	if err := st.writeProjection(sc); err != nil {
		return err
	}

	st.b.WriteString(" FROM ")
	st.writeSource(sc, 0)

	if err := st.writeJoins(sc); err != nil {
		return err
	}
	if err := st.writeWheres(sc, sc.q.Wheres); err != nil {
		return err
	}

	if len(sc.q.GroupBys) > 0 {
		st.b.WriteString(" GROUP BY ")
		if err := st.writeExprList(sc, sc.q.GroupBys); err != nil {
			return err
		}
	}
	if len(sc.q.Havings) > 0 {
		st.b.WriteString(" HAVING ")
		if err := st.writeConjunction(sc, sc.q.Havings); err != nil {
			return err
		}
	}
	if err := st.writeWindows(sc); err != nil {
		return err
	}
	if err := st.writeOrderBy(sc, sc.q.OrderBys); err != nil {
		return err
	}
	if sc.q.LimitExpr != nil {
		st.b.WriteString(" LIMIT ")
		if err := st.writeExpr(sc, sc.q.LimitExpr); err != nil {
			return err
		}
	}
	if sc.q.OffsetExpr != nil {
		st.b.WriteString(" OFFSET ")
		if err := st.writeExpr(sc, sc.q.OffsetExpr); err != nil {
			return err
		}
	}
	if sc.q.LockClause != "" {
		st.b.WriteString(" ")
		st.b.WriteString(sc.q.LockClause)
	}
	return nil
}

func (st *state) writeProjection(sc scope) error {
	s := sc.q.Selects
	if s == nil {
		st.b.WriteString(sc.aliases[0])
		st.b.WriteString(".*")
		return nil
	}
	switch s.Kind {
	case query.SelectExprShape:
		return st.writeExpr(sc, s.Expr)
	case query.SelectTake, query.SelectMap, query.SelectStruct:
		if s.Binding >= len(sc.aliases) || len(s.Fields) == 0 {
			return fmt.Errorf("%w: invalid select shape", ErrMalformed)
		}
		for i, f := range s.Fields {
			if i > 0 {
				st.b.WriteString(", ")
			}
			st.b.WriteString(sc.aliases[s.Binding])
			st.b.WriteString(".")
			st.b.WriteString(st.d.QuoteIdentifier(f))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown select kind %d", ErrMalformed, s.Kind)
	}
}

func (st *state) writeSource(sc scope, binding int) {
	src := sc.q.SourceAt(binding)
	st.b.WriteString(st.d.QuoteIdentifier(src.Table))
	st.b.WriteString(" AS ")
	st.b.WriteString(sc.aliases[binding])
}

var joinSQL = map[query.JoinKind]string{
	query.InnerJoin: "INNER JOIN",
	query.LeftJoin:  "LEFT OUTER JOIN",
	query.RightJoin: "RIGHT OUTER JOIN",
	query.FullJoin:  "FULL OUTER JOIN",
	query.CrossJoin: "CROSS JOIN",
}

func (st *state) writeJoins(sc scope) error {
	for i, j := range sc.q.Joins {
		kw, ok := joinSQL[j.Kind]
		if !ok {
			return fmt.Errorf("%w: unknown join kind %q", ErrMalformed, j.Kind)
		}
		st.b.WriteString(" ")
		st.b.WriteString(kw)
		st.b.WriteString(" ")
		st.writeSource(sc, i+1)
		if j.Kind == query.CrossJoin {
			continue
		}
		if j.On == nil {
			return fmt.Errorf("%w: %s join without ON condition", ErrMalformed, j.Kind)
		}
		st.b.WriteString(" ON ")
		if err := st.writeExpr(sc, j.On); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) writeWheres(sc scope, wheres []query.Expr) error {
	if len(wheres) == 0 {
		return nil
	}
	st.b.WriteString(" WHERE ")
	return st.writeConjunction(sc, wheres)
}

// writeConjunction combines accumulated filters with AND in call order.
func (st *state) writeConjunction(sc scope, exprs []query.Expr) error {
	for i, e := range exprs {
		if i > 0 {
			st.b.WriteString(" AND ")
		}
		if err := st.writeExpr(sc, e); err != nil {
			return err
		}
	}
	return nil
}

var directionSQL = map[query.Direction]string{
	query.Asc:            "ASC",
	query.Desc:           "DESC",
	query.AscNullsFirst:  "ASC NULLS FIRST",
	query.AscNullsLast:   "ASC NULLS LAST",
	query.DescNullsFirst: "DESC NULLS FIRST",
	query.DescNullsLast:  "DESC NULLS LAST",
}

func (st *state) writeOrderBy(sc scope, orders []query.OrderExpr) error {
	if len(orders) == 0 {
		return nil
	}
	st.b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			st.b.WriteString(", ")
		}
		if err := st.writeExpr(sc, o.Expr); err != nil {
			return err
		}
		dir, ok := directionSQL[o.Dir]
		if !ok {
			return fmt.Errorf("%w: unknown order direction %q", ErrMalformed, o.Dir)
		}
		st.b.WriteString(" ")
		st.b.WriteString(dir)
	}
	return nil
}

func (st *state) writeWindows(sc scope) error {
	if len(sc.q.Windows) == 0 {
		return nil
	}
	st.b.WriteString(" WINDOW ")
	for i, w := range sc.q.Windows {
		if i > 0 {
			st.b.WriteString(", ")
		}
		st.b.WriteString(st.d.QuoteIdentifier(w.Name))
		st.b.WriteString(" AS (")
		wrote := false
		if len(w.PartitionBy) > 0 {
			st.b.WriteString("PARTITION BY ")
			if err := st.writeExprList(sc, w.PartitionBy); err != nil {
				return err
			}
			wrote = true
		}
		if len(w.OrderBy) > 0 {
			if wrote {
				st.b.WriteString(" ")
			}
			st.b.WriteString("ORDER BY ")
			for j, o := range w.OrderBy {
				if j > 0 {
					st.b.WriteString(", ")
				}
				if err := st.writeExpr(sc, o.Expr); err != nil {
					return err
				}
				st.b.WriteString(" ")
				st.b.WriteString(directionSQL[o.Dir])
			}
			wrote = true
		}
		if w.Frame != "" {
			if wrote {
				st.b.WriteString(" ")
			}
			st.b.WriteString(w.Frame)
		}
		st.b.WriteString(")")
	}
	return nil
}

func (st *state) writeCTEs(sc scope) error {
	if len(sc.q.CTEs) == 0 {
		return nil
	}
	st.b.WriteString("WITH ")
	for _, c := range sc.q.CTEs {
		if c.Recursive {
			st.b.WriteString("RECURSIVE ")
			break
		}
	}
	for i, c := range sc.q.CTEs {
		if i > 0 {
			st.b.WriteString(", ")
		}
		st.b.WriteString(st.d.QuoteIdentifier(c.Name))
		st.b.WriteString(" AS (")
		if err := st.writeQuery(scope{q: c.Query, aliases: aliasesFor(c.Query)}); err != nil {
			return err
		}
		st.b.WriteString(")")
	}
	st.b.WriteString(" ")
	return nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

func (st *state) writeUpdateAll(sc scope) error {
	if err := st.writeCTEs(sc); err != nil {
		return err
	}
	q := sc.q

	style := st.d.UpdateJoinStyle()
	if len(q.Joins) > 0 && style == UpdateJoinNone {
		return fmt.Errorf("%w: %s update_all cannot carry joins", ErrMalformed, st.d.Name())
	}

	st.b.WriteString("UPDATE ")
	st.writeSource(sc, 0)

	// MySQL interleaves the joins between the target table and SET.
	onConds := make([]query.Expr, 0, len(q.Joins))
	if style == UpdateJoinJoin {
		if err := st.writeJoins(sc); err != nil {
			return err
		}
	} else {
		for _, j := range q.Joins {
			if j.Kind != query.InnerJoin {
				return fmt.Errorf("%w: %s update_all supports only inner joins", ErrMalformed, st.d.Name())
			}
			onConds = append(onConds, j.On)
		}
	}

	st.b.WriteString(" SET ")
	for i, u := range q.Updates {
		if i > 0 {
			st.b.WriteString(", ")
		}
		// In the interleaved-join form the target must be qualified: a joined
		// table may carry a column of the same name.
		if style == UpdateJoinJoin && len(q.Joins) > 0 {
			st.b.WriteString(sc.aliases[0])
			st.b.WriteString(".")
		}
		st.b.WriteString(st.d.QuoteIdentifier(u.Field))
		st.b.WriteString(" = ")
		switch u.Kind {
		case query.UpdateSet:
			if err := st.writeExpr(sc, u.Value); err != nil {
				return err
			}
		case query.UpdateInc:
			st.b.WriteString(sc.aliases[0])
			st.b.WriteString(".")
			st.b.WriteString(st.d.QuoteIdentifier(u.Field))
			st.b.WriteString(" + (")
			if err := st.writeExpr(sc, u.Value); err != nil {
				return err
			}
			st.b.WriteString(")")
		default:
			return fmt.Errorf("%w: unknown update kind %q", ErrMalformed, u.Kind)
		}
	}

	if style == UpdateJoinFrom && len(q.Joins) > 0 {
		st.b.WriteString(" FROM ")
		for i := range q.Joins {
			if i > 0 {
				st.b.WriteString(", ")
			}
			st.writeSource(sc, i+1)
		}
	}

	return st.writeWheres(sc, append(onConds, q.Wheres...))
}

func (st *state) writeDeleteAll(sc scope) error {
	if err := st.writeCTEs(sc); err != nil {
		return err
	}
	q := sc.q

	style := st.d.DeleteJoinStyle()
	if len(q.Joins) > 0 && style == DeleteJoinNone {
		return fmt.Errorf("%w: %s delete_all cannot carry joins", ErrMalformed, st.d.Name())
	}

	onConds := make([]query.Expr, 0, len(q.Joins))
	switch {
	case len(q.Joins) > 0 && style == DeleteJoinJoin:
		st.b.WriteString("DELETE ")
		st.b.WriteString(sc.aliases[0])
		st.b.WriteString(" FROM ")
		st.writeSource(sc, 0)
		if err := st.writeJoins(sc); err != nil {
			return err
		}
	case len(q.Joins) > 0 && style == DeleteJoinUsing:
		st.b.WriteString("DELETE FROM ")
		st.writeSource(sc, 0)
		st.b.WriteString(" USING ")
		for i, j := range q.Joins {
			if j.Kind != query.InnerJoin {
				return fmt.Errorf("%w: %s delete_all supports only inner joins", ErrMalformed, st.d.Name())
			}
			if i > 0 {
				st.b.WriteString(", ")
			}
			st.writeSource(sc, i+1)
			onConds = append(onConds, j.On)
		}
	default:
		st.b.WriteString("DELETE FROM ")
		st.writeSource(sc, 0)
	}

	return st.writeWheres(sc, append(onConds, q.Wheres...))
}

// =============================================================================
// Expressions
// =============================================================================

func (st *state) writeExprList(sc scope, exprs []query.Expr) error {
	for i, e := range exprs {
		if i > 0 {
			st.b.WriteString(", ")
		}
		if err := st.writeExpr(sc, e); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) writeExpr(sc scope, expr query.Expr) error {
	switch e := expr.(type) {
	case query.LiteralExpr:
		return st.writeLiteral(e.Value)

	case query.ParamExpr:
		if e.Pos < 0 || e.Pos >= len(sc.q.Params) {
			return fmt.Errorf("%w: parameter %d out of range", ErrMalformed, e.Pos)
		}
		st.params = append(st.params, sc.q.Params[e.Pos])
		st.b.WriteString(st.d.Placeholder(len(st.params)))
		return nil

	case query.FieldExpr:
		if e.Binding < 0 || e.Binding >= len(sc.aliases) {
			return fmt.Errorf("%w: field %q references binding %d out of range", ErrMalformed, e.Name, e.Binding)
		}
		st.b.WriteString(sc.aliases[e.Binding])
		st.b.WriteString(".")
		st.b.WriteString(st.d.QuoteIdentifier(e.Name))
		return nil

	case query.BinaryExpr:
		if e.Op == query.OpIn || e.Op == query.OpNotIn {
			return st.writeIn(sc, e)
		}
		st.b.WriteString("(")
		if err := st.writeExpr(sc, e.Left); err != nil {
			return err
		}
		fmt.Fprintf(&st.b, " %s ", e.Op)
		if err := st.writeExpr(sc, e.Right); err != nil {
			return err
		}
		st.b.WriteString(")")
		return nil

	case query.UnaryExpr:
		switch e.Op {
		case query.OpIsNull, query.OpNotNull:
			st.b.WriteString("(")
			if err := st.writeExpr(sc, e.Expr); err != nil {
				return err
			}
			fmt.Fprintf(&st.b, " %s)", e.Op)
			return nil
		case query.OpNot:
			st.b.WriteString("(NOT ")
			if err := st.writeExpr(sc, e.Expr); err != nil {
				return err
			}
			st.b.WriteString(")")
			return nil
		case query.OpNeg:
			st.b.WriteString("(-")
			if err := st.writeExpr(sc, e.Expr); err != nil {
				return err
			}
			st.b.WriteString(")")
			return nil
		default:
			return fmt.Errorf("%w: unknown unary operator %q", ErrMalformed, e.Op)
		}

	case query.FuncExpr:
		return st.writeFunc(sc, e)

	case query.OverExpr:
		if err := st.writeFunc(sc, e.Fn); err != nil {
			return err
		}
		st.b.WriteString(" OVER ")
		st.b.WriteString(st.d.QuoteIdentifier(e.Window))
		return nil

	case query.FragmentExpr:
		for _, p := range e.Parts {
			if p.Hole == nil {
				st.b.WriteString(p.Literal)
				continue
			}
			if err := st.writeExpr(sc, p.Hole); err != nil {
				return err
			}
		}
		return nil

	case query.ListExpr:
		st.b.WriteString("(")
		if err := st.writeExprList(sc, e.Elems); err != nil {
			return err
		}
		st.b.WriteString(")")
		return nil

	case query.CastExpr:
		if !validCastType.MatchString(e.Type) {
			return fmt.Errorf("%w: invalid cast type %q", ErrMalformed, e.Type)
		}
		st.b.WriteString("CAST(")
		if err := st.writeExpr(sc, e.Expr); err != nil {
			return err
		}
		st.b.WriteString(" AS ")
		st.b.WriteString(e.Type)
		st.b.WriteString(")")
		return nil

	case query.SubqueryExpr:
		st.b.WriteString("(")
		if err := st.writeQuery(scope{q: e.Query, aliases: aliasesFor(e.Query)}); err != nil {
			return err
		}
		st.b.WriteString(")")
		return nil

	case query.ExistsExpr:
		if e.Negated {
			st.b.WriteString("NOT ")
		}
		st.b.WriteString("EXISTS (")
		if err := st.writeQuery(scope{q: e.Query, aliases: aliasesFor(e.Query)}); err != nil {
			return err
		}
		st.b.WriteString(")")
		return nil

	default:
		return fmt.Errorf("%w: unexpected expression node %T", ErrMalformed, expr)
	}
}

// writeIn renders IN and NOT IN. An empty right-hand list never produces
// invalid SQL: it collapses to a constant truth value instead.
func (st *state) writeIn(sc scope, e query.BinaryExpr) error {
	if list, ok := e.Right.(query.ListExpr); ok && len(list.Elems) == 0 {
		if e.Op == query.OpIn {
			st.b.WriteString("(0 = 1)")
		} else {
			st.b.WriteString("(1 = 1)")
		}
		return nil
	}
	st.b.WriteString("(")
	if err := st.writeExpr(sc, e.Left); err != nil {
		return err
	}
	fmt.Fprintf(&st.b, " %s ", e.Op)
	switch right := e.Right.(type) {
	case query.ListExpr, query.SubqueryExpr:
		if err := st.writeExpr(sc, right); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: IN requires a list or subquery on the right side, got %T", ErrMalformed, e.Right)
	}
	st.b.WriteString(")")
	return nil
}

// validFuncName constrains function names to plain identifiers; anything
// richer belongs in a fragment.
var validFuncName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validCastType allows identifier-like type names with an optional length,
// e.g. varchar(255).
var validCastType = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_ ]*(\([0-9, ]+\))?$`)

func (st *state) writeFunc(sc scope, f query.FuncExpr) error {
	if !validFuncName.MatchString(f.Name) {
		return fmt.Errorf("%w: invalid function name %q", ErrMalformed, f.Name)
	}
	st.b.WriteString(f.Name)
	st.b.WriteString("(")
	if err := st.writeExprList(sc, f.Args); err != nil {
		return err
	}
	st.b.WriteString(")")
	return nil
}

func (st *state) writeLiteral(val any) error {
	switch v := val.(type) {
	case nil:
		st.b.WriteString("NULL")
	case string:
		st.b.WriteString(st.d.StringLiteral(v))
	case bool:
		st.b.WriteString(st.d.BoolLiteral(v))
	case []byte:
		st.b.WriteString(st.d.BytesLiteral(v))
	case uuid.UUID:
		st.b.WriteString(st.d.UUIDLiteral(v))
	case int:
		fmt.Fprintf(&st.b, "%d", v)
	case int8:
		fmt.Fprintf(&st.b, "%d", v)
	case int16:
		fmt.Fprintf(&st.b, "%d", v)
	case int32:
		fmt.Fprintf(&st.b, "%d", v)
	case int64:
		fmt.Fprintf(&st.b, "%d", v)
	case uint:
		fmt.Fprintf(&st.b, "%d", v)
	case uint8:
		fmt.Fprintf(&st.b, "%d", v)
	case uint16:
		fmt.Fprintf(&st.b, "%d", v)
	case uint32:
		fmt.Fprintf(&st.b, "%d", v)
	case uint64:
		fmt.Fprintf(&st.b, "%d", v)
	case float32:
		fmt.Fprintf(&st.b, "%g", v)
	case float64:
		fmt.Fprintf(&st.b, "%g", v)
	default:
		return fmt.Errorf("%w: unsupported literal type %T", ErrMalformed, val)
	}
	return nil
}
