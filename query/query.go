// Package query holds the composable, immutable query representation: the
// AST node set, the expression escaper that resolves surface syntax into
// canonical nodes, and the schema descriptors the planner validates against.
//
// Builder operations never mutate their receiver; each returns a new query
// sharing unmodified subtrees. Construction errors (unbound bindings, nil
// comparisons, bad directions) are sticky: they attach to the returned query
// and surface from Err and from planning, so a broken query can never reach
// the SQL generator.
package query

import "fmt"

// Op identifies the operation a query compiles to.
type Op string

const (
	All       Op = "all"
	UpdateAll Op = "update_all"
	DeleteAll Op = "delete_all"
	Insert    Op = "insert"
)

// Source is one entry of the from/join sequence. Its position in that
// sequence is the binding index referenced by FieldExpr nodes.
type Source struct {
	Table  string // physical table; filled by the planner for schema-backed sources
	Schema string // schema registry key, empty for raw tables
	As     string // binding name used in builder expressions
}

// JoinKind is the join qualifier.
type JoinKind string

const (
	InnerJoin JoinKind = "inner"
	LeftJoin  JoinKind = "left"
	RightJoin JoinKind = "right"
	FullJoin  JoinKind = "full"
	CrossJoin JoinKind = "cross"
)

// AssocRef marks a join created from an association reference. The planner
// resolves it into a table and an ON condition using schema reflection.
type AssocRef struct {
	Binding int
	Name    string
}

// Join is one join clause. When Assoc is non-nil the Source table and On
// condition are blank until planning.
type Join struct {
	Kind   JoinKind
	Source Source
	On     Expr
	Assoc  *AssocRef
}

// Direction tags an order_by expression.
type Direction string

const (
	Asc            Direction = "asc"
	Desc           Direction = "desc"
	AscNullsFirst  Direction = "asc_nulls_first"
	AscNullsLast   Direction = "asc_nulls_last"
	DescNullsFirst Direction = "desc_nulls_first"
	DescNullsLast  Direction = "desc_nulls_last"
)

// directions lists the valid direction tags, in the order error messages
// report them.
var directions = []Direction{Asc, Desc, AscNullsFirst, AscNullsLast, DescNullsFirst, DescNullsLast}

// ParseDirection validates a direction tag. An unknown tag returns an error
// naming the valid set.
func ParseDirection(s string) (Direction, error) {
	for _, d := range directions {
		if Direction(s) == d {
			return d, nil
		}
	}
	return "", &InvalidDirectionError{Got: s}
}

// OrderExpr is one order_by entry.
type OrderExpr struct {
	Expr Expr
	Dir  Direction
}

// DistinctClause is either a plain DISTINCT (empty On) or DISTINCT ON (On
// expressions, Postgres only).
type DistinctClause struct {
	On []Expr
}

// SelectKind describes the projection shape.
type SelectKind int

const (
	// SelectExprShape projects a single expression (scalar, function call, ...).
	SelectExprShape SelectKind = iota
	// SelectTake projects the named columns of one binding.
	SelectTake
	// SelectMap projects the named columns of one binding assembled into a map.
	SelectMap
	// SelectStruct projects the named columns of one binding assembled into a struct.
	SelectStruct
)

// SelectClause is the optional projection description.
type SelectClause struct {
	Kind    SelectKind
	Expr    Expr
	Binding int
	Fields  []string
}

// UpdateKind distinguishes update_all instructions.
type UpdateKind string

const (
	UpdateSet UpdateKind = "set"
	UpdateInc UpdateKind = "inc"
)

// UpdateExpr is one update_all instruction.
type UpdateExpr struct {
	Kind  UpdateKind
	Field string
	Value Expr
}

// CTE is a named, possibly-recursive common table expression.
type CTE struct {
	Name      string
	Recursive bool
	Query     *Query
}

// WindowSpec is a named window definition.
type WindowSpec struct {
	Name        string
	PartitionBy []Expr
	OrderBy     []OrderExpr
	Frame       string
}

// Param is one entry of the ordered parameter list. Type is inferred from
// the field the value was compared against when possible; the planner
// resolves TypeRef into a concrete type using schema metadata.
type Param struct {
	Value   any
	Type    Type
	TypeRef *FieldExpr
}

// PreloadMode selects how an association preload is merged into the plan.
type PreloadMode int

const (
	// PreloadSeparate loads the association with a secondary query (default).
	PreloadSeparate PreloadMode = iota
	// PreloadJoin merges the preload into an existing association join plus a
	// result-assembly instruction. Requires that the caller joined the
	// association explicitly.
	PreloadJoin
)

// Preload is a request to load an association alongside the main result.
type Preload struct {
	Binding int
	Name    string
	Mode    PreloadMode
}

// Query is the root of the immutable query AST.
type Query struct {
	FromSource Source
	Joins      []Join
	Wheres     []Expr
	Havings    []Expr
	GroupBys   []Expr
	OrderBys   []OrderExpr
	Distincts  *DistinctClause
	Selects    *SelectClause
	LimitExpr  Expr
	OffsetExpr Expr
	LockClause string
	Updates    []UpdateExpr
	CTEs       []CTE
	Windows    []WindowSpec
	Params     []Param
	Preloads   []Preload

	bindings   map[string]int
	normalized bool
	err        error
}

// From starts a query over a raw table. The binding name is usable in
// expressions built with F.
func From(table, as string) *Query {
	q := &Query{
		FromSource: Source{Table: table, As: as},
		bindings:   map[string]int{as: 0},
	}
	return q
}

// FromSchema starts a query over a registered schema. The table name is
// resolved from the schema descriptor during planning, and field references
// against this binding are validated.
func FromSchema(schema, as string) *Query {
	q := &Query{
		FromSource: Source{Schema: schema, As: as},
		bindings:   map[string]int{as: 0},
	}
	return q
}

// Err returns the first construction error recorded on this query, if any.
func (q *Query) Err() error { return q.err }

// Normalized reports whether the planner has already normalized this query.
func (q *Query) Normalized() bool { return q.normalized }

// MarkNormalized flags the query as planner output. Normalizing it again is
// a no-op fixpoint. Intended for use by the plan package.
func (q *Query) MarkNormalized() { q.normalized = true }

// Binding resolves a binding name to its source index.
func (q *Query) Binding(name string) (int, bool) {
	i, ok := q.bindings[name]
	return i, ok
}

// NumSources returns the number of bound sources (from plus joins).
func (q *Query) NumSources() int { return 1 + len(q.Joins) }

// SourceAt returns the source at the given binding index.
func (q *Query) SourceAt(i int) *Source {
	if i == 0 {
		return &q.FromSource
	}
	return &q.Joins[i-1].Source
}

// Clone returns a copy safe to modify without affecting the receiver.
// Expression trees are shared; they are immutable. The copy is never marked
// normalized: a query derived from planner output must be planned again
// before it can reach the generator.
func (q *Query) Clone() *Query {
	nq := *q
	nq.normalized = false
	nq.Joins = append([]Join(nil), q.Joins...)
	nq.Wheres = append([]Expr(nil), q.Wheres...)
	nq.Havings = append([]Expr(nil), q.Havings...)
	nq.GroupBys = append([]Expr(nil), q.GroupBys...)
	nq.OrderBys = append([]OrderExpr(nil), q.OrderBys...)
	nq.Updates = append([]UpdateExpr(nil), q.Updates...)
	nq.CTEs = append([]CTE(nil), q.CTEs...)
	nq.Windows = append([]WindowSpec(nil), q.Windows...)
	nq.Params = append([]Param(nil), q.Params...)
	nq.Preloads = append([]Preload(nil), q.Preloads...)
	if q.Distincts != nil {
		d := *q.Distincts
		d.On = append([]Expr(nil), q.Distincts.On...)
		nq.Distincts = &d
	}
	if q.Selects != nil {
		s := *q.Selects
		s.Fields = append([]string(nil), q.Selects.Fields...)
		nq.Selects = &s
	}
	nq.bindings = make(map[string]int, len(q.bindings))
	for k, v := range q.bindings {
		nq.bindings[k] = v
	}
	return &nq
}

// fail records a sticky construction error. The first error wins.
func (q *Query) fail(err error) *Query {
	nq := q.Clone()
	if nq.err == nil {
		nq.err = err
	}
	return nq
}

// =============================================================================
// Composable operations
//
// Plural clauses (where, having, order_by, group_by, joins) accumulate in
// call order. Singular clauses (select, distinct, limit, offset, lock) follow
// last-write-wins.
// =============================================================================

// Where appends a filter. Accumulated filters are conjoined with AND in call
// order.
func (q *Query) Where(expr Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.Wheres = append(nq.Wheres, e)
	return nq
}

// Having appends a post-aggregation filter.
func (q *Query) Having(expr Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.Havings = append(nq.Havings, e)
	return nq
}

// Join adds a join over a raw table with an explicit ON condition. The on
// expression may reference the new binding.
func (q *Query) Join(kind JoinKind, table, as string, on Expr) *Query {
	return q.join(kind, Source{Table: table, As: as}, as, on, nil)
}

// JoinSchema adds a join over a registered schema with an explicit ON
// condition.
func (q *Query) JoinSchema(kind JoinKind, schema, as string, on Expr) *Query {
	return q.join(kind, Source{Schema: schema, As: as}, as, on, nil)
}

// JoinAssoc adds a join derived from an association of an earlier binding.
// The target table and ON condition are resolved by the planner using schema
// reflection.
func (q *Query) JoinAssoc(kind JoinKind, parent, assoc, as string) *Query {
	idx, ok := q.bindings[parent]
	if !ok {
		return q.fail(&UnboundVariableError{Name: parent})
	}
	return q.join(kind, Source{As: as}, as, nil, &AssocRef{Binding: idx, Name: assoc})
}

func (q *Query) join(kind JoinKind, src Source, as string, on Expr, assoc *AssocRef) *Query {
	if _, dup := q.bindings[as]; dup {
		return q.fail(&Error{Message: fmt.Sprintf("binding %q is already defined in this query", as)})
	}
	nq := q.Clone()
	nq.bindings[as] = nq.NumSources()
	j := Join{Kind: kind, Source: src, Assoc: assoc}
	if on != nil {
		e, err := nq.escape(on)
		if err != nil {
			return q.fail(err)
		}
		j.On = e
	}
	nq.Joins = append(nq.Joins, j)
	return nq
}

// OrderBy appends an ordering expression with the given direction tag.
func (q *Query) OrderBy(dir Direction, expr Expr) *Query {
	if _, err := ParseDirection(string(dir)); err != nil {
		return q.fail(err)
	}
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.OrderBys = append(nq.OrderBys, OrderExpr{Expr: e, Dir: dir})
	return nq
}

// OrderByFields appends ascending orderings for bare field names on the
// given binding.
func (q *Query) OrderByFields(binding string, fields ...string) *Query {
	nq := q
	for _, f := range fields {
		nq = nq.OrderBy(Asc, F(binding, f))
	}
	return nq
}

// GroupBy appends grouping expressions.
func (q *Query) GroupBy(exprs ...Expr) *Query {
	nq := q.Clone()
	for _, expr := range exprs {
		e, err := nq.escape(expr)
		if err != nil {
			return q.fail(err)
		}
		nq.GroupBys = append(nq.GroupBys, e)
	}
	return nq
}

// Distinct sets the distinct clause; without arguments it is a plain
// boolean DISTINCT. Setting it again overwrites the previous value.
func (q *Query) Distinct(on ...Expr) *Query {
	nq := q.Clone()
	d := &DistinctClause{}
	for _, expr := range on {
		e, err := nq.escape(expr)
		if err != nil {
			return q.fail(err)
		}
		d.On = append(d.On, e)
	}
	nq.Distincts = d
	return nq
}

// Select sets an expression projection. The last select call wins.
func (q *Query) Select(expr Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.Selects = &SelectClause{Kind: SelectExprShape, Expr: e}
	return nq
}

// Take projects the named columns of one binding. The last select call wins.
func (q *Query) Take(binding string, fields ...string) *Query {
	return q.shape(SelectTake, binding, fields)
}

// SelectMap projects the named columns of one binding as a map shape.
func (q *Query) SelectMap(binding string, fields ...string) *Query {
	return q.shape(SelectMap, binding, fields)
}

// SelectStruct projects the named columns of one binding as a struct shape.
func (q *Query) SelectStruct(binding string, fields ...string) *Query {
	return q.shape(SelectStruct, binding, fields)
}

func (q *Query) shape(kind SelectKind, binding string, fields []string) *Query {
	idx, ok := q.bindings[binding]
	if !ok {
		return q.fail(&UnboundVariableError{Name: binding})
	}
	nq := q.Clone()
	nq.Selects = &SelectClause{Kind: kind, Binding: idx, Fields: append([]string(nil), fields...)}
	return nq
}

// Limit sets the limit expression. The last call wins.
func (q *Query) Limit(expr Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.LimitExpr = e
	return nq
}

// Offset sets the offset expression. The last call wins.
func (q *Query) Offset(expr Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(expr)
	if err != nil {
		return q.fail(err)
	}
	nq.OffsetExpr = e
	return nq
}

// Lock sets a literal lock clause, e.g. "FOR UPDATE". The last call wins.
func (q *Query) Lock(clause string) *Query {
	nq := q.Clone()
	nq.LockClause = clause
	return nq
}

// Set appends an update_all instruction assigning field = value.
func (q *Query) Set(field string, value Expr) *Query {
	return q.update(UpdateSet, field, value)
}

// Inc appends an update_all instruction incrementing field by value.
func (q *Query) Inc(field string, value Expr) *Query {
	return q.update(UpdateInc, field, value)
}

func (q *Query) update(kind UpdateKind, field string, value Expr) *Query {
	nq := q.Clone()
	e, err := nq.escape(value)
	if err != nil {
		return q.fail(err)
	}
	nq.Updates = append(nq.Updates, UpdateExpr{Kind: kind, Field: field, Value: e})
	return nq
}

// With appends a named CTE.
func (q *Query) With(name string, sub *Query) *Query {
	return q.cte(name, sub, false)
}

// WithRecursive appends a named recursive CTE.
func (q *Query) WithRecursive(name string, sub *Query) *Query {
	return q.cte(name, sub, true)
}

func (q *Query) cte(name string, sub *Query, recursive bool) *Query {
	if sub == nil {
		return q.fail(&Error{Message: fmt.Sprintf("CTE %q has no query", name)})
	}
	if sub.err != nil {
		return q.fail(sub.err)
	}
	nq := q.Clone()
	nq.CTEs = append(nq.CTEs, CTE{Name: name, Recursive: recursive, Query: sub})
	return nq
}

// Window defines a named window spec. Partition and order expressions are
// escaped against this query's bindings.
func (q *Query) Window(name string, partitionBy []Expr, orderBy []OrderExpr, frame string) *Query {
	nq := q.Clone()
	w := WindowSpec{Name: name, Frame: frame}
	for _, expr := range partitionBy {
		e, err := nq.escape(expr)
		if err != nil {
			return q.fail(err)
		}
		w.PartitionBy = append(w.PartitionBy, e)
	}
	for _, o := range orderBy {
		if _, err := ParseDirection(string(o.Dir)); err != nil {
			return q.fail(err)
		}
		e, err := nq.escape(o.Expr)
		if err != nil {
			return q.fail(err)
		}
		w.OrderBy = append(w.OrderBy, OrderExpr{Expr: e, Dir: o.Dir})
	}
	nq.Windows = append(nq.Windows, w)
	return nq
}

// PreloadAssoc requests the named association of a binding to be loaded with
// a secondary query.
func (q *Query) PreloadAssoc(binding, assoc string) *Query {
	return q.preload(binding, assoc, PreloadSeparate)
}

// PreloadInJoin requests the named association to be loaded through an
// existing association join. Planning fails if no such join exists; the
// join-vs-query choice is always the caller's, never inferred.
func (q *Query) PreloadInJoin(binding, assoc string) *Query {
	return q.preload(binding, assoc, PreloadJoin)
}

func (q *Query) preload(binding, assoc string, mode PreloadMode) *Query {
	idx, ok := q.bindings[binding]
	if !ok {
		return q.fail(&UnboundVariableError{Name: binding})
	}
	nq := q.Clone()
	nq.Preloads = append(nq.Preloads, Preload{Binding: idx, Name: assoc, Mode: mode})
	return nq
}
