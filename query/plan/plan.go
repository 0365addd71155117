// Package plan validates and normalizes query ASTs before SQL generation:
// association references become explicit joins, field references are checked
// against schema metadata, parameter types are resolved, and operation-kind
// restrictions are enforced per dialect. A query that fails planning never
// reaches the generator.
package plan

import (
	"errors"
	"fmt"

	"github.com/relsql/relsql/query"
)

// Dialect is the capability surface the planner consults. Every
// compile.Dialect satisfies it.
type Dialect interface {
	Name() string
	SupportsUpdateJoins() bool
	SupportsDeleteJoins() bool
	SupportsOuterJoinUpdate() bool
	SupportsOuterJoinDelete() bool
	SupportsDistinctOn() bool
	SupportsRecursiveCTE() bool
}

// QueryError is a planning failure. It always points at the offending part
// of the query and is raised before any SQL is generated.
type QueryError struct {
	Message string
	Op      query.Op
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relsql: %s (in %s)", e.Message, e.Op)
	}
	return "relsql: " + e.Message
}

// Is reports whether the target matches the invalid-query sentinel.
func (e *QueryError) Is(err error) bool { return err == query.ErrInvalidQuery }

// Normalize validates q against schema metadata and rewrites it into the
// canonical form the SQL generator consumes. Binding indices are append-only
// and never renumbered, so parameter/placeholder correspondence is stable
// across repeated calls. Normalization is a fixpoint: normalizing an
// already-normalized query returns it unchanged.
func Normalize(q *query.Query, op query.Op, r query.Resolver, d Dialect) (*query.Query, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	if q.Normalized() {
		return q, nil
	}

	n := &normalizer{op: op, r: r, d: d}
	nq, err := n.run(q)
	if err != nil {
		return nil, err
	}
	nq.MarkNormalized()
	return nq, nil
}

type normalizer struct {
	op query.Op
	r  query.Resolver
	d  Dialect

	q       *query.Query
	schemas []string // schema key per binding index, "" for raw tables
}

func (n *normalizer) errf(format string, args ...any) error {
	return &QueryError{Message: fmt.Sprintf(format, args...), Op: n.op}
}

func (n *normalizer) run(q *query.Query) (*query.Query, error) {
	nq := q.Clone()
	n.q = nq

	if err := n.resolveSources(nq); err != nil {
		return nil, err
	}
	if err := n.checkOperation(nq); err != nil {
		return nil, err
	}
	if err := n.normalizeCTEs(nq); err != nil {
		return nil, err
	}
	if err := n.normalizeClauses(nq); err != nil {
		return nil, err
	}
	if err := n.normalizeSelect(nq); err != nil {
		return nil, err
	}
	if err := n.resolveParamTypes(nq); err != nil {
		return nil, err
	}
	if err := n.checkPreloads(nq); err != nil {
		return nil, err
	}
	return nq, nil
}

// resolveSources fills physical tables for schema-backed sources and rewrites
// association joins into explicit joins. Joins are processed in order, so an
// association can only reference an earlier binding.
func (n *normalizer) resolveSources(q *query.Query) error {
	n.schemas = make([]string, q.NumSources())

	from := &q.FromSource
	if from.Schema != "" {
		table, ok := n.r.Source(from.Schema)
		if !ok {
			return n.errf("schema %q is not registered", from.Schema)
		}
		from.Table = table
	}
	n.schemas[0] = from.Schema

	for i := range q.Joins {
		j := &q.Joins[i]
		self := i + 1
		if j.Assoc != nil {
			parentSchema := n.schemas[j.Assoc.Binding]
			if parentSchema == "" {
				return n.errf("association %q joins require a schema-backed binding", j.Assoc.Name)
			}
			assoc, ok := n.r.Association(parentSchema, j.Assoc.Name)
			if !ok {
				return n.errf("schema %q has no association %q", parentSchema, j.Assoc.Name)
			}
			table, ok := n.r.Source(assoc.Target)
			if !ok {
				return n.errf("association %q targets unregistered schema %q", j.Assoc.Name, assoc.Target)
			}
			j.Source.Schema = assoc.Target
			j.Source.Table = table
			j.On = query.Eq(
				query.FieldExpr{Binding: j.Assoc.Binding, Name: assoc.OwnerKey},
				query.FieldExpr{Binding: self, Name: assoc.RelatedKey},
			)
		} else if j.Source.Schema != "" {
			table, ok := n.r.Source(j.Source.Schema)
			if !ok {
				return n.errf("schema %q is not registered", j.Source.Schema)
			}
			j.Source.Table = table
		}
		n.schemas[self] = j.Source.Schema
	}
	return nil
}

// checkOperation enforces per-operation and per-dialect restrictions.
func (n *normalizer) checkOperation(q *query.Query) error {
	switch n.op {
	case query.UpdateAll:
		if len(q.Updates) == 0 {
			return n.errf("update_all requires at least one set or inc instruction")
		}
		if len(q.Joins) > 0 && !n.d.SupportsUpdateJoins() {
			return n.errf("%s does not support joins in update_all", n.d.Name())
		}
		if !n.d.SupportsOuterJoinUpdate() {
			if err := n.requireInnerJoins(q); err != nil {
				return err
			}
		}
	case query.All, query.DeleteAll:
		if len(q.Updates) > 0 {
			return n.errf("set/inc instructions are only valid in update_all")
		}
		if n.op == query.DeleteAll && len(q.Joins) > 0 {
			if !n.d.SupportsDeleteJoins() {
				return n.errf("%s does not support joins in delete_all", n.d.Name())
			}
			if !n.d.SupportsOuterJoinDelete() {
				if err := n.requireInnerJoins(q); err != nil {
					return err
				}
			}
		}
	default:
		return n.errf("unknown operation %q", n.op)
	}

	if q.Distincts != nil && len(q.Distincts.On) > 0 && !n.d.SupportsDistinctOn() {
		return n.errf("%s only supports boolean DISTINCT, not DISTINCT ON expressions", n.d.Name())
	}
	for _, c := range q.CTEs {
		if c.Recursive && !n.d.SupportsRecursiveCTE() {
			return n.errf("%s does not support recursive CTEs", n.d.Name())
		}
	}
	return nil
}

// requireInnerJoins rejects non-inner joins for dialects whose update/delete
// join form (FROM/USING) can only express inner joins.
func (n *normalizer) requireInnerJoins(q *query.Query) error {
	for _, j := range q.Joins {
		if j.Kind != query.InnerJoin {
			return n.errf("%s %s supports only inner joins, got a %s join", n.d.Name(), n.op, j.Kind)
		}
	}
	return nil
}

func (n *normalizer) normalizeCTEs(q *query.Query) error {
	for i := range q.CTEs {
		sub, err := Normalize(q.CTEs[i].Query, query.All, n.r, n.d)
		if err != nil {
			return err
		}
		q.CTEs[i].Query = sub
	}
	return nil
}

// normalizeClauses walks every expression slot, validating field references
// and rewriting nested subqueries into their normalized form.
func (n *normalizer) normalizeClauses(q *query.Query) error {
	var err error
	for i := range q.Joins {
		if q.Joins[i].On != nil {
			if q.Joins[i].On, err = n.expr(q.Joins[i].On); err != nil {
				return err
			}
		} else if q.Joins[i].Kind != query.CrossJoin {
			return n.errf("%s join on %q has no ON condition", q.Joins[i].Kind, q.Joins[i].Source.Table)
		}
	}
	for i := range q.Wheres {
		if q.Wheres[i], err = n.expr(q.Wheres[i]); err != nil {
			return err
		}
	}
	for i := range q.Havings {
		if q.Havings[i], err = n.expr(q.Havings[i]); err != nil {
			return err
		}
	}
	for i := range q.GroupBys {
		if q.GroupBys[i], err = n.expr(q.GroupBys[i]); err != nil {
			return err
		}
	}
	for i := range q.OrderBys {
		if q.OrderBys[i].Expr, err = n.expr(q.OrderBys[i].Expr); err != nil {
			return err
		}
	}
	if q.Distincts != nil {
		for i := range q.Distincts.On {
			if q.Distincts.On[i], err = n.expr(q.Distincts.On[i]); err != nil {
				return err
			}
		}
	}
	for i := range q.Windows {
		w := &q.Windows[i]
		for j := range w.PartitionBy {
			if w.PartitionBy[j], err = n.expr(w.PartitionBy[j]); err != nil {
				return err
			}
		}
		for j := range w.OrderBy {
			if w.OrderBy[j].Expr, err = n.expr(w.OrderBy[j].Expr); err != nil {
				return err
			}
		}
	}
	for i := range q.Updates {
		if err := n.checkField(query.FieldExpr{Binding: 0, Name: q.Updates[i].Field}); err != nil {
			return err
		}
		if q.Updates[i].Value, err = n.expr(q.Updates[i].Value); err != nil {
			return err
		}
	}
	if q.LimitExpr != nil {
		if q.LimitExpr, err = n.expr(q.LimitExpr); err != nil {
			return err
		}
	}
	if q.OffsetExpr != nil {
		if q.OffsetExpr, err = n.expr(q.OffsetExpr); err != nil {
			return err
		}
	}
	return nil
}

// normalizeSelect validates the projection shape and fills the default
// projection (all schema fields, deterministic order) for plain selects.
func (n *normalizer) normalizeSelect(q *query.Query) error {
	if q.Selects == nil {
		if n.op == query.All && n.schemas[0] != "" {
			fields, _ := n.r.Fields(n.schemas[0])
			q.Selects = &query.SelectClause{Kind: query.SelectTake, Binding: 0, Fields: fields}
		}
		return nil
	}
	s := q.Selects
	switch s.Kind {
	case query.SelectExprShape:
		e, err := n.expr(s.Expr)
		if err != nil {
			return err
		}
		s.Expr = e
	case query.SelectTake, query.SelectMap, query.SelectStruct:
		if s.Binding >= len(n.schemas) {
			return n.errf("select references binding %d, query has %d sources", s.Binding, len(n.schemas))
		}
		if len(s.Fields) == 0 {
			return n.errf("select shape requires at least one field")
		}
		for _, f := range s.Fields {
			if err := n.checkField(query.FieldExpr{Binding: s.Binding, Name: f}); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveParamTypes turns field type references into concrete types.
func (n *normalizer) resolveParamTypes(q *query.Query) error {
	for i := range q.Params {
		p := &q.Params[i]
		if p.TypeRef == nil || p.Type != query.TypeAny {
			continue
		}
		if p.TypeRef.Binding < len(n.schemas) && n.schemas[p.TypeRef.Binding] != "" {
			if t, ok := n.r.FieldType(n.schemas[p.TypeRef.Binding], p.TypeRef.Name); ok {
				p.Type = t
			}
		}
	}
	return nil
}

func (n *normalizer) checkPreloads(q *query.Query) error {
	for _, p := range q.Preloads {
		schema := n.schemas[p.Binding]
		if schema == "" {
			return n.errf("preload %q requires a schema-backed binding", p.Name)
		}
		if _, ok := n.r.Association(schema, p.Name); !ok {
			return n.errf("schema %q has no association %q", schema, p.Name)
		}
		if p.Mode == query.PreloadJoin && findAssocJoin(q, p) < 0 {
			return n.errf("preload of %q through a join requires an explicit association join", p.Name)
		}
	}
	return nil
}

// expr validates and rewrites one expression tree. Field references must
// resolve to known bindings and, for schema-backed bindings, to declared
// fields. Subqueries are normalized recursively. Surface nodes reaching this
// point indicate a defect in the builder, not a user error.
func (n *normalizer) expr(e query.Expr) (query.Expr, error) {
	switch t := e.(type) {
	case query.LiteralExpr, query.ParamExpr:
		return e, nil

	case query.FieldExpr:
		if err := n.checkField(t); err != nil {
			return nil, err
		}
		return e, nil

	case query.BinaryExpr:
		left, err := n.expr(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := n.expr(t.Right)
		if err != nil {
			return nil, err
		}
		return query.BinaryExpr{Left: left, Op: t.Op, Right: right}, nil

	case query.UnaryExpr:
		inner, err := n.expr(t.Expr)
		if err != nil {
			return nil, err
		}
		return query.UnaryExpr{Op: t.Op, Expr: inner}, nil

	case query.FuncExpr:
		args := make([]query.Expr, len(t.Args))
		for i, a := range t.Args {
			na, err := n.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = na
		}
		return query.FuncExpr{Name: t.Name, Args: args}, nil

	case query.OverExpr:
		fn, err := n.expr(t.Fn)
		if err != nil {
			return nil, err
		}
		if !n.hasWindow(t.Window) {
			return nil, n.errf("window %q is not defined in this query", t.Window)
		}
		return query.OverExpr{Fn: fn.(query.FuncExpr), Window: t.Window}, nil

	case query.FragmentExpr:
		parts := make([]query.FragmentPart, len(t.Parts))
		for i, p := range t.Parts {
			if p.Hole == nil {
				parts[i] = p
				continue
			}
			hole, err := n.expr(p.Hole)
			if err != nil {
				return nil, err
			}
			parts[i] = query.FragmentPart{Hole: hole}
		}
		return query.FragmentExpr{Parts: parts}, nil

	case query.ListExpr:
		elems := make([]query.Expr, len(t.Elems))
		for i, el := range t.Elems {
			ne, err := n.expr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = ne
		}
		return query.ListExpr{Elems: elems}, nil

	case query.CastExpr:
		inner, err := n.expr(t.Expr)
		if err != nil {
			return nil, err
		}
		return query.CastExpr{Expr: inner, Type: t.Type}, nil

	case query.SubqueryExpr:
		sub, err := Normalize(t.Query, query.All, n.r, n.d)
		if err != nil {
			return nil, err
		}
		return query.SubqueryExpr{Query: sub}, nil

	case query.ExistsExpr:
		sub, err := Normalize(t.Query, query.All, n.r, n.d)
		if err != nil {
			return nil, err
		}
		return query.ExistsExpr{Query: sub, Negated: t.Negated}, nil

	default:
		return nil, n.errf("unexpected expression node %T reached the planner", e)
	}
}

func (n *normalizer) checkField(f query.FieldExpr) error {
	if f.Binding >= len(n.schemas) {
		return n.errf("field %q references binding %d, query has %d sources", f.Name, f.Binding, len(n.schemas))
	}
	schema := n.schemas[f.Binding]
	if schema == "" {
		return nil // raw table bindings are not validated
	}
	if _, ok := n.r.FieldType(schema, f.Name); !ok {
		return n.errf("field %q does not exist in schema %q", f.Name, schema)
	}
	return nil
}

func (n *normalizer) hasWindow(name string) bool {
	for _, w := range n.q.Windows {
		if w.Name == name {
			return true
		}
	}
	return false
}

// findAssocJoin returns the binding index of the join created from the given
// preload's association, or -1.
func findAssocJoin(q *query.Query, p query.Preload) int {
	for i, j := range q.Joins {
		if j.Assoc != nil && j.Assoc.Binding == p.Binding && j.Assoc.Name == p.Name {
			return i + 1
		}
	}
	return -1
}

// =============================================================================
// Preload planning
// =============================================================================

// PreloadPlan is one association-loading instruction produced from a
// normalized query. In separate mode the caller runs ChildQuery with the
// owner keys collected from the main result; in join mode JoinBinding names
// the source whose columns assemble into the association.
type PreloadPlan struct {
	Name         string
	Assoc        query.Association
	OwnerBinding int
	Mode         query.PreloadMode
	JoinBinding  int
}

// PlanPreloads derives the association-loading instructions of a normalized
// query. Each preload becomes either a secondary-query plan (default) or a
// join-assembly plan when the caller picked PreloadInJoin.
func PlanPreloads(q *query.Query, r query.Resolver) ([]PreloadPlan, error) {
	if !q.Normalized() {
		return nil, errors.New("relsql: preload planning requires a normalized query")
	}
	plans := make([]PreloadPlan, 0, len(q.Preloads))
	for _, p := range q.Preloads {
		schema := q.SourceAt(p.Binding).Schema
		assoc, ok := r.Association(schema, p.Name)
		if !ok {
			return nil, &QueryError{Message: fmt.Sprintf("schema %q has no association %q", schema, p.Name)}
		}
		plan := PreloadPlan{Name: p.Name, Assoc: assoc, OwnerBinding: p.Binding, Mode: p.Mode, JoinBinding: -1}
		if p.Mode == query.PreloadJoin {
			plan.JoinBinding = findAssocJoin(q, p)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// ChildQuery builds the secondary query loading the association rows for the
// given owner keys. The key list is pinned, so an empty key set compiles to
// a constant-false filter rather than invalid SQL.
func (p PreloadPlan) ChildQuery(keys []any) *query.Query {
	return query.FromSchema(p.Assoc.Target, "c").
		Where(query.In(query.F("c", p.Assoc.RelatedKey), query.Pin(keys)))
}
