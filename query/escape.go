package query

import (
	"fmt"
	"reflect"
	"strings"
)

// escape rewrites a surface expression into the canonical node set against
// this query's binding map, appending pinned values to the parameter list in
// encounter order. It is deterministic: the same surface tree and binding
// map always produce the same canonical tree and the same parameter order.
func (q *Query) escape(expr Expr) (Expr, error) {
	switch e := expr.(type) {
	case nil:
		return nil, &Error{Message: "nil expression"}

	case fieldRef:
		idx, ok := q.bindings[e.binding]
		if !ok {
			return nil, &UnboundVariableError{Name: e.binding}
		}
		return FieldExpr{Binding: idx, Name: e.name}, nil

	case pinExpr:
		return q.pin(e.value, nil), nil

	case kwExpr:
		return q.escapeKeywords(e)

	case rawFragment:
		return q.escapeFragment(e)

	case BinaryExpr:
		return q.escapeBinary(e)

	case UnaryExpr:
		inner, err := q.escape(e.Expr)
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: e.Op, Expr: inner}, nil

	case FuncExpr:
		return q.escapeFunc(e)

	case OverExpr:
		fn, err := q.escapeFunc(e.Fn)
		if err != nil {
			return nil, err
		}
		return OverExpr{Fn: fn.(FuncExpr), Window: e.Window}, nil

	case ListExpr:
		elems := make([]Expr, len(e.Elems))
		for i, el := range e.Elems {
			esc, err := q.escape(el)
			if err != nil {
				return nil, err
			}
			elems[i] = esc
		}
		return ListExpr{Elems: elems}, nil

	case CastExpr:
		inner, err := q.escape(e.Expr)
		if err != nil {
			return nil, err
		}
		return CastExpr{Expr: inner, Type: e.Type}, nil

	case SubqueryExpr:
		if e.Query == nil {
			return nil, &Error{Message: "subquery expression has no query"}
		}
		if err := e.Query.Err(); err != nil {
			return nil, err
		}
		return e, nil

	case ExistsExpr:
		if e.Query == nil {
			return nil, &Error{Message: "exists expression has no query"}
		}
		if err := e.Query.Err(); err != nil {
			return nil, err
		}
		return e, nil

	// Already canonical.
	case LiteralExpr, ParamExpr, FieldExpr, FragmentExpr:
		return expr, nil

	default:
		return nil, &Error{Message: fmt.Sprintf("unknown expression type %T", expr)}
	}
}

// pin appends a value to the parameter list and returns its placeholder.
// typeRef carries the field the value is compared against, so the planner
// can infer the parameter type from schema metadata.
func (q *Query) pin(value any, typeRef *FieldExpr) ParamExpr {
	pos := len(q.Params)
	q.Params = append(q.Params, Param{Value: value, Type: TypeAny, TypeRef: typeRef})
	return ParamExpr{Pos: pos, Type: TypeAny}
}

// escapeBinary escapes both operands, inferring a pinned operand's type from
// the field on the opposite side, and splicing pinned slices under IN.
func (q *Query) escapeBinary(e BinaryExpr) (Expr, error) {
	if e.Op == OpIn || e.Op == OpNotIn {
		return q.escapeIn(e)
	}

	left, err := q.escapeComparand(e.Left, e.Right)
	if err != nil {
		return nil, err
	}
	right, err := q.escapeComparand(e.Right, e.Left)
	if err != nil {
		return nil, err
	}
	return BinaryExpr{Left: left, Op: e.Op, Right: right}, nil
}

// escapeComparand escapes one side of a binary operator. A pinned value is
// typed by the field reference on the other side when there is one.
func (q *Query) escapeComparand(side, other Expr) (Expr, error) {
	p, ok := side.(pinExpr)
	if !ok {
		return q.escape(side)
	}
	if isNilValue(p.value) {
		return nil, &NilComparisonError{}
	}
	return q.pin(p.value, q.typeRefOf(other)), nil
}

// typeRefOf extracts a canonicalizable field reference for type inference.
func (q *Query) typeRefOf(e Expr) *FieldExpr {
	switch f := e.(type) {
	case fieldRef:
		if idx, ok := q.bindings[f.binding]; ok {
			return &FieldExpr{Binding: idx, Name: f.name}
		}
	case FieldExpr:
		return &f
	}
	return nil
}

// escapeIn handles IN and NOT IN. A pinned slice on the right is spliced
// into one parameter per element, preserving element order; the empty slice
// escapes to an empty list, which the generator renders as a constant
// truth value rather than invalid SQL.
func (q *Query) escapeIn(e BinaryExpr) (Expr, error) {
	left, err := q.escapeComparand(e.Left, e.Right)
	if err != nil {
		return nil, err
	}

	switch r := e.Right.(type) {
	case pinExpr:
		if isNilValue(r.value) {
			return nil, &NilComparisonError{}
		}
		rv := reflect.ValueOf(r.value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, &Error{Message: fmt.Sprintf("IN requires a list, subquery or pinned slice, got pinned %T", r.value)}
		}
		ref := q.typeRefOf(e.Left)
		elems := make([]Expr, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elems[i] = q.pin(rv.Index(i).Interface(), ref)
		}
		return BinaryExpr{Left: left, Op: e.Op, Right: ListExpr{Elems: elems}}, nil

	case ListExpr, SubqueryExpr:
		right, err := q.escape(e.Right)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Left: left, Op: e.Op, Right: right}, nil

	default:
		return nil, &Error{Message: fmt.Sprintf("IN requires a list, subquery or pinned slice, got %T", e.Right)}
	}
}

// escapeKeywords desugars the keyword-list shorthand into an AND-conjunction
// of equality checks, left-to-right, one parameter per pair.
func (q *Query) escapeKeywords(e kwExpr) (Expr, error) {
	idx, ok := q.bindings[e.binding]
	if !ok {
		return nil, &UnboundVariableError{Name: e.binding}
	}
	if len(e.pairs) == 0 {
		return nil, &Error{Message: "keyword filter requires at least one pair"}
	}
	var result Expr
	for _, kv := range e.pairs {
		if isNilValue(kv.Value) {
			return nil, &NilComparisonError{Field: kv.Field}
		}
		field := FieldExpr{Binding: idx, Name: kv.Field}
		eq := BinaryExpr{Left: field, Op: OpEq, Right: q.pin(kv.Value, &field)}
		if result == nil {
			result = eq
		} else {
			result = BinaryExpr{Left: result, Op: OpAnd, Right: eq}
		}
	}
	return result, nil
}

// escapeFragment splits the format string on ? markers and pairs each marker
// with its hole, preserving order. Marker and hole counts must match.
func (q *Query) escapeFragment(e rawFragment) (Expr, error) {
	markers := strings.Count(e.format, "?")
	if markers != len(e.holes) {
		return nil, &Error{Message: fmt.Sprintf(
			"fragment %q has %d placeholders but %d arguments", e.format, markers, len(e.holes))}
	}
	var parts []FragmentPart
	rest := e.format
	for _, hole := range e.holes {
		i := strings.IndexByte(rest, '?')
		if i > 0 {
			parts = append(parts, FragmentPart{Literal: rest[:i]})
		}
		esc, err := q.escape(hole)
		if err != nil {
			return nil, err
		}
		parts = append(parts, FragmentPart{Hole: esc})
		rest = rest[i+1:]
	}
	if rest != "" {
		parts = append(parts, FragmentPart{Literal: rest})
	}
	return FragmentExpr{Parts: parts}, nil
}

func (q *Query) escapeFunc(e FuncExpr) (Expr, error) {
	args := make([]Expr, len(e.Args))
	for i, a := range e.Args {
		esc, err := q.escape(a)
		if err != nil {
			return nil, err
		}
		args[i] = esc
	}
	return FuncExpr{Name: e.Name, Args: args}, nil
}

// isNilValue reports whether v is nil or a typed nil pointer/interface.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
