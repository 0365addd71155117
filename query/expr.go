package query

// Expr is the interface for all expression nodes in a query AST.
type Expr interface {
	exprNode() // marker method to identify expression types
}

// LiteralExpr represents a literal value embedded in the query text.
type LiteralExpr struct {
	Value any
}

func (LiteralExpr) exprNode() {}

// ParamExpr is a placeholder for a value in the query's parameter list.
// Pos is the 0-based position assigned when the value was pinned; the
// generator emits placeholders in exactly this order.
type ParamExpr struct {
	Pos  int
	Type Type
}

func (ParamExpr) exprNode() {}

// FieldExpr is a column reference resolved to a binding index.
// Binding is the position of the source in the from/join sequence.
type FieldExpr struct {
	Binding int
	Name    string
}

func (FieldExpr) exprNode() {}

// BinaryOp represents binary operators.
type BinaryOp string

const (
	OpEq    BinaryOp = "="
	OpNe    BinaryOp = "<>"
	OpLt    BinaryOp = "<"
	OpLe    BinaryOp = "<="
	OpGt    BinaryOp = ">"
	OpGe    BinaryOp = ">="
	OpAnd   BinaryOp = "AND"
	OpOr    BinaryOp = "OR"
	OpLike  BinaryOp = "LIKE"
	OpIn    BinaryOp = "IN"
	OpNotIn BinaryOp = "NOT IN"
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
)

// BinaryExpr represents a binary operation (left op right).
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (BinaryExpr) exprNode() {}

// UnaryOp represents unary operators.
type UnaryOp string

const (
	OpNot     UnaryOp = "NOT"
	OpIsNull  UnaryOp = "IS NULL"
	OpNotNull UnaryOp = "IS NOT NULL"
	OpNeg     UnaryOp = "-"
)

// UnaryExpr represents a unary operation (op expr, or expr op for the
// IS NULL family).
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

func (UnaryExpr) exprNode() {}

// FuncExpr represents a function call.
type FuncExpr struct {
	Name string
	Args []Expr
}

func (FuncExpr) exprNode() {}

// OverExpr applies a window to a function call: fn OVER window.
type OverExpr struct {
	Fn     FuncExpr
	Window string
}

func (OverExpr) exprNode() {}

// FragmentPart is one element of a fragment's literal/hole alternation.
// Exactly one of Literal or Hole is set.
type FragmentPart struct {
	Literal string
	Hole    Expr
}

// FragmentExpr is raw SQL interleaved with typed holes. Hole order in the
// parts sequence is exactly the order holes are consumed at generation time.
type FragmentExpr struct {
	Parts []FragmentPart
}

func (FragmentExpr) exprNode() {}

// ListExpr represents a literal list/tuple constructor, e.g. the right side
// of an IN operator. An empty list is valid and renders to a
// tautologically-false (or -true, for NOT IN) expression.
type ListExpr struct {
	Elems []Expr
}

func (ListExpr) exprNode() {}

// CastExpr is a tagged type cast: CAST(expr AS type).
type CastExpr struct {
	Expr Expr
	Type string
}

func (CastExpr) exprNode() {}

// SubqueryExpr embeds a query as an expression. The subquery carries its own
// parameter list; the generator merges it into the outer list in render order.
type SubqueryExpr struct {
	Query *Query
}

func (SubqueryExpr) exprNode() {}

// ExistsExpr represents EXISTS (subquery) or NOT EXISTS (subquery).
type ExistsExpr struct {
	Query   *Query
	Negated bool
}

func (ExistsExpr) exprNode() {}

// =============================================================================
// Surface nodes
//
// These are produced by the public helpers below and never survive escaping:
// attaching an expression to a query resolves them into the canonical node
// set above. A surface node reaching the generator is a defect.
// =============================================================================

// fieldRef is an unresolved column reference: binding name instead of index.
type fieldRef struct {
	binding string
	name    string
}

func (fieldRef) exprNode() {}

// pinExpr is an interpolated value awaiting a position in the parameter list.
type pinExpr struct {
	value any
}

func (pinExpr) exprNode() {}

// KV is one field/value pair of the keyword-list filter shorthand.
type KV struct {
	Field string
	Value any
}

// kwExpr is the keyword-list shorthand before desugaring.
type kwExpr struct {
	binding string
	pairs   []KV
}

func (kwExpr) exprNode() {}

// rawFragment is a fragment before its format string is split into parts.
type rawFragment struct {
	format string
	holes  []Expr
}

func (rawFragment) exprNode() {}

// =============================================================================
// Expression helpers
// =============================================================================

// F references the column name on the source bound to binding.
// The binding name is resolved to an index when the expression is attached
// to a query; an unknown name fails the query with UnboundVariableError.
func F(binding, name string) Expr {
	return fieldRef{binding: binding, name: name}
}

// Pin interpolates a runtime value into the query. The value is appended to
// the query's parameter list at the next position and replaced in the tree
// by a positional placeholder.
func Pin(value any) Expr {
	return pinExpr{value: value}
}

// Lit embeds a literal value into the generated SQL text.
func Lit(value any) Expr {
	return LiteralExpr{Value: value}
}

// FilterBy desugars to an AND-conjunction of equality checks against the
// given binding, left-to-right, each value pinned as one parameter.
// A nil value fails the query with NilComparisonError.
func FilterBy(binding string, pairs ...KV) Expr {
	return kwExpr{binding: binding, pairs: pairs}
}

// Fragment embeds raw SQL with ? holes. The number of holes must match the
// number of ? markers in format; hole order matches marker order.
func Fragment(format string, holes ...Expr) Expr {
	return rawFragment{format: format, holes: holes}
}

// Eq builds left = right.
func Eq(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpEq, Right: right} }

// Ne builds left <> right.
func Ne(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpNe, Right: right} }

// Lt builds left < right.
func Lt(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpLt, Right: right} }

// Le builds left <= right.
func Le(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpLe, Right: right} }

// Gt builds left > right.
func Gt(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpGt, Right: right} }

// Ge builds left >= right.
func Ge(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpGe, Right: right} }

// Like builds left LIKE right.
func Like(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpLike, Right: right} }

// In builds left IN right. Right may be a List, a Subquery, or a pinned
// slice; a pinned slice is spliced into one parameter per element.
func In(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpIn, Right: right} }

// NotIn builds left NOT IN right.
func NotIn(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpNotIn, Right: right} }

// Add builds left + right.
func Add(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpAdd, Right: right} }

// Sub builds left - right.
func Sub(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpSub, Right: right} }

// Mul builds left * right.
func Mul(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpMul, Right: right} }

// Div builds left / right.
func Div(left, right Expr) Expr { return BinaryExpr{Left: left, Op: OpDiv, Right: right} }

// And combines expressions with AND, left-to-right.
// Returns nil for no expressions and the expression itself for one.
func And(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = BinaryExpr{Left: result, Op: OpAnd, Right: e}
	}
	return result
}

// Or combines expressions with OR, left-to-right.
func Or(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = BinaryExpr{Left: result, Op: OpOr, Right: e}
	}
	return result
}

// Not negates an expression.
func Not(expr Expr) Expr { return UnaryExpr{Op: OpNot, Expr: expr} }

// IsNil builds expr IS NULL. Equality against nil is rejected; this is the
// explicit form.
func IsNil(expr Expr) Expr { return UnaryExpr{Op: OpIsNull, Expr: expr} }

// IsNotNil builds expr IS NOT NULL.
func IsNotNil(expr Expr) Expr { return UnaryExpr{Op: OpNotNull, Expr: expr} }

// Neg builds -expr.
func Neg(expr Expr) Expr { return UnaryExpr{Op: OpNeg, Expr: expr} }

// Fn builds a function call expression.
func Fn(name string, args ...Expr) FuncExpr { return FuncExpr{Name: name, Args: args} }

// Over applies a named window spec to a function call.
func Over(fn FuncExpr, window string) Expr { return OverExpr{Fn: fn, Window: window} }

// List builds a literal list constructor.
func List(elems ...Expr) Expr { return ListExpr{Elems: elems} }

// Cast builds CAST(expr AS typ).
func Cast(expr Expr, typ string) Expr { return CastExpr{Expr: expr, Type: typ} }

// Subquery embeds a query as an expression.
func Subquery(q *Query) Expr { return SubqueryExpr{Query: q} }

// Exists builds EXISTS (subquery).
func Exists(q *Query) Expr { return ExistsExpr{Query: q} }

// NotExists builds NOT EXISTS (subquery).
func NotExists(q *Query) Expr { return ExistsExpr{Query: q, Negated: true} }

// Compile-time verification that all expression types implement Expr.
var (
	_ Expr = LiteralExpr{}
	_ Expr = ParamExpr{}
	_ Expr = FieldExpr{}
	_ Expr = BinaryExpr{}
	_ Expr = UnaryExpr{}
	_ Expr = FuncExpr{}
	_ Expr = OverExpr{}
	_ Expr = FragmentExpr{}
	_ Expr = ListExpr{}
	_ Expr = CastExpr{}
	_ Expr = SubqueryExpr{}
	_ Expr = ExistsExpr{}
	_ Expr = fieldRef{}
	_ Expr = pinExpr{}
	_ Expr = kwExpr{}
	_ Expr = rawFragment{}
)
