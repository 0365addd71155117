package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is the sentinel all construction and planning errors match
// through errors.Is. Queries carrying such an error never reach the SQL
// generator.
var ErrInvalidQuery = errors.New("relsql: invalid query")

// Error is a generic query construction or planning error.
type Error struct {
	Message string
}

// Error returns the error string.
func (e *Error) Error() string { return "relsql: " + e.Message }

// Is reports whether the target matches the invalid-query sentinel.
func (e *Error) Is(err error) bool { return err == ErrInvalidQuery }

// UnboundVariableError reports a binding name that does not resolve to any
// source of the query.
type UnboundVariableError struct {
	Name string
}

// Error returns the error string, naming the offending binding.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("relsql: unbound binding %q in query expression", e.Name)
}

// Is reports whether the target matches the invalid-query sentinel.
func (e *UnboundVariableError) Is(err error) bool { return err == ErrInvalidQuery }

// NilComparisonError reports an equality comparison against nil, which is
// always false in SQL. Callers must use IsNil/IsNotNil instead.
type NilComparisonError struct {
	Field string
}

// Error returns the error string.
func (e *NilComparisonError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("relsql: comparing %q with nil is forbidden as it is always false; use IsNil or IsNotNil instead", e.Field)
	}
	return "relsql: comparison with nil is forbidden as it is always false; use IsNil or IsNotNil instead"
}

// Is reports whether the target matches the invalid-query sentinel.
func (e *NilComparisonError) Is(err error) bool { return err == ErrInvalidQuery }

// InvalidDirectionError reports an unknown order_by direction tag.
type InvalidDirectionError struct {
	Got string
}

// Error returns the error string, naming the valid direction set.
func (e *InvalidDirectionError) Error() string {
	valid := make([]string, len(directions))
	for i, d := range directions {
		valid[i] = string(d)
	}
	return fmt.Sprintf("relsql: unknown order direction %q (valid directions: %s)", e.Got, strings.Join(valid, ", "))
}

// Is reports whether the target matches the invalid-query sentinel.
func (e *InvalidDirectionError) Is(err error) bool { return err == ErrInvalidQuery }

// IsInvalidQuery returns true for any construction or planning error.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}
