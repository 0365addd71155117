package compile

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UpdateJoinStyle selects the statement shape a dialect uses for update_all
// with joins.
type UpdateJoinStyle int

const (
	// UpdateJoinNone rejects joins in update_all.
	UpdateJoinNone UpdateJoinStyle = iota
	// UpdateJoinFrom renders UPDATE ... SET ... FROM joined WHERE on-conds.
	UpdateJoinFrom
	// UpdateJoinJoin renders UPDATE t JOIN joined ON ... SET ...
	UpdateJoinJoin
)

// DeleteJoinStyle selects the statement shape a dialect uses for delete_all
// with joins.
type DeleteJoinStyle int

const (
	// DeleteJoinNone rejects joins in delete_all.
	DeleteJoinNone DeleteJoinStyle = iota
	// DeleteJoinUsing renders DELETE FROM t USING joined WHERE on-conds.
	DeleteJoinUsing
	// DeleteJoinJoin renders DELETE t FROM t JOIN joined ON ...
	DeleteJoinJoin
)

// Dialect defines the SQL dialect-specific behavior for generation.
// Each dialect (Postgres, MySQL, SQLite) customizes identifier quoting,
// placeholders, literal encodings and capability flags. The generator owns
// 100% of quoting and escaping; callers never pre-escape anything.
type Dialect interface {
	// Name returns the dialect name for errors and logging.
	Name() string

	// QuoteIdentifier quotes a table, column or alias name, escaping any
	// embedded quote characters.
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the given index
	// (1-based). Postgres uses $1, $2, ...; MySQL and SQLite use ?.
	Placeholder(index int) string

	// BoolLiteral returns the SQL literal for a boolean value.
	BoolLiteral(v bool) string

	// StringLiteral returns a quoted string literal with the dialect's
	// escaping applied. Feeding the result back through the dialect's own
	// literal parsing reproduces the original string exactly.
	StringLiteral(s string) string

	// BytesLiteral returns a binary literal for the given bytes.
	BytesLiteral(b []byte) string

	// UUIDLiteral returns a literal for a UUID value.
	UUIDLiteral(u uuid.UUID) string

	// SupportsReturning reports whether INSERT supports a RETURNING clause.
	SupportsReturning() bool

	// SupportsUpdateJoins reports whether update_all may carry joins.
	SupportsUpdateJoins() bool

	// SupportsDeleteJoins reports whether delete_all may carry joins.
	SupportsDeleteJoins() bool

	// SupportsOuterJoinUpdate reports whether update_all joins may be
	// non-inner. Dialects rendering joins through FROM take inner joins only.
	SupportsOuterJoinUpdate() bool

	// SupportsOuterJoinDelete reports whether delete_all joins may be
	// non-inner. Dialects rendering joins through USING take inner joins only.
	SupportsOuterJoinDelete() bool

	// SupportsDistinctOn reports whether DISTINCT ON (exprs) is available;
	// dialects without it only accept a boolean DISTINCT.
	SupportsDistinctOn() bool

	// SupportsRecursiveCTE reports whether WITH RECURSIVE is available.
	SupportsRecursiveCTE() bool

	// UpdateJoinStyle returns the update_all join statement shape.
	UpdateJoinStyle() UpdateJoinStyle

	// DeleteJoinStyle returns the delete_all join statement shape.
	DeleteJoinStyle() DeleteJoinStyle
}

// =============================================================================
// Postgres Dialect
// =============================================================================

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	// Escape embedded double quotes by doubling them
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (d *PostgresDialect) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *PostgresDialect) BytesLiteral(b []byte) string {
	return `'\x` + hex.EncodeToString(b) + `'`
}

func (d *PostgresDialect) UUIDLiteral(u uuid.UUID) string {
	return "'" + u.String() + "'::uuid"
}

func (d *PostgresDialect) SupportsReturning() bool       { return true }
func (d *PostgresDialect) SupportsUpdateJoins() bool     { return true }
func (d *PostgresDialect) SupportsDeleteJoins() bool     { return true }
func (d *PostgresDialect) SupportsOuterJoinUpdate() bool { return false }
func (d *PostgresDialect) SupportsOuterJoinDelete() bool { return false }
func (d *PostgresDialect) SupportsDistinctOn() bool      { return true }
func (d *PostgresDialect) SupportsRecursiveCTE() bool    { return true }

func (d *PostgresDialect) UpdateJoinStyle() UpdateJoinStyle { return UpdateJoinFrom }
func (d *PostgresDialect) DeleteJoinStyle() DeleteJoinStyle { return DeleteJoinUsing }

// =============================================================================
// MySQL Dialect
// =============================================================================

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	// Escape embedded backticks by doubling them
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

func (d *MySQLDialect) Placeholder(index int) string {
	return "?"
}

func (d *MySQLDialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (d *MySQLDialect) StringLiteral(s string) string {
	// MySQL treats backslash as an escape character inside string literals,
	// so it must be escaped along with the quote.
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

func (d *MySQLDialect) BytesLiteral(b []byte) string {
	return "x'" + hex.EncodeToString(b) + "'"
}

func (d *MySQLDialect) UUIDLiteral(u uuid.UUID) string {
	return "'" + u.String() + "'"
}

func (d *MySQLDialect) SupportsReturning() bool       { return false } // MySQL uses LAST_INSERT_ID() instead
func (d *MySQLDialect) SupportsUpdateJoins() bool     { return true }
func (d *MySQLDialect) SupportsDeleteJoins() bool     { return true }
func (d *MySQLDialect) SupportsOuterJoinUpdate() bool { return true }
func (d *MySQLDialect) SupportsOuterJoinDelete() bool { return true }
func (d *MySQLDialect) SupportsDistinctOn() bool      { return false }
func (d *MySQLDialect) SupportsRecursiveCTE() bool    { return true }

func (d *MySQLDialect) UpdateJoinStyle() UpdateJoinStyle { return UpdateJoinJoin }
func (d *MySQLDialect) DeleteJoinStyle() DeleteJoinStyle { return DeleteJoinJoin }

// =============================================================================
// SQLite Dialect
// =============================================================================

// SQLiteDialect implements Dialect for SQLite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (d *SQLiteDialect) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *SQLiteDialect) BytesLiteral(b []byte) string {
	return "x'" + hex.EncodeToString(b) + "'"
}

func (d *SQLiteDialect) UUIDLiteral(u uuid.UUID) string {
	return "'" + u.String() + "'"
}

func (d *SQLiteDialect) SupportsReturning() bool       { return true } // SQLite 3.35+
func (d *SQLiteDialect) SupportsUpdateJoins() bool     { return false }
func (d *SQLiteDialect) SupportsDeleteJoins() bool     { return false }
func (d *SQLiteDialect) SupportsOuterJoinUpdate() bool { return false }
func (d *SQLiteDialect) SupportsOuterJoinDelete() bool { return false }
func (d *SQLiteDialect) SupportsDistinctOn() bool      { return false }
func (d *SQLiteDialect) SupportsRecursiveCTE() bool    { return true }

func (d *SQLiteDialect) UpdateJoinStyle() UpdateJoinStyle { return UpdateJoinNone }
func (d *SQLiteDialect) DeleteJoinStyle() DeleteJoinStyle { return DeleteJoinNone }

// =============================================================================
// Dialect Singletons
// =============================================================================

var (
	// Postgres is the singleton PostgreSQL dialect.
	Postgres Dialect = &PostgresDialect{}

	// MySQL is the singleton MySQL dialect.
	MySQL Dialect = &MySQLDialect{}

	// SQLite is the singleton SQLite dialect.
	SQLite Dialect = &SQLiteDialect{}
)

// ByName returns the dialect registered under the given name.
func ByName(name string) (Dialect, bool) {
	switch name {
	case "postgres":
		return Postgres, true
	case "mysql":
		return MySQL, true
	case "sqlite":
		return SQLite, true
	default:
		return nil, false
	}
}
