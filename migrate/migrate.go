// Package migrate renders structured DDL commands to dialect-specific SQL
// statements. A command normally renders to one statement; where a dialect
// needs several (index recreation, default re-application) the statements are
// returned in execution order and must not be reordered.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relsql/relsql/ddl"
	"github.com/relsql/relsql/query/compile"
)

// ErrUnsupported reports a DDL operation the target dialect cannot express.
var ErrUnsupported = errors.New("relsql: DDL operation not supported by dialect")

// renderer is the per-dialect DDL generator.
type renderer interface {
	createTable(t ddl.Table) ([]string, error)
	alterTable(table string, ops []ddl.Operation) ([]string, error)
	createIndex(table string, idx ddl.Index) string
	dropIndex(table, name string) string
	dropTable(name string) string
}

// RenderDDL renders a schema-change command for the given dialect.
func RenderDDL(cmd ddl.Command, d compile.Dialect) ([]string, error) {
	var r renderer
	switch d.Name() {
	case "postgres":
		r = postgresRenderer{d: d}
	case "mysql":
		r = mysqlRenderer{d: d}
	case "sqlite":
		r = sqliteRenderer{d: d}
	default:
		return nil, fmt.Errorf("relsql: no DDL renderer for dialect %q", d.Name())
	}

	switch c := cmd.(type) {
	case ddl.CreateTable:
		return r.createTable(c.Table)
	case ddl.AlterTable:
		return r.alterTable(c.Table, c.Ops)
	case ddl.CreateIndex:
		return []string{r.createIndex(c.Table, c.Index)}, nil
	case ddl.DropIndex:
		return []string{r.dropIndex(c.Table, c.Name)}, nil
	case ddl.DropTable:
		return []string{r.dropTable(c.Name)}, nil
	default:
		return nil, fmt.Errorf("relsql: unknown DDL command %T", cmd)
	}
}

// quotedColumns renders a parenthesized, quoted column list.
func quotedColumns(d compile.Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// indexStatement renders CREATE [UNIQUE] INDEX name ON table (cols). Shared
// verbatim across dialects.
func indexStatement(d compile.Dialect, table string, idx ddl.Index) string {
	var sb strings.Builder
	if idx.Unique {
		sb.WriteString("CREATE UNIQUE INDEX ")
	} else {
		sb.WriteString("CREATE INDEX ")
	}
	sb.WriteString(d.QuoteIdentifier(idx.Name))
	sb.WriteString(" ON ")
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" ")
	sb.WriteString(quotedColumns(d, idx.Columns))
	return sb.String()
}

// defaultLiteral renders a column default. Booleans and numerics follow the
// dialect's literal forms; everything else is a quoted string.
func defaultLiteral(d compile.Dialect, colType, val string) string {
	switch colType {
	case ddl.BooleanType:
		return d.BoolLiteral(val == "true")
	case ddl.IntegerType, ddl.BigintType, ddl.FloatType, ddl.DecimalType:
		return val
	default:
		return d.StringLiteral(val)
	}
}

// columnDef renders a column definition given the dialect's type mapping.
func columnDef(d compile.Dialect, col *ddl.Column, typeFor func(*ddl.Column) string) string {
	parts := []string{d.QuoteIdentifier(col.Name), typeFor(col)}
	if !col.Nullable && !col.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.Unique && !col.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", defaultLiteral(d, col.Type, *col.Default))
	}
	return strings.Join(parts, " ")
}

// createTableStatement renders the CREATE TABLE body; dialect-specific
// suffixes (storage engine, charset) are appended by the caller.
func createTableStatement(d compile.Dialect, t ddl.Table, typeFor func(*ddl.Column) string) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(d.QuoteIdentifier(t.Name))
	sb.WriteString(" (")
	for i := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnDef(d, &t.Columns[i], typeFor))
	}
	sb.WriteString(")")
	return sb.String()
}
