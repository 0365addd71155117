package migrate

import (
	"fmt"

	"github.com/relsql/relsql/ddl"
	"github.com/relsql/relsql/query/compile"
)

// sqliteRenderer generates SQLite DDL. SQLite's ALTER TABLE is limited:
// column type, nullability, and default changes need a full table rebuild,
// which this renderer refuses rather than guessing at.
type sqliteRenderer struct {
	d compile.Dialect
}

// sqliteType maps abstract column types to SQLite storage classes.
func sqliteType(col *ddl.Column) string {
	switch col.Type {
	case ddl.IntegerType, ddl.BigintType, ddl.BooleanType:
		return "INTEGER"
	case ddl.DecimalType, ddl.FloatType:
		return "REAL"
	case ddl.BinaryType:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (r sqliteRenderer) createTable(t ddl.Table) ([]string, error) {
	stmts := []string{createTableStatement(r.d, t, sqliteType)}
	for _, idx := range t.Indexes {
		stmts = append(stmts, indexStatement(r.d, t.Name, idx))
	}
	return stmts, nil
}

func (r sqliteRenderer) alterTable(table string, ops []ddl.Operation) ([]string, error) {
	var stmts []string
	for i := range ops {
		rendered, err := r.operation(table, &ops[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, rendered...)
	}
	return stmts, nil
}

func (r sqliteRenderer) operation(table string, op *ddl.Operation) ([]string, error) {
	q := r.d.QuoteIdentifier
	switch op.Kind {
	case ddl.OpAddColumn:
		if op.ColumnDef == nil {
			return nil, fmt.Errorf("relsql: add_column on %q has no column definition", table)
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			q(table), columnDef(r.d, op.ColumnDef, sqliteType))}, nil

	case ddl.OpDropColumn:
		// SQLite 3.35+.
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			q(table), q(op.Column))}, nil

	case ddl.OpRenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			q(table), q(op.Column), q(op.NewName))}, nil

	case ddl.OpChangeType, ddl.OpChangeNullable, ddl.OpChangeDefault:
		return nil, fmt.Errorf("%w: sqlite %s on %q.%q requires a table rebuild",
			ErrUnsupported, op.Kind, table, op.Column)

	case ddl.OpAddIndex:
		if op.IndexDef == nil {
			return nil, fmt.Errorf("relsql: add_index on %q has no index definition", table)
		}
		return []string{indexStatement(r.d, table, *op.IndexDef)}, nil

	case ddl.OpDropIndex:
		return []string{r.dropIndex(table, op.IndexName)}, nil

	case ddl.OpRenameIndex:
		// No ALTER INDEX: drop and recreate, in that order.
		if op.IndexDef == nil {
			return nil, fmt.Errorf("%w: sqlite rename_index on %q needs the index definition to recreate it",
				ErrUnsupported, op.IndexName)
		}
		recreated := *op.IndexDef
		recreated.Name = op.NewName
		return []string{
			r.dropIndex(table, op.IndexName),
			indexStatement(r.d, table, recreated),
		}, nil

	default:
		return nil, fmt.Errorf("relsql: unknown DDL operation %q", op.Kind)
	}
}

func (r sqliteRenderer) createIndex(table string, idx ddl.Index) string {
	return indexStatement(r.d, table, idx)
}

func (r sqliteRenderer) dropIndex(_, name string) string {
	return fmt.Sprintf("DROP INDEX %s", r.d.QuoteIdentifier(name))
}

func (r sqliteRenderer) dropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", r.d.QuoteIdentifier(name))
}
