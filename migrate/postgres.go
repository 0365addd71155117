package migrate

import (
	"fmt"

	"github.com/relsql/relsql/ddl"
	"github.com/relsql/relsql/query/compile"
)

// postgresRenderer generates PostgreSQL DDL.
type postgresRenderer struct {
	d compile.Dialect
}

// postgresType maps abstract column types to PostgreSQL types.
func postgresType(col *ddl.Column) string {
	switch col.Type {
	case ddl.IntegerType:
		return "INTEGER"
	case ddl.BigintType:
		return "BIGINT"
	case ddl.StringType:
		length := 255
		if col.Length != nil {
			length = *col.Length
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case ddl.TextType:
		return "TEXT"
	case ddl.BooleanType:
		return "BOOLEAN"
	case ddl.DecimalType:
		precision, scale := 10, 0
		if col.Precision != nil {
			precision = *col.Precision
		}
		if col.Scale != nil {
			scale = *col.Scale
		}
		return fmt.Sprintf("DECIMAL(%d, %d)", precision, scale)
	case ddl.FloatType:
		return "DOUBLE PRECISION"
	case ddl.DatetimeType, ddl.TimestampType:
		return "TIMESTAMP WITH TIME ZONE"
	case ddl.BinaryType:
		return "BYTEA"
	case ddl.UUIDType:
		return "UUID"
	case ddl.JSONType:
		return "JSONB"
	default:
		return "TEXT"
	}
}

func (r postgresRenderer) createTable(t ddl.Table) ([]string, error) {
	stmts := []string{createTableStatement(r.d, t, postgresType)}
	for _, idx := range t.Indexes {
		stmts = append(stmts, indexStatement(r.d, t.Name, idx))
	}
	return stmts, nil
}

func (r postgresRenderer) alterTable(table string, ops []ddl.Operation) ([]string, error) {
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

func (r postgresRenderer) operation(table string, op *ddl.Operation) ([]string, error) {
	q := r.d.QuoteIdentifier
	switch op.Kind {
	case ddl.OpAddColumn:
		if op.ColumnDef == nil {
			return nil, fmt.Errorf("relsql: add_column on %q has no column definition", table)
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			q(table), columnDef(r.d, op.ColumnDef, postgresType))}, nil

	case ddl.OpDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			q(table), q(op.Column))}, nil

	case ddl.OpRenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			q(table), q(op.Column), q(op.NewName))}, nil

	case ddl.OpChangeType:
		stmts := []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			q(table), q(op.Column), postgresType(&ddl.Column{Type: op.NewType}))}
		if op.Default != nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
				q(table), q(op.Column), defaultLiteral(r.d, op.NewType, *op.Default)))
		}
		return stmts, nil

	case ddl.OpChangeNullable:
		if op.Nullable == nil {
			return nil, fmt.Errorf("relsql: change_nullable on %q.%q has no nullability", table, op.Column)
		}
		action := "SET NOT NULL"
		if *op.Nullable {
			action = "DROP NOT NULL"
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s",
			q(table), q(op.Column), action)}, nil

	case ddl.OpChangeDefault:
		if op.Default == nil {
			return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT",
				q(table), q(op.Column))}, nil
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
			q(table), q(op.Column), defaultLiteral(r.d, op.NewType, *op.Default))}, nil

	case ddl.OpAddIndex:
		if op.IndexDef == nil {
			return nil, fmt.Errorf("relsql: add_index on %q has no index definition", table)
		}
		return []string{indexStatement(r.d, table, *op.IndexDef)}, nil

	case ddl.OpDropIndex:
		return []string{r.dropIndex(table, op.IndexName)}, nil

	case ddl.OpRenameIndex:
		return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s",
			q(op.IndexName), q(op.NewName))}, nil

	default:
		return nil, fmt.Errorf("relsql: unknown DDL operation %q", op.Kind)
	}
}

func (r postgresRenderer) createIndex(table string, idx ddl.Index) string {
	return indexStatement(r.d, table, idx)
}

func (r postgresRenderer) dropIndex(_, name string) string {
	return fmt.Sprintf("DROP INDEX %s", r.d.QuoteIdentifier(name))
}

func (r postgresRenderer) dropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", r.d.QuoteIdentifier(name))
}
