package migrate

import (
	"fmt"

	"github.com/relsql/relsql/ddl"
	"github.com/relsql/relsql/query/compile"
)

// mysqlRenderer generates MySQL DDL.
type mysqlRenderer struct {
	d compile.Dialect
}

// mysqlType maps abstract column types to MySQL types.
func mysqlType(col *ddl.Column) string {
	switch col.Type {
	case ddl.IntegerType:
		return "INT"
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
		return "TINYINT(1)"
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
		return "DOUBLE"
	case ddl.DatetimeType:
		return "DATETIME"
	case ddl.TimestampType:
		return "TIMESTAMP"
	case ddl.BinaryType:
		return "BLOB"
	case ddl.UUIDType:
		return "CHAR(36)"
	case ddl.JSONType:
		return "JSON"
	default:
		return "TEXT"
	}
}

func (r mysqlRenderer) createTable(t ddl.Table) ([]string, error) {
	stmts := []string{createTableStatement(r.d, t, mysqlType) + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"}
	for _, idx := range t.Indexes {
		stmts = append(stmts, indexStatement(r.d, t.Name, idx))
	}
	return stmts, nil
}

func (r mysqlRenderer) alterTable(table string, ops []ddl.Operation) ([]string, error) {
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

func (r mysqlRenderer) operation(table string, op *ddl.Operation) ([]string, error) {
	q := r.d.QuoteIdentifier
	switch op.Kind {
	case ddl.OpAddColumn:
		if op.ColumnDef == nil {
			return nil, fmt.Errorf("relsql: add_column on %q has no column definition", table)
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			q(table), columnDef(r.d, op.ColumnDef, mysqlType))}, nil

	case ddl.OpDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			q(table), q(op.Column))}, nil

	case ddl.OpRenameColumn:
		// MySQL 8.0 syntax; older servers need CHANGE COLUMN with the full
		// column definition.
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			q(table), q(op.Column), q(op.NewName))}, nil

	case ddl.OpChangeType:
		// MODIFY COLUMN drops the existing default, so a kept default is
		// re-applied in a second statement. Order matters.
		stmts := []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s",
			q(table), q(op.Column), mysqlType(&ddl.Column{Type: op.NewType}))}
		if op.Default != nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
				q(table), q(op.Column), defaultLiteral(r.d, op.NewType, *op.Default)))
		}
		return stmts, nil

	case ddl.OpChangeNullable:
		// MODIFY COLUMN must re-state the column type.
		if op.Nullable == nil {
			return nil, fmt.Errorf("relsql: change_nullable on %q.%q has no nullability", table, op.Column)
		}
		if op.NewType == "" {
			return nil, fmt.Errorf("%w: mysql change_nullable on %q.%q requires the column type",
				ErrUnsupported, table, op.Column)
		}
		null := "NOT NULL"
		if *op.Nullable {
			null = "NULL"
		}
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s %s",
			q(table), q(op.Column), mysqlType(&ddl.Column{Type: op.NewType}), null)}, nil

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
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s",
			q(table), q(op.IndexName), q(op.NewName))}, nil

	default:
		return nil, fmt.Errorf("relsql: unknown DDL operation %q", op.Kind)
	}
}

func (r mysqlRenderer) createIndex(table string, idx ddl.Index) string {
	return indexStatement(r.d, table, idx)
}

func (r mysqlRenderer) dropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s",
		r.d.QuoteIdentifier(name), r.d.QuoteIdentifier(table))
}

func (r mysqlRenderer) dropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", r.d.QuoteIdentifier(name))
}
