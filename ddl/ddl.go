// Package ddl defines structured schema-change commands. Commands are plain
// data; the migrate package renders them to dialect-specific SQL.
package ddl

import "strings"

// Column type constants, mapped to concrete SQL types per dialect at render
// time.
const (
	IntegerType   = "integer"
	BigintType    = "bigint"
	DecimalType   = "decimal"
	FloatType     = "float"
	BooleanType   = "boolean"
	StringType    = "string"
	TextType      = "text"
	DatetimeType  = "datetime"
	TimestampType = "timestamp"
	BinaryType    = "binary"
	UUIDType      = "uuid"
	JSONType      = "json"
)

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       string
	Length     *int
	Precision  *int
	Scale      *int
	Nullable   bool
	Default    *string // nil = no default
	Unique     bool
	PrimaryKey bool
}

// Index describes an index over one or more columns.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is a full table definition.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// IndexName derives a conventional index name from table and column names.
func IndexName(table string, columns []string) string {
	return "idx_" + table + "_" + strings.Join(columns, "_")
}

// OpKind identifies an alter-table operation.
type OpKind string

const (
	OpAddColumn      OpKind = "add_column"
	OpDropColumn     OpKind = "drop_column"
	OpRenameColumn   OpKind = "rename_column"
	OpChangeType     OpKind = "change_type"
	OpChangeNullable OpKind = "change_nullable"
	OpChangeDefault  OpKind = "change_default"
	OpAddIndex       OpKind = "add_index"
	OpDropIndex      OpKind = "drop_index"
	OpRenameIndex    OpKind = "rename_index"
)

// Operation is one alter-table step. Which fields are read depends on Kind:
//
//   - add_column: ColumnDef
//   - drop_column, rename_column: Column (and NewName for rename)
//   - change_type: Column, NewType; Default when the new type should keep a
//     default (some dialects need a separate statement for that)
//   - change_nullable: Column, Nullable, NewType (dialects that re-state the
//     type on nullability changes need it)
//   - change_default: Column, Default (nil drops the default)
//   - add_index: IndexDef
//   - drop_index: IndexName
//   - rename_index: IndexName, NewName; IndexDef for dialects that can only
//     drop and recreate
type Operation struct {
	Kind      OpKind
	Column    string
	NewName   string
	NewType   string
	Nullable  *bool
	Default   *string
	ColumnDef *Column
	IndexDef  *Index
	IndexName string
}

// Command is a schema-change instruction.
type Command interface {
	ddlCommand()
}

// CreateTable creates a table and its declared indexes.
type CreateTable struct {
	Table Table
}

// AlterTable applies an ordered sequence of operations to a table.
type AlterTable struct {
	Table string
	Ops   []Operation
}

// CreateIndex creates a standalone index.
type CreateIndex struct {
	Table string
	Index Index
}

// DropIndex drops an index by name.
type DropIndex struct {
	Table string
	Name  string
}

// DropTable drops a table.
type DropTable struct {
	Name string
}

func (CreateTable) ddlCommand() {}
func (AlterTable) ddlCommand()  {}
func (CreateIndex) ddlCommand() {}
func (DropIndex) ddlCommand()   {}
func (DropTable) ddlCommand()   {}

var (
	_ Command = CreateTable{}
	_ Command = AlterTable{}
	_ Command = CreateIndex{}
	_ Command = DropIndex{}
	_ Command = DropTable{}
)
