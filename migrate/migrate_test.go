package migrate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/relsql/relsql/ddl"
	"github.com/relsql/relsql/query/compile"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func articlesTable() ddl.Table {
	return ddl.Table{
		Name: "articles",
		Columns: []ddl.Column{
			{Name: "id", Type: ddl.BigintType, PrimaryKey: true},
			{Name: "title", Type: ddl.StringType, Length: intPtr(120)},
			{Name: "body", Type: ddl.TextType, Nullable: true},
			{Name: "published", Type: ddl.BooleanType, Default: strPtr("false")},
		},
		Indexes: []ddl.Index{
			{Name: ddl.IndexName("articles", []string{"title"}), Columns: []string{"title"}, Unique: true},
		},
	}
}

func TestCreateTablePostgres(t *testing.T) {
	stmts, err := RenderDDL(ddl.CreateTable{Table: articlesTable()}, compile.Postgres)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := []string{
		`CREATE TABLE "articles" ("id" BIGINT PRIMARY KEY, "title" VARCHAR(120) NOT NULL, "body" TEXT, "published" BOOLEAN NOT NULL DEFAULT FALSE)`,
		`CREATE UNIQUE INDEX "idx_articles_title" ON "articles" ("title")`,
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Errorf("statements mismatch\n got: %v\nwant: %v", stmts, want)
	}
}

func TestCreateTableMySQL(t *testing.T) {
	stmts, err := RenderDDL(ddl.CreateTable{Table: articlesTable()}, compile.MySQL)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := []string{
		"CREATE TABLE `articles` (`id` BIGINT PRIMARY KEY, `title` VARCHAR(120) NOT NULL, `body` TEXT, `published` TINYINT(1) NOT NULL DEFAULT 0) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		"CREATE UNIQUE INDEX `idx_articles_title` ON `articles` (`title`)",
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Errorf("statements mismatch\n got: %v\nwant: %v", stmts, want)
	}
}

func TestCreateTableSQLiteUsesStorageClasses(t *testing.T) {
	stmts, err := RenderDDL(ddl.CreateTable{Table: articlesTable()}, compile.SQLite)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := `CREATE TABLE "articles" ("id" INTEGER PRIMARY KEY, "title" TEXT NOT NULL, "body" TEXT, "published" INTEGER NOT NULL DEFAULT 0)`
	if stmts[0] != want {
		t.Errorf("create table mismatch\n got: %s\nwant: %s", stmts[0], want)
	}
}

func TestAlterTableAddAndDropColumn(t *testing.T) {
	cmd := ddl.AlterTable{
		Table: "articles",
		Ops: []ddl.Operation{
			{Kind: ddl.OpAddColumn, ColumnDef: &ddl.Column{Name: "views", Type: ddl.IntegerType, Default: strPtr("0")}},
			{Kind: ddl.OpDropColumn, Column: "body"},
			{Kind: ddl.OpRenameColumn, Column: "title", NewName: "headline"},
		},
	}
	stmts, err := RenderDDL(cmd, compile.Postgres)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := []string{
		`ALTER TABLE "articles" ADD COLUMN "views" INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE "articles" DROP COLUMN "body"`,
		`ALTER TABLE "articles" RENAME COLUMN "title" TO "headline"`,
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Errorf("statements mismatch\n got: %v\nwant: %v", stmts, want)
	}
}

func TestChangeNullablePostgres(t *testing.T) {
	cmd := ddl.AlterTable{Table: "articles", Ops: []ddl.Operation{
		{Kind: ddl.OpChangeNullable, Column: "body", Nullable: boolPtr(false)},
	}}
	stmts, err := RenderDDL(cmd, compile.Postgres)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	if stmts[0] != `ALTER TABLE "articles" ALTER COLUMN "body" SET NOT NULL` {
		t.Errorf("unexpected statement: %s", stmts[0])
	}
}

func TestMySQLChangeTypeReappliesDefault(t *testing.T) {
	cmd := ddl.AlterTable{Table: "articles", Ops: []ddl.Operation{
		{Kind: ddl.OpChangeType, Column: "views", NewType: ddl.BigintType, Default: strPtr("0")},
	}}
	stmts, err := RenderDDL(cmd, compile.MySQL)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := []string{
		"ALTER TABLE `articles` MODIFY COLUMN `views` BIGINT",
		"ALTER TABLE `articles` ALTER COLUMN `views` SET DEFAULT 0",
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Errorf("statements mismatch\n got: %v\nwant: %v", stmts, want)
	}
}

func TestMySQLChangeNullableRequiresType(t *testing.T) {
	cmd := ddl.AlterTable{Table: "articles", Ops: []ddl.Operation{
		{Kind: ddl.OpChangeNullable, Column: "body", Nullable: boolPtr(true)},
	}}
	_, err := RenderDDL(cmd, compile.MySQL)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestSQLiteRenameIndexDropsAndRecreates(t *testing.T) {
	cmd := ddl.AlterTable{Table: "articles", Ops: []ddl.Operation{
		{
			Kind:      ddl.OpRenameIndex,
			IndexName: "idx_articles_title",
			NewName:   "idx_articles_headline",
			IndexDef:  &ddl.Index{Name: "idx_articles_title", Columns: []string{"title"}, Unique: true},
		},
	}}
	stmts, err := RenderDDL(cmd, compile.SQLite)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	want := []string{
		`DROP INDEX "idx_articles_title"`,
		`CREATE UNIQUE INDEX "idx_articles_headline" ON "articles" ("title")`,
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Errorf("statements mismatch\n got: %v\nwant: %v", stmts, want)
	}
}

func TestSQLiteRejectsColumnRewrites(t *testing.T) {
	cmd := ddl.AlterTable{Table: "articles", Ops: []ddl.Operation{
		{Kind: ddl.OpChangeType, Column: "views", NewType: ddl.BigintType},
	}}
	_, err := RenderDDL(cmd, compile.SQLite)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDropIndexPerDialect(t *testing.T) {
	stmts, err := RenderDDL(ddl.DropIndex{Table: "articles", Name: "idx_articles_title"}, compile.MySQL)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	if stmts[0] != "DROP INDEX `idx_articles_title` ON `articles`" {
		t.Errorf("mysql drop index = %s", stmts[0])
	}

	stmts, err = RenderDDL(ddl.DropIndex{Table: "articles", Name: "idx_articles_title"}, compile.Postgres)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	if stmts[0] != `DROP INDEX "idx_articles_title"` {
		t.Errorf("postgres drop index = %s", stmts[0])
	}
}

func TestDropTable(t *testing.T) {
	stmts, err := RenderDDL(ddl.DropTable{Name: "articles"}, compile.SQLite)
	if err != nil {
		t.Fatalf("RenderDDL failed: %v", err)
	}
	if stmts[0] != `DROP TABLE "articles"` {
		t.Errorf("drop table = %s", stmts[0])
	}
}
