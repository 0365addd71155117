package compile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/relsql/relsql/query"
	"github.com/relsql/relsql/query/plan"
)

func testRegistry() *query.Registry {
	return query.NewRegistry(
		&query.Schema{
			Name:       "Post",
			Source:     "posts",
			PrimaryKey: "id",
			Fields: map[string]query.Type{
				"id":        query.TypeID,
				"title":     query.TypeString,
				"views":     query.TypeInt,
				"author_id": query.TypeID,
			},
			Associations: map[string]query.Association{
				"comments": {Kind: query.HasMany, OwnerKey: "id", RelatedKey: "post_id", Target: "Comment"},
			},
		},
		&query.Schema{
			Name:       "Comment",
			Source:     "comments",
			PrimaryKey: "id",
			Fields: map[string]query.Type{
				"id":      query.TypeID,
				"post_id": query.TypeID,
				"body":    query.TypeString,
			},
		},
	)
}

// render normalizes and compiles q in one step, failing the test on error.
func render(t *testing.T, q *query.Query, op query.Op, d Dialect) Result {
	t.Helper()
	nq, err := plan.Normalize(q, op, testRegistry(), d)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	c := NewCompiler(d)
	var res Result
	switch op {
	case query.All:
		res, err = c.All(nq)
	case query.UpdateAll:
		res, err = c.UpdateAll(nq)
	case query.DeleteAll:
		res, err = c.DeleteAll(nq)
	}
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return res
}

func expectSQL(t *testing.T, res Result, sql string, values ...any) {
	t.Helper()
	if res.SQL != sql {
		t.Errorf("SQL mismatch\n got: %s\nwant: %s", res.SQL, sql)
	}
	if len(values) == 0 {
		if len(res.Params) != 0 {
			t.Errorf("expected no params, got %v", res.Values())
		}
		return
	}
	if !reflect.DeepEqual(res.Values(), values) {
		t.Errorf("params mismatch\n got: %v\nwant: %v", res.Values(), values)
	}
}

func TestSelectMySQLQuotingAndPlaceholders(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.Or(
			query.Eq(query.F("p", "title"), query.Pin("a")),
			query.Eq(query.F("p", "title"), query.Pin("b")),
		))

	res := render(t, q, query.All, MySQL)
	expectSQL(t, res,
		"SELECT p0.* FROM `posts` AS p0 WHERE ((p0.`title` = ?) OR (p0.`title` = ?))",
		"a", "b")
}

func TestSelectPostgresPlaceholderNumbering(t *testing.T) {
	q := query.FromSchema("Post", "p").
		Take("p", "id", "title").
		Where(query.Eq(query.F("p", "title"), query.Pin("x"))).
		OrderBy(query.Desc, query.F("p", "views")).
		Limit(query.Pin(10))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0."id", p0."title" FROM "posts" AS p0 WHERE (p0."title" = $1) ORDER BY p0."views" DESC LIMIT $2`,
		"x", 10)
}

func TestDefaultProjectionUsesSchemaFields(t *testing.T) {
	q := query.FromSchema("Comment", "c")

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res, `SELECT c0."body", c0."id", c0."post_id" FROM "comments" AS c0`)
}

func TestEmptyInRendersConstantFalse(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.In(query.F("p", "id"), query.Pin([]int{})))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res, `SELECT p0.* FROM "posts" AS p0 WHERE (0 = 1)`)
}

func TestEmptyNotInRendersConstantTrue(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.NotIn(query.F("p", "id"), query.Pin([]int{})))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res, `SELECT p0.* FROM "posts" AS p0 WHERE (1 = 1)`)
}

func TestInWithSplicedSlice(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.In(query.F("p", "id"), query.Pin([]int{7, 8, 9})))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0.* FROM "posts" AS p0 WHERE (p0."id" IN ($1, $2, $3))`,
		7, 8, 9)
}

func TestSubqueryParamsMergeInRenderOrder(t *testing.T) {
	sub := query.From("comments", "c").
		Select(query.F("c", "post_id")).
		Where(query.Eq(query.F("c", "body"), query.Pin("x")))
	q := query.From("posts", "p").
		Where(query.Eq(query.F("p", "views"), query.Pin(7))).
		Where(query.In(query.F("p", "id"), query.Subquery(sub)))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0.* FROM "posts" AS p0 WHERE (p0."views" = $1) AND (p0."id" IN (SELECT c0."post_id" FROM "comments" AS c0 WHERE (c0."body" = $2)))`,
		7, "x")
}

func TestJoinRendering(t *testing.T) {
	q := query.FromSchema("Post", "p").
		JoinAssoc(query.LeftJoin, "p", "comments", "c").
		Take("p", "id")

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0."id" FROM "posts" AS p0 LEFT OUTER JOIN "comments" AS c1 ON (p0."id" = c1."post_id")`)
}

func TestGroupByHavingAndFunctionCalls(t *testing.T) {
	q := query.From("posts", "p").
		Select(query.F("p", "author_id")).
		GroupBy(query.F("p", "author_id")).
		Having(query.Gt(query.Fn("count", query.F("p", "id")), query.Pin(5)))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0."author_id" FROM "posts" AS p0 GROUP BY p0."author_id" HAVING (count(p0."id") > $1)`,
		5)
}

func TestFragmentInterleavesLiteralsAndHoles(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.Fragment("lower(?) = ?", query.F("p", "title"), query.Pin("abc")))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0.* FROM "posts" AS p0 WHERE lower(p0."title") = $1`,
		"abc")
}

func TestDistinctOnPostgres(t *testing.T) {
	q := query.From("posts", "p").
		Distinct(query.F("p", "author_id")).
		Select(query.F("p", "author_id"))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT DISTINCT ON (p0."author_id") p0."author_id" FROM "posts" AS p0`)
}

func TestLockClauseIsAppendedLast(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.Eq(query.F("p", "id"), query.Pin(1))).
		Lock("FOR UPDATE")

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0.* FROM "posts" AS p0 WHERE (p0."id" = $1) FOR UPDATE`,
		1)
}

func TestRecursiveCTE(t *testing.T) {
	sub := query.From("nodes", "n")
	q := query.From("tree", "t").WithRecursive("tree", sub)

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`WITH RECURSIVE "tree" AS (SELECT n0.* FROM "nodes" AS n0) SELECT t0.* FROM "tree" AS t0`)
}

func TestWindowClause(t *testing.T) {
	q := query.From("posts", "p").
		Window("w",
			[]query.Expr{query.F("p", "author_id")},
			[]query.OrderExpr{{Expr: query.F("p", "views"), Dir: query.Desc}},
			"").
		Select(query.Over(query.Fn("row_number"), "w"))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT row_number() OVER "w" FROM "posts" AS p0 WINDOW "w" AS (PARTITION BY p0."author_id" ORDER BY p0."views" DESC)`)
}

func TestUpdateAllPostgresUsesFrom(t *testing.T) {
	q := query.FromSchema("Post", "p").
		JoinAssoc(query.InnerJoin, "p", "comments", "c").
		Set("title", query.Pin("t")).
		Where(query.Eq(query.F("c", "body"), query.Pin("spam")))

	res := render(t, q, query.UpdateAll, Postgres)
	expectSQL(t, res,
		`UPDATE "posts" AS p0 SET "title" = $1 FROM "comments" AS c1 WHERE (p0."id" = c1."post_id") AND (c1."body" = $2)`,
		"t", "spam")
}

func TestUpdateAllMySQLUsesJoin(t *testing.T) {
	q := query.FromSchema("Post", "p").
		JoinAssoc(query.InnerJoin, "p", "comments", "c").
		Set("title", query.Pin("t")).
		Where(query.Eq(query.F("c", "body"), query.Pin("spam")))

	res := render(t, q, query.UpdateAll, MySQL)
	expectSQL(t, res,
		"UPDATE `posts` AS p0 INNER JOIN `comments` AS c1 ON (p0.`id` = c1.`post_id`) SET p0.`title` = ? WHERE (c1.`body` = ?)",
		"t", "spam")
}

func TestUpdateAllIncrement(t *testing.T) {
	q := query.FromSchema("Post", "p").
		Inc("views", query.Pin(1)).
		Where(query.Eq(query.F("p", "id"), query.Pin(3)))

	res := render(t, q, query.UpdateAll, Postgres)
	expectSQL(t, res,
		`UPDATE "posts" AS p0 SET "views" = p0."views" + ($1) WHERE (p0."id" = $2)`,
		1, 3)
}

func TestUpdateAllWithoutFiltersAffectsAllRows(t *testing.T) {
	q := query.FromSchema("Post", "p").Set("views", query.Lit(0))

	res := render(t, q, query.UpdateAll, Postgres)
	expectSQL(t, res, `UPDATE "posts" AS p0 SET "views" = 0`)
}

func TestDeleteAllPostgresUsesUsing(t *testing.T) {
	q := query.FromSchema("Post", "p").
		JoinAssoc(query.InnerJoin, "p", "comments", "c").
		Where(query.Eq(query.F("c", "body"), query.Pin("spam")))

	res := render(t, q, query.DeleteAll, Postgres)
	expectSQL(t, res,
		`DELETE FROM "posts" AS p0 USING "comments" AS c1 WHERE (p0."id" = c1."post_id") AND (c1."body" = $1)`,
		"spam")
}

func TestDeleteAllMySQLUsesJoin(t *testing.T) {
	q := query.FromSchema("Post", "p").
		JoinAssoc(query.InnerJoin, "p", "comments", "c").
		Where(query.Eq(query.F("c", "body"), query.Pin("spam")))

	res := render(t, q, query.DeleteAll, MySQL)
	expectSQL(t, res,
		"DELETE p0 FROM `posts` AS p0 INNER JOIN `comments` AS c1 ON (p0.`id` = c1.`post_id`) WHERE (c1.`body` = ?)",
		"spam")
}

func TestDeleteAllPlain(t *testing.T) {
	q := query.From("posts", "p").Where(query.Lt(query.F("p", "views"), query.Pin(1)))

	res := render(t, q, query.DeleteAll, SQLite)
	expectSQL(t, res, `DELETE FROM "posts" AS p0 WHERE (p0."views" < ?)`, 1)
}

func TestInsertPostgres(t *testing.T) {
	c := NewCompiler(Postgres)
	res, err := c.Insert("posts",
		[]string{"title", "views"},
		[][]any{{"a", 1}, {"b", DefaultValue{}}},
		[]string{"id"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	expectSQL(t, res,
		`INSERT INTO "posts" ("title", "views") VALUES ($1, $2), ($3, DEFAULT) RETURNING "id"`,
		"a", 1, "b")
}

func TestInsertReturningRequiresCapability(t *testing.T) {
	c := NewCompiler(MySQL)
	_, err := c.Insert("posts", []string{"title"}, [][]any{{"a"}}, []string{"id"})
	if err == nil {
		t.Fatal("expected RETURNING on MySQL to fail")
	}
}

func TestInsertRowArityMismatch(t *testing.T) {
	c := NewCompiler(Postgres)
	_, err := c.Insert("posts", []string{"title", "views"}, [][]any{{"a"}}, nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestLiteralRendering(t *testing.T) {
	q := query.From("posts", "p").
		Where(query.Eq(query.F("p", "title"), query.Lit("it's"))).
		Where(query.Eq(query.F("p", "public"), query.Lit(true)))

	res := render(t, q, query.All, Postgres)
	expectSQL(t, res,
		`SELECT p0.* FROM "posts" AS p0 WHERE (p0."title" = 'it''s') AND (p0."public" = TRUE)`)
}

func TestCompileRejectsUnnormalizedQuery(t *testing.T) {
	q := query.From("posts", "p")
	_, err := NewCompiler(Postgres).All(q)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestRenderingIsDeterministic(t *testing.T) {
	q := query.FromSchema("Post", "p").
		Where(query.Eq(query.F("p", "title"), query.Pin("x"))).
		Where(query.In(query.F("p", "views"), query.Pin([]int{1, 2, 3}))).
		OrderBy(query.Asc, query.F("p", "id"))

	nq, err := plan.Normalize(q, query.All, testRegistry(), Postgres)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	c := NewCompiler(Postgres)
	first, err := c.All(nq)
	if err != nil {
		t.Fatalf("first compile failed: %v", err)
	}
	second, err := c.All(nq)
	if err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if first.SQL != second.SQL {
		t.Errorf("re-rendering produced different SQL:\n%s\n%s", first.SQL, second.SQL)
	}
	if !reflect.DeepEqual(first.Values(), second.Values()) {
		t.Errorf("re-rendering produced different params: %v vs %v", first.Values(), second.Values())
	}
}
