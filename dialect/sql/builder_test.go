package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/dialect"
)

func TestSelectorBasic(t *testing.T) {
	users := Table("users").As("u")
	query, args := Dialect(dialect.Postgres).
		Select("u.id", "u.name").
		From(users).
		Where(EQ("u.name", "ariel")).
		Query()
	assert.Equal(t, `SELECT "u"."id", "u"."name" FROM "users" AS "u" WHERE "u"."name" = $1`, query)
	assert.Equal(t, []any{"ariel"}, args)
}

func TestSelectorExpressionSelectionNotQuoted(t *testing.T) {
	query, _ := Dialect(dialect.Postgres).
		Select(`r."data" ->> 'title' AS "title"`).
		From(Table("records").As("r")).
		Query()
	assert.Contains(t, query, `r."data" ->> 'title' AS "title"`)
}

func TestMySQLQuoting(t *testing.T) {
	query, _ := Dialect(dialect.MySQL).
		Select("id").
		From(Table("users")).
		Where(EQ("name", "x")).
		Query()
	assert.Equal(t, "SELECT `id` FROM `users` WHERE `name` = ?", query)
}

func TestInSubqueryRenumbersPlaceholders(t *testing.T) {
	sub := Dialect(dialect.Postgres).
		Select("l.target_record_id").
		From(Table("links").As("l")).
		Where(EQ("l.link_field_id", "refs"))
	query, args := Dialect(dialect.Postgres).
		Select("*").
		From(Table("records").As("r")).
		Where(And(
			EQ("r.table_id", "b"),
			InSubquery("r.id", sub),
		)).
		Query()
	assert.Contains(t, query, `"r"."id" IN (SELECT`)
	// The subquery's placeholder continues the outer numbering.
	assert.Contains(t, query, `"l"."link_field_id" = $2`)
	assert.Equal(t, []any{"b", "refs"}, args)
}

func TestNotInSubquery(t *testing.T) {
	sub := Dialect(dialect.SQLite).Select("id").From(Table("links"))
	query, _ := Dialect(dialect.SQLite).
		Select("*").
		From(Table("records")).
		Where(NotInSubquery("id", sub)).
		Query()
	assert.Contains(t, query, "NOT IN (SELECT")
}

func TestUpdateWithExprValue(t *testing.T) {
	query, args := Dialect(dialect.Postgres).
		Update("records").
		Set("data", Expr(`"data"::jsonb || ?::jsonb`, `{"a":1}`)).
		Set("updated_at", "now").
		Where(EQ("id", "r1")).
		Query()
	assert.Equal(t, `UPDATE "records" SET "data" = "data"::jsonb || $1::jsonb, "updated_at" = $2 WHERE "id" = $3`, query)
	assert.Equal(t, []any{`{"a":1}`, "now", "r1"}, args)
}

func TestInsertOnConflict(t *testing.T) {
	query, args := Dialect(dialect.SQLite).
		Insert("links").
		Columns("id", "source_record_id").
		Values("l1", "a").
		OnConflict([]string{"source_record_id"}, []string{"id"}).
		Query()
	assert.Contains(t, query, `ON CONFLICT ("source_record_id") DO UPDATE SET "id" = EXCLUDED."id"`)
	require.Len(t, args, 2)
}

func TestInEmptyNeverMatches(t *testing.T) {
	query, _ := Dialect(dialect.SQLite).
		Select("*").
		From(Table("records")).
		Where(In("id")).
		Query()
	assert.Contains(t, query, "1 = 0")
}

func TestOrderByTermNullPlacement(t *testing.T) {
	query, _ := Dialect(dialect.Postgres).
		Select("*").
		From(Table("records")).
		OrderByTerm("score", true, "first").
		OrderByTerm("name", false, "last").
		Query()
	assert.Contains(t, query, `"score" DESC NULLS FIRST`)
	assert.Contains(t, query, `"name" ASC NULLS LAST`)
}
