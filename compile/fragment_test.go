package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	"github.com/gridbase/gridbase/schema"
)

func TestPhysicalTableNormalVsJunction(t *testing.T) {
	normal := &schema.Table{ID: "t"}
	junction := &schema.Table{ID: "j", IsJunction: true}
	assert.Equal(t, compile.RecordsTable, compile.PhysicalTable(normal))
	assert.Equal(t, compile.LinksTable, compile.PhysicalTable(junction))
}

func TestQualifiedColumnExprUserColumnIsJSONExtraction(t *testing.T) {
	m := newFixtureModel(t)
	c := compile.New(m, dialect.Postgres)
	tasks := m.Table("tasks")
	title := tasks.Column("title")

	expr, err := c.QualifiedColumnExpr(title, tasks, "r")
	require.NoError(t, err)
	assert.Contains(t, expr, `r."data"`)
	assert.Contains(t, expr, "->>")
	assert.Contains(t, expr, "title")
}

func TestQualifiedColumnExprSystemColumnIsPhysical(t *testing.T) {
	m := newFixtureModel(t)
	c := compile.New(m, dialect.Postgres)
	tasks := m.Table("tasks")
	createdAt, err := m.AddColumn(tasks.ID, schema.ColumnDef{ID: "created", Title: "Created", Kind: schema.KindCreatedTime})
	require.NoError(t, err)

	expr, err := c.QualifiedColumnExpr(createdAt, tasks, "r")
	require.NoError(t, err)
	assert.Equal(t, `r."created_at"`, expr)
}

func TestQualifiedColumnExprRejectsVirtualColumn(t *testing.T) {
	m := newFixtureModel(t)
	c := compile.New(m, dialect.Postgres)
	projects := m.Table("projects")
	rollup := projects.Column("total_hours")

	_, err := c.QualifiedColumnExpr(rollup, projects, "r")
	assert.Error(t, err)
}

func TestQualifiedColumnExprWithCastAddsNumericCast(t *testing.T) {
	m := newFixtureModel(t)
	c := compile.New(m, dialect.Postgres)
	tasks := m.Table("tasks")
	hours := tasks.Column("hours")

	expr, err := c.QualifiedColumnExprWithCast(hours, tasks, "r")
	require.NoError(t, err)
	assert.Contains(t, expr, "CAST(")
	assert.Contains(t, expr, "NUMERIC")
}

func TestCreateQueryBuilderAlwaysScopesByTableID(t *testing.T) {
	m := newFixtureModel(t)
	c := compile.New(m, dialect.Postgres)
	tasks := m.Table("tasks")

	sel := c.CreateQueryBuilder(tasks, "r", "*")
	query, args := sel.Query()
	assert.Contains(t, query, "WHERE")
	assert.Contains(t, query, `"r"."table_id"`)
	require.Len(t, args, 1)
	assert.Equal(t, "tasks", args[0])
}
