package gridbase_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/gridbase/gridbase"
	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/record"
	"github.com/gridbase/gridbase/schema"
)

const physicalDDL = `
CREATE TABLE records (
	id TEXT PRIMARY KEY,
	table_id TEXT NOT NULL,
	data TEXT,
	created_at TIMESTAMP,
	updated_at TIMESTAMP,
	created_by TEXT,
	updated_by TEXT
);
CREATE TABLE links (
	id TEXT PRIMARY KEY,
	source_record_id TEXT NOT NULL,
	target_record_id TEXT NOT NULL,
	link_field_id TEXT NOT NULL,
	inverse_field_id TEXT,
	created_at TIMESTAMP,
	UNIQUE (link_field_id, source_record_id, target_record_id)
);
`

func openDriver(t *testing.T) *sqlb.Driver {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(physicalDDL)
	require.NoError(t, err)
	drv := sqlb.OpenDB(dialect.SQLite, db)
	t.Cleanup(func() { _ = drv.Close() })
	return drv
}

// newTasksModel builds a tasks table with a rollup over MM subtasks and a
// formula column.
func newTasksModel(t *testing.T) *schema.Model {
	t.Helper()
	m := schema.NewModel()
	tasks, err := m.CreateTable(schema.TableDef{ID: "tasks", Title: "Tasks"})
	require.NoError(t, err)
	for _, def := range []schema.ColumnDef{
		{ID: "title", Title: "Title", Kind: schema.KindText},
		{ID: "priority", Title: "Priority", Kind: schema.KindNumber},
		{ID: "done", Title: "Done", Kind: schema.KindCheckbox},
	} {
		_, err = m.AddColumn(tasks.ID, def)
		require.NoError(t, err)
	}
	_, _, err = m.CreateLink(schema.CreateLinkDef{
		SourceTableID: "tasks", TargetTableID: "tasks", Title: "subtasks",
		Type: schema.LinkManyToMany,
	})
	require.NoError(t, err)
	_, err = m.AddColumn(tasks.ID, schema.ColumnDef{
		ID: "total", Title: "Total", Kind: schema.KindRollup,
		Rollup: &schema.RollupOptions{
			RelationColumnID: "subtasks", TargetColumnID: "title",
			Aggregation: schema.AggCount,
		},
	})
	require.NoError(t, err)
	_, err = m.AddColumn(tasks.ID, schema.ColumnDef{
		ID: "label", Title: "Label", Kind: schema.KindFormula,
		Formula: &schema.FormulaOptions{Expression: `CONCAT(UPPER({Title}), ' (', {Priority}, ')')`},
	})
	require.NoError(t, err)
	return m
}

func TestBundleComposition(t *testing.T) {
	drv := openDriver(t)
	m := newTasksModel(t)

	minimal := gridbase.New(drv, m, gridbase.WithBundle(gridbase.BundleMinimal))
	assert.NotNil(t, minimal.Records)
	assert.Nil(t, minimal.Links)
	assert.Nil(t, minimal.Loader())
	assert.Nil(t, minimal.Copies)
	assert.Nil(t, minimal.Schemas)

	full := gridbase.New(drv, m, gridbase.WithBundle(gridbase.BundleFull))
	assert.NotNil(t, full.Records)
	assert.NotNil(t, full.Links)
	assert.NotNil(t, full.Loader())
	assert.NotNil(t, full.Copies)
	assert.NotNil(t, full.Schemas)
}

func TestFilteredListWithVirtualSort(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	// Five tasks with priorities 1..5 and 0..4 subtasks each.
	for i := 1; i <= 5; i++ {
		task, err := client.Records.Insert(ctx, "tasks", record.Record{
			"Title": fmt.Sprintf("task-%d", i), "Priority": i,
		})
		require.NoError(t, err)
		var subIDs []string
		for j := 1; j < i; j++ {
			sub, err := client.Records.Insert(ctx, "tasks", record.Record{
				"Title": fmt.Sprintf("sub-%d-%d", i, j), "Priority": 0,
			})
			require.NoError(t, err)
			subIDs = append(subIDs, sub.ID())
		}
		if len(subIDs) > 0 {
			require.NoError(t, client.Links.MMLink(ctx, "tasks", "subtasks", task.ID(), subIDs))
		}
	}

	recs, err := client.Records.List(ctx, "tasks", record.ListArgs{
		Filter: &compile.Filter{ColumnRef: "priority", Op: "gte", Value: 3},
		Sorts:  []compile.SortTerm{{ColumnRef: "total", Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "task-5", recs[0]["title"])
	assert.Equal(t, "task-4", recs[1]["title"])
	assert.Equal(t, "task-3", recs[2]["title"])
	assert.EqualValues(t, 4, recs[0]["total"])
}

func TestFormulaProjection(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	rec, err := client.Records.Insert(ctx, "tasks", record.Record{"Title": "hello", "Priority": 5})
	require.NoError(t, err)
	assert.Equal(t, "HELLO (5)", rec["label"])
}

func TestFormulaAsFilterLeaf(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	_, err := client.Records.Insert(ctx, "tasks", record.Record{"Title": "alpha", "Priority": 1})
	require.NoError(t, err)
	_, err = client.Records.Insert(ctx, "tasks", record.Record{"Title": "beta", "Priority": 2})
	require.NoError(t, err)

	recs, err := client.Records.List(ctx, "tasks", record.ListArgs{
		Filter: &compile.Filter{ColumnRef: "label", Op: "eq", Value: "ALPHA (1)"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "alpha", recs[0]["title"])
}

func TestLegacyArgsParsing(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	for i := 1; i <= 3; i++ {
		_, err := client.Records.Insert(ctx, "tasks", record.Record{
			"Title": fmt.Sprintf("t%d", i), "Priority": i,
		})
		require.NoError(t, err)
	}

	args := gridbase.ParseListArgs("(priority,gte,2)", "-priority")
	recs, err := client.Records.List(ctx, "tasks", args)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "t3", recs[0]["title"])
}

func TestTxRollbackLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	txClient, tx, err := client.Tx(ctx)
	require.NoError(t, err)
	_, err = txClient.Records.Insert(ctx, "tasks", record.Record{"Title": "ghost"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := client.Records.Count(ctx, "tasks", record.ListArgs{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, tx2, err := client.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestTxWithinTxRejected(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t))

	txClient, tx, err := client.Tx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, _, err = txClient.Tx(ctx)
	assert.ErrorIs(t, err, gridbase.ErrTxStarted)
}

func TestQueryStatsOption(t *testing.T) {
	ctx := context.Background()
	client := gridbase.New(openDriver(t), newTasksModel(t), gridbase.WithQueryStats())

	rec, err := client.Records.Insert(ctx, "tasks", record.Record{"Title": "x"})
	require.NoError(t, err)
	_, err = client.Records.ReadByPk(ctx, "tasks", rec.ID())
	require.NoError(t, err)

	stats := client.QueryStats()
	require.NotNil(t, stats)
	snap := stats.Stats()
	assert.Greater(t, snap.TotalQueries, int64(0))
	assert.Greater(t, snap.TotalExecs, int64(0))

	// Transaction-scoped work is counted too.
	txClient, tx, err := client.Tx(ctx)
	require.NoError(t, err)
	before := stats.Stats().TotalQueries
	_, err = txClient.Records.ReadByPk(ctx, "tasks", rec.ID())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Greater(t, stats.Stats().TotalQueries, before)

	// Disabled by default.
	plain := gridbase.New(openDriver(t), newTasksModel(t))
	assert.Nil(t, plain.QueryStats())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, gridbase.KindNotFound, gridbase.Classify(fmt.Errorf("wrap: %w", record.ErrNotFound)))
	assert.Equal(t, gridbase.KindConflict, gridbase.Classify(record.ErrConflict))
	assert.Equal(t, gridbase.KindNotFound, gridbase.Classify(gridbase.NewNotFoundError("task")))
	assert.Equal(t, gridbase.KindInternal, gridbase.Classify(errors.New("boom")))
	assert.Equal(t, gridbase.Kind(""), gridbase.Classify(nil))
}

func TestSchemaPublishThroughFacade(t *testing.T) {
	client := gridbase.New(openDriver(t), newTasksModel(t), gridbase.WithBundle(gridbase.BundleFull))

	_, err := client.Schemas.Create("table", "tasks", schema.EnvDev, map[string]any{"columns": []any{}})
	require.NoError(t, err)
	_, applied, err := client.Schemas.ApplyPatch("table", "tasks", schema.EnvDev, []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "c", "title": "C", "uidt": "text"}},
	})
	require.NoError(t, err)
	require.Len(t, applied, 1)

	pro, _, err := client.Schemas.Publish("table", "tasks")
	require.NoError(t, err)
	assert.Equal(t, schema.EnvPro, pro.Environment)
	assert.Equal(t, 1, pro.Version)

	// Subsequent DEV patches do not affect PRO until republished.
	_, _, err = client.Schemas.ApplyPatch("table", "tasks", schema.EnvDev, []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "d"}},
	})
	require.NoError(t, err)
	latestPro, err := client.Schemas.Latest("table", "tasks", schema.EnvPro)
	require.NoError(t, err)
	cols := latestPro.Schema.(map[string]any)["columns"].([]any)
	assert.Len(t, cols, 1)
}
