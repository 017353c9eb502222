package compile_test

import (
	"github.com/gridbase/gridbase/schema"
)

// newFixtureModel builds a small two-table model (projects has-many tasks)
// with one rollup, one lookup, and one links-count column, used across the
// compile package's tests.
func newFixtureModel(t testingT) *schema.Model {
	t.Helper()
	m := schema.NewModel()

	projects, err := m.CreateTable(schema.TableDef{ID: "projects", Title: "Projects"})
	mustNoError(t, err)
	_, err = m.AddColumn(projects.ID, schema.ColumnDef{ID: "name", Title: "Name", Kind: schema.KindText})
	mustNoError(t, err)

	tasks, err := m.CreateTable(schema.TableDef{ID: "tasks", Title: "Tasks"})
	mustNoError(t, err)
	_, err = m.AddColumn(tasks.ID, schema.ColumnDef{ID: "title", Title: "Title", Kind: schema.KindText})
	mustNoError(t, err)
	_, err = m.AddColumn(tasks.ID, schema.ColumnDef{ID: "hours", Title: "Hours", Kind: schema.KindNumber})
	mustNoError(t, err)
	_, err = m.AddColumn(tasks.ID, schema.ColumnDef{
		ID: "project", Title: "Project", Kind: schema.KindLinkToRecord,
		Link: &schema.LinkOptions{Type: schema.LinkBelongsTo, RelatedTableID: "projects", FKColumnStorage: "project"},
	})
	mustNoError(t, err)

	_, err = m.AddColumn(projects.ID, schema.ColumnDef{
		ID: "tasks", Title: "Tasks", Kind: schema.KindLinkToRecord,
		Link: &schema.LinkOptions{Type: schema.LinkHasMany, RelatedTableID: "tasks", FKColumnStorage: "project"},
	})
	mustNoError(t, err)
	_, err = m.AddColumn(projects.ID, schema.ColumnDef{
		ID: "total_hours", Title: "Total Hours", Kind: schema.KindRollup,
		Rollup: &schema.RollupOptions{RelationColumnID: "tasks", TargetColumnID: "hours", Aggregation: schema.AggSum},
	})
	mustNoError(t, err)
	_, err = m.AddColumn(projects.ID, schema.ColumnDef{
		ID: "task_count", Title: "Task Count", Kind: schema.KindLinksCount,
		Link: &schema.LinkOptions{Type: schema.LinkHasMany, RelatedTableID: "tasks", FKColumnStorage: "project"},
	})
	mustNoError(t, err)

	return m
}

// testingT is the subset of *testing.T the fixtures need, so this file
// stays import-light.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

func mustNoError(t testingT, err error) {
	if err != nil {
		t.Fatalf("fixture setup failed: %v", err)
	}
}
