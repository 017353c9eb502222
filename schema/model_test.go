package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/schema"
)

func TestCreateTableAllocatesIDFromTitle(t *testing.T) {
	m := schema.NewModel()
	tbl, err := m.CreateTable(schema.TableDef{Title: "Order Items"})
	require.NoError(t, err)
	assert.Equal(t, "order_items", tbl.ID)
	assert.Equal(t, "order_items", tbl.StorageNamePrefix)
}

func TestCreateTableRejectsDuplicateID(t *testing.T) {
	m := schema.NewModel()
	_, err := m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	require.NoError(t, err)
	_, err = m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes again"})
	require.ErrorIs(t, err, schema.ErrTableExists)
}

func TestAddColumnRejectsDuplicateID(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	_, err := m.AddColumn("notes", schema.ColumnDef{ID: "title", Title: "Title", Kind: schema.KindText})
	require.NoError(t, err)
	_, err = m.AddColumn("notes", schema.ColumnDef{ID: "title", Title: "Title 2", Kind: schema.KindText})
	require.Error(t, err)
}

func TestAddColumnUnknownTableNotFound(t *testing.T) {
	m := schema.NewModel()
	_, err := m.AddColumn("missing", schema.ColumnDef{Title: "x", Kind: schema.KindText})
	require.ErrorIs(t, err, schema.ErrTableNotFound)
}

func TestUpdateColumnFieldWise(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	_, _ = m.AddColumn("notes", schema.ColumnDef{ID: "title", Title: "Title", StorageName: "title", Kind: schema.KindText})

	got, err := m.UpdateColumn("notes", "title", schema.ColumnDef{Title: "New Title"})
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "title", got.StorageName, "untouched fields must survive a field-wise update")
}

func TestDropTableStripsRelatedLinkColumns(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "a", Title: "A"})
	_, _ = m.CreateTable(schema.TableDef{ID: "b", Title: "B"})
	fwd, inv, err := m.CreateLink(schema.CreateLinkDef{
		SourceTableID: "a",
		TargetTableID: "b",
		Title:         "refs",
		Type:          schema.LinkManyToMany,
		Bidirectional: true,
	})
	require.NoError(t, err)
	require.NotNil(t, inv)

	require.NoError(t, m.DropTable("b"))
	assert.Nil(t, m.Table("a").Column(fwd.ID))
	assert.Nil(t, m.Table("b"))
}

func TestDropColumnRemovesSymmetricPartner(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "a", Title: "A"})
	_, _ = m.CreateTable(schema.TableDef{ID: "b", Title: "B"})
	fwd, inv, err := m.CreateLink(schema.CreateLinkDef{
		SourceTableID: "a",
		TargetTableID: "b",
		Title:         "refs",
		Type:          schema.LinkManyToMany,
		Bidirectional: true,
	})
	require.NoError(t, err)

	require.NoError(t, m.DropColumn("a", fwd.ID))
	assert.Nil(t, m.Table("b").Column(inv.ID))
}

func TestCreateLinkUnidirectionalHasNoInverse(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "a", Title: "A"})
	_, _ = m.CreateTable(schema.TableDef{ID: "b", Title: "B"})
	_, inv, err := m.CreateLink(schema.CreateLinkDef{
		SourceTableID: "a",
		TargetTableID: "b",
		Title:         "refs",
		Type:          schema.LinkManyToMany,
	})
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestExportImportRoundTrip(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	_, _ = m.AddColumn("notes", schema.ColumnDef{ID: "title", Title: "Title", StorageName: "title", Kind: schema.KindText})
	_, _ = m.AddColumn("notes", schema.ColumnDef{ID: "rating", Title: "Rating", StorageName: "rating", Kind: schema.KindNumber})

	exported := m.ExportSchema()

	m2 := schema.NewModel()
	require.NoError(t, m2.ImportSchema(exported, false))
	tbl := m2.Table("notes")
	require.NotNil(t, tbl)
	assert.Len(t, tbl.Columns, 2)
	assert.Equal(t, schema.KindNumber, tbl.Column("rating").Kind)
}

func TestImportSchemaMergeUpsertsByID(t *testing.T) {
	m := schema.NewModel()
	_, _ = m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	_, _ = m.CreateTable(schema.TableDef{ID: "tags", Title: "Tags"})

	patch := map[string]any{
		"tables": []any{
			map[string]any{"id": "notes", "title": "Renamed Notes", "columns": []any{}},
		},
	}
	require.NoError(t, m.ImportSchema(patch, true))
	assert.Equal(t, "Renamed Notes", m.Table("notes").Title)
	assert.NotNil(t, m.Table("tags"), "merge import must not drop tables absent from the patch")
}
