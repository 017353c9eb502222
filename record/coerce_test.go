package record

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/schema"
)

func col(kind schema.Kind) *schema.Column {
	return &schema.Column{ID: "c", Title: "C", StorageName: "c", Kind: kind}
}

func TestCoerceCheckbox(t *testing.T) {
	c := col(schema.KindCheckbox)
	assert.Equal(t, true, Coerce(c, true))
	assert.Equal(t, true, Coerce(c, "true"))
	assert.Equal(t, true, Coerce(c, "1"))
	assert.Equal(t, false, Coerce(c, "no"))
	assert.Equal(t, true, Coerce(c, float64(1)))
	assert.Equal(t, false, Coerce(c, float64(0)))
}

func TestCoerceNumber(t *testing.T) {
	c := col(schema.KindNumber)
	assert.Equal(t, float64(5), Coerce(c, "5"))
	assert.Equal(t, 2.5, Coerce(c, 2.5))
	assert.Nil(t, Coerce(c, "not a number"))
}

func TestCoerceDecimalKeepsPrecision(t *testing.T) {
	c := col(schema.KindCurrency)
	got := Coerce(c, "19.99")
	d, ok := got.(decimal.Decimal)
	require.True(t, ok)
	assert.Equal(t, "19.99", d.String())
	assert.Nil(t, Coerce(c, "nope"))
}

func TestCoerceJSONParsesStringified(t *testing.T) {
	c := col(schema.KindJSON)
	assert.Equal(t, map[string]any{"a": float64(1)}, Coerce(c, `{"a":1}`))
	assert.Equal(t, "not json {", Coerce(c, "not json {"))
}

func TestCoerceMultiSelect(t *testing.T) {
	c := col(schema.KindMultiSelect)
	assert.Equal(t, []any{"a", "b"}, Coerce(c, `["a","b"]`))
	assert.Equal(t, []any{"x", "y"}, Coerce(c, "x, y"))
	assert.Equal(t, []any{"z"}, Coerce(c, []any{"z"}))
}

func TestCoerceNilPassthrough(t *testing.T) {
	assert.Nil(t, Coerce(col(schema.KindNumber), nil))
}

func newShredModel(t *testing.T) *schema.Model {
	t.Helper()
	m := schema.NewModel()
	notes, err := m.CreateTable(schema.TableDef{ID: "notes", Title: "Notes"})
	require.NoError(t, err)
	_, err = m.AddColumn(notes.ID, schema.ColumnDef{ID: "title", Title: "Title", Kind: schema.KindText})
	require.NoError(t, err)
	_, err = m.AddColumn(notes.ID, schema.ColumnDef{ID: "rating", Title: "Rating", Kind: schema.KindNumber})
	require.NoError(t, err)
	_, err = m.AddColumn(notes.ID, schema.ColumnDef{
		ID: "f", Title: "F", Kind: schema.KindFormula,
		Formula: &schema.FormulaOptions{Expression: "{Rating} + 1"},
	})
	require.NoError(t, err)
	return m
}

func TestShredSeparatesSystemUserVirtual(t *testing.T) {
	m := newShredModel(t)
	c := &Client{compiler: newTestCompiler(m)}
	notes := m.Table("notes")

	sys, blob, err := c.shred(notes, Record{
		"id":      "rec1",
		"Title":   "hello",
		"rating":  "5",
		"f":       "dropped",
		"unknown": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec1", sys.id)
	assert.Equal(t, "hello", blob["title"])
	assert.Equal(t, float64(5), blob["rating"])
	assert.NotContains(t, blob, "f")
	assert.Equal(t, "kept", blob["unknown"])
	assert.NotContains(t, blob, "id")
}

func TestShredStripsScriptContent(t *testing.T) {
	m := newShredModel(t)
	c := &Client{compiler: newTestCompiler(m)}
	notes := m.Table("notes")

	_, blob, err := c.shred(notes, Record{"Title": `<script>alert(1)</script>safe`})
	require.NoError(t, err)
	assert.Equal(t, "safe", blob["title"])
}

func TestShredSwallowsTableID(t *testing.T) {
	m := newShredModel(t)
	c := &Client{compiler: newTestCompiler(m)}
	notes := m.Table("notes")

	_, blob, err := c.shred(notes, Record{"table_id": "spoofed", "Title": "x"})
	require.NoError(t, err)
	assert.NotContains(t, blob, "table_id")
}
