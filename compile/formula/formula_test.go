package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/compile/formula"
	"github.com/gridbase/gridbase/dialect"
	"github.com/gridbase/gridbase/schema"
)

func newModel(t *testing.T, expr string) (*schema.Model, *schema.Table) {
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
		Formula: &schema.FormulaOptions{Expression: expr},
	})
	require.NoError(t, err)
	return m, notes
}

func TestParsePrecedence(t *testing.T) {
	n, err := formula.Parse("1 + 2 * 3")
	require.NoError(t, err)
	add, ok := n.(formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)
	mul, ok := add.Right.(formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
}

func TestParseUnaryMinusDesugars(t *testing.T) {
	n, err := formula.Parse("-{Rating}")
	require.NoError(t, err)
	mul, ok := n.(formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
	assert.Equal(t, formula.NumberLit{Value: "-1"}, mul.Left)
}

func TestParseFunctionNameUppercased(t *testing.T) {
	n, err := formula.Parse("concat({Title}, 'x')")
	require.NoError(t, err)
	call, ok := n.(formula.Call)
	require.True(t, ok)
	assert.Equal(t, "CONCAT", call.Name)
	require.Len(t, call.Args, 2)
}

func TestFragmentConcatUpper(t *testing.T) {
	m, notes := newModel(t, `CONCAT(UPPER({Title}), ' (', {Rating}, ')')`)
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Contains(t, frag, "CONCAT(UPPER(")
	assert.Contains(t, frag, "->>")
	assert.Contains(t, frag, `' ('`)
}

func TestFragmentParseFaultDegradesToNull(t *testing.T) {
	m, notes := newModel(t, "{Title} @@ broken")
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Equal(t, "NULL", frag)
}

func TestFragmentUnknownColumnDegradesToNull(t *testing.T) {
	m, notes := newModel(t, "UPPER({No Such Column})")
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Equal(t, "UPPER(NULL)", frag)
}

func TestFragmentStringLiteralQuotesDoubled(t *testing.T) {
	m, notes := newModel(t, `CONCAT({Title}, 'it\'s')`)
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Contains(t, frag, "'it''s'")
}

func TestFragmentSelfReferenceErrors(t *testing.T) {
	m, notes := newModel(t, "{F} + 1")
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	_, err := r.Fragment(notes.Column("f"), notes, "r")
	assert.Error(t, err)
}

func TestFragmentFormulaInFormula(t *testing.T) {
	m, notes := newModel(t, "{Rating} * 2")
	_, err := m.AddColumn(notes.ID, schema.ColumnDef{
		ID: "g", Title: "G", Kind: schema.KindFormula,
		Formula: &schema.FormulaOptions{Expression: "{F} + 1"},
	})
	require.NoError(t, err)
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("g"), notes, "r")
	require.NoError(t, err)
	assert.Contains(t, frag, "* 2")
	assert.Contains(t, frag, "+ 1")
}

func TestRegistryStrictRejectsUnknown(t *testing.T) {
	m, notes := newModel(t, "FROBNICATE({Title})")
	c := compile.New(m, dialect.Postgres)

	permissive := formula.NewResolver(c, formula.NewRegistry(), nil)
	frag, err := permissive.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Contains(t, frag, "FROBNICATE(")

	strict := formula.NewResolver(c, formula.NewRegistry().Strict(), nil)
	_, err = strict.Fragment(notes.Column("f"), notes, "r")
	assert.Error(t, err)
}

func TestRegistryIfLowersToCase(t *testing.T) {
	reg := formula.NewRegistry()
	out, err := reg.Lower("IF", []string{"a > 1", "'y'", "'n'"})
	require.NoError(t, err)
	assert.Equal(t, "(CASE WHEN a > 1 THEN 'y' ELSE 'n' END)", out)
}

func TestRegistryArityChecked(t *testing.T) {
	reg := formula.NewRegistry()
	_, err := reg.Lower("MOD", []string{"a"})
	assert.Error(t, err)
}

func TestBarewordLiterals(t *testing.T) {
	m, notes := newModel(t, "IF(ISBLANK({Title}), true, false)")
	c := compile.New(m, dialect.Postgres)
	r := formula.NewResolver(c, nil, nil)

	frag, err := r.Fragment(notes.Column("f"), notes, "r")
	require.NoError(t, err)
	assert.Contains(t, frag, "TRUE")
	assert.Contains(t, frag, "FALSE")
}
