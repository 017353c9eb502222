package legacy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/compile/legacy"
)

func TestParseWhereSingleLeaf(t *testing.T) {
	f := legacy.ParseWhere("(title,eq,hello)")
	assert.False(t, f.IsGroup)
	assert.Equal(t, "title", f.ColumnRef)
	assert.Equal(t, "eq", f.Op)
	assert.Equal(t, "hello", f.Value)
}

func TestParseWhereFoldsLeft(t *testing.T) {
	f := legacy.ParseWhere("(a,eq,1)~and(b,gt,2)~or(c,lt,3)")
	require.True(t, f.IsGroup)
	assert.Equal(t, compile.LogicalOr, f.LogicalOp)
	require.Len(t, f.Children, 2)

	inner := f.Children[0]
	require.True(t, inner.IsGroup)
	assert.Equal(t, compile.LogicalAnd, inner.LogicalOp)
	require.Len(t, inner.Children, 2)
	assert.Equal(t, "a", inner.Children[0].ColumnRef)
	assert.Equal(t, "b", inner.Children[1].ColumnRef)
	assert.Equal(t, "c", f.Children[1].ColumnRef)
}

func TestParseWhereDropsMalformedFragment(t *testing.T) {
	f := legacy.ParseWhere("(a,eq,1)~and(nonsense)~and(b,eq,2)")
	require.True(t, f.IsGroup)
	require.Len(t, f.Children, 2)
	assert.Equal(t, "a", f.Children[0].ColumnRef)
	assert.Equal(t, "b", f.Children[1].ColumnRef)
}

func TestParseWhereValueKeepsCommas(t *testing.T) {
	f := legacy.ParseWhere("(tags,in,a,b,c)")
	assert.Equal(t, "a,b,c", f.Value)
}

func TestParseWhereEmptyInput(t *testing.T) {
	f := legacy.ParseWhere("")
	assert.True(t, f.IsGroup)
	assert.Empty(t, f.Children)
}

func TestParseSortForms(t *testing.T) {
	terms := legacy.ParseSort("+a,-b,c:asc,d:desc,e")
	require.Len(t, terms, 5)
	assert.Equal(t, compile.SortTerm{ColumnRef: "a"}, terms[0])
	assert.Equal(t, compile.SortTerm{ColumnRef: "b", Desc: true}, terms[1])
	assert.Equal(t, compile.SortTerm{ColumnRef: "c"}, terms[2])
	assert.Equal(t, compile.SortTerm{ColumnRef: "d", Desc: true}, terms[3])
	assert.Equal(t, compile.SortTerm{ColumnRef: "e"}, terms[4])
}

func TestParseSortSkipsEmptyFragments(t *testing.T) {
	terms := legacy.ParseSort("a,,+")
	require.Len(t, terms, 1)
	assert.Equal(t, "a", terms[0].ColumnRef)
}
