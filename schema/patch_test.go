package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/schema"
)

func doc() map[string]any {
	return map[string]any{
		"title": "notes",
		"columns": []any{
			map[string]any{"id": "title", "title": "Title"},
		},
	}
}

func TestApplyAddToArrayAppend(t *testing.T) {
	got, applied, err := schema.Apply(doc(), []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "rating", "title": "Rating"}},
	})
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	cols := got.(map[string]any)["columns"].([]any)
	assert.Len(t, cols, 2)
	assert.Equal(t, "rating", cols[1].(map[string]any)["id"])
}

func TestApplyReplaceRequiresExistingPath(t *testing.T) {
	_, applied, err := schema.Apply(doc(), []schema.Op{
		{Op: "replace", Path: "/missing", Value: "x"},
	})
	require.Error(t, err)
	assert.Len(t, applied, 0)
}

func TestApplyRemoveFromArray(t *testing.T) {
	got, applied, err := schema.Apply(doc(), []schema.Op{
		{Op: "remove", Path: "/columns/0"},
	})
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	cols := got.(map[string]any)["columns"].([]any)
	assert.Len(t, cols, 0)
}

func TestApplyAddThenCopy(t *testing.T) {
	got, _, err := schema.Apply(doc(), []schema.Op{
		{Op: "add", Path: "/alias", Value: nil},
		{Op: "copy", From: "/title", Path: "/alias"},
	})
	require.NoError(t, err)
	m := got.(map[string]any)
	assert.Equal(t, "notes", m["alias"])
	assert.Equal(t, "notes", m["title"], "copy must not remove the source")
}

func TestApplyTestOpFailurePreservesPriorSuccess(t *testing.T) {
	got, applied, err := schema.Apply(doc(), []schema.Op{
		{Op: "replace", Path: "/title", Value: "renamed"},
		{Op: "test", Path: "/title", Value: "not renamed"},
		{Op: "remove", Path: "/title"},
	})
	require.Error(t, err)
	require.Len(t, applied, 1, "fail-at-first: only the successful op before the failure is kept")
	assert.Equal(t, "renamed", got.(map[string]any)["title"])
}

func TestApplyFailAtFirstStopsBatch(t *testing.T) {
	ops := []schema.Op{
		{Op: "add", Path: "/a", Value: 1},
		{Op: "remove", Path: "/does-not-exist"},
		{Op: "add", Path: "/b", Value: 2},
	}
	got, applied, err := schema.Apply(map[string]any{}, ops)
	require.Error(t, err)
	require.Len(t, applied, 1)
	m := got.(map[string]any)
	assert.Equal(t, 1, m["a"])
	_, hasB := m["b"]
	assert.False(t, hasB, "ops after the failing op must never run")
}

func TestApplyOriginalDocumentUntouched(t *testing.T) {
	original := doc()
	_, _, err := schema.Apply(original, []schema.Op{
		{Op: "replace", Path: "/title", Value: "renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "notes", original["title"], "Apply must not mutate its input")
}
