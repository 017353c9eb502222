package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/schema"
)

func TestDiffAddRemoveReplace(t *testing.T) {
	a := map[string]any{"title": "notes", "rating": float64(3), "stale": "x"}
	b := map[string]any{"title": "Notes", "rating": float64(3), "fresh": "y"}

	ops := schema.Diff(a, b)

	byPath := map[string]schema.Op{}
	for _, op := range ops {
		byPath[op.Path] = op
	}
	require.Contains(t, byPath, "/title")
	assert.Equal(t, "replace", byPath["/title"].Op)
	require.Contains(t, byPath, "/stale")
	assert.Equal(t, "remove", byPath["/stale"].Op)
	require.Contains(t, byPath, "/fresh")
	assert.Equal(t, "add", byPath["/fresh"].Op)
	_, ratingChanged := byPath["/rating"]
	assert.False(t, ratingChanged, "unchanged keys must not appear in the diff")
}

func TestDiffRoundTripWithoutArrayChanges(t *testing.T) {
	a := map[string]any{"title": "notes", "nested": map[string]any{"x": float64(1)}}
	b := map[string]any{"title": "Notes", "nested": map[string]any{"x": float64(2), "y": "new"}}

	ops := schema.Diff(a, b)
	got, applied, err := schema.Apply(a, ops)
	require.NoError(t, err)
	assert.Len(t, applied, len(ops))
	assert.Equal(t, b, got)
}

func TestDiffArrayIsWholeReplace(t *testing.T) {
	a := map[string]any{"tags": []any{"x", "y"}}
	b := map[string]any{"tags": []any{"x", "z"}}

	ops := schema.Diff(a, b)
	require.Len(t, ops, 1)
	assert.Equal(t, "replace", ops[0].Op)
	assert.Equal(t, "/tags", ops[0].Path)
	assert.Equal(t, b["tags"], ops[0].Value)
}

func TestDiffEscapesPointerTokens(t *testing.T) {
	a := map[string]any{"a/b": "old", "c~d": "old"}
	b := map[string]any{"a/b": "new", "c~d": "new"}
	ops := schema.Diff(a, b)
	paths := map[string]bool{}
	for _, op := range ops {
		paths[op.Path] = true
	}
	assert.True(t, paths["/a~1b"])
	assert.True(t, paths["/c~0d"])
}
