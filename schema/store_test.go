package schema_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/schema"
)

func newTestStore() (*schema.Store, func() string) {
	n := 0
	newID := func() string {
		n++
		return "rec" + string(rune('0'+n))
	}
	return schema.NewStore(newID, func() time.Time { return time.Unix(0, 0) }), newID
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	s, _ := newTestStore()
	rec, err := s.Create("table", "notes", schema.EnvDev, map[string]any{"columns": []any{}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
}

func TestApplyPatchBumpsVersionOnlyWhenSomethingApplied(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Create("table", "notes", schema.EnvDev, map[string]any{"columns": []any{}})
	require.NoError(t, err)

	rec, applied, err := s.ApplyPatch("table", "notes", schema.EnvDev, []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "c", "title": "C"}},
	})
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	assert.Equal(t, 2, rec.Version)

	_, applied, err = s.ApplyPatch("table", "notes", schema.EnvDev, []schema.Op{
		{Op: "remove", Path: "/does-not-exist"},
	})
	require.Error(t, err)
	assert.Len(t, applied, 0)

	latest, err := s.Latest("table", "notes", schema.EnvDev)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version, "a fully-failed patch must not advance the version")
}

// TestPublishScenario: patch DEV, publish to PRO, then patch
// DEV again and confirm PRO is unaffected until republished.
func TestPublishScenario(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Create("table", "notes", schema.EnvDev, map[string]any{"columns": []any{}})
	require.NoError(t, err)

	_, _, err = s.ApplyPatch("table", "notes", schema.EnvDev, []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "c", "title": "C", "uidt": "text"}},
	})
	require.NoError(t, err)

	devSnapshot, err := s.Latest("table", "notes", schema.EnvDev)
	require.NoError(t, err)

	proRec, mergePatch, err := s.Publish("table", "notes")
	require.NoError(t, err)
	assert.Equal(t, devSnapshot.Schema, proRec.Schema)
	assert.NotEmpty(t, mergePatch)

	_, _, err = s.ApplyPatch("table", "notes", schema.EnvDev, []schema.Op{
		{Op: "add", Path: "/columns/-", Value: map[string]any{"id": "d", "title": "D"}},
	})
	require.NoError(t, err)

	proAfter, err := s.Latest("table", "notes", schema.EnvPro)
	require.NoError(t, err)
	assert.Equal(t, proRec.Schema, proAfter.Schema, "unpublished DEV patches must not affect PRO")

	proRec2, _, err := s.Publish("table", "notes")
	require.NoError(t, err)
	assert.Equal(t, proRec.Version+1, proRec2.Version)
	assert.NotEqual(t, proRec.Schema, proRec2.Schema)
}

func TestLatestUnknownKeyIsNotFound(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Latest("table", "missing", schema.EnvDev)
	require.ErrorIs(t, err, schema.ErrSchemaNotFound)
}
