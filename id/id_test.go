package id_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/id"
)

func TestNewLength(t *testing.T) {
	got := id.New()
	assert.Len(t, got, 26)
}

func TestNewIsValid(t *testing.T) {
	assert.True(t, id.Valid(id.New()))
	assert.False(t, id.Valid("not-an-id"))
	assert.False(t, id.Valid(""))
}

func TestNewIsMonotonicWithinSameMillisecond(t *testing.T) {
	const n = 1000
	ids := make([]string, n)
	for i := range ids {
		ids[i] = id.New()
	}
	for i := 1; i < n; i++ {
		require.Less(t, ids[i-1], ids[i], "ids must sort strictly increasing")
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		got := id.New()
		_, dup := seen[got]
		require.False(t, dup, "duplicate id generated: %s", got)
		seen[got] = struct{}{}
	}
}

func TestTimePrefixOrdersWithWallClock(t *testing.T) {
	earlier := id.NewWithTime(time.Now().Add(-time.Hour))
	later := id.NewWithTime(time.Now())
	assert.Less(t, earlier, later)
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	got := id.NewWithTime(now)
	assert.WithinDuration(t, now, id.Time(got), time.Millisecond)
}

func TestTimeOfInvalidIDIsZero(t *testing.T) {
	assert.True(t, id.Time("bogus").IsZero())
}
