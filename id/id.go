// Package id generates the identifiers used throughout the engine: record
// ids, link-edge ids, and schema-entity ids.
//
// Ids are 26-character, lexicographically sortable, time-prefixed strings
// (ULID, Crockford base32, URL-safe). Two ids generated on the same process
// in increasing wall-clock order sort in that same order as strings.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared across calls to New; ulid.Monotonic guarantees that ids
// generated within the same millisecond on this process still increase
// monotonically when compared lexicographically.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new 26-character sortable identifier.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewWithTime returns a new identifier whose time component is t, for
// callers that need ids with a chosen timestamp in tests. The random
// component still comes from the shared entropy source, so the same t does
// not reproduce the same id.
func NewWithTime(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether s is a syntactically well-formed identifier produced
// by this package.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time returns the wall-clock time embedded in an identifier produced by
// this package. It returns the zero Time if s is not a valid identifier.
func Time(s string) time.Time {
	parsed, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(parsed.Time())
}
