// Package sanitize strips hostile content out of user-supplied values and
// validates the SQL identifiers the compilers are about to interpolate.
//
// Nothing in this package ever writes a value directly into a SQL string;
// value sanitization only protects what ends up stored in the record's JSON
// blob, and identifier validation only decides whether a name is safe to
// interpolate at all (the value itself is always parameter-bound).
package sanitize

import (
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// storageNameRe matches valid column/table storage names.
var storageNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// aliasRe matches valid SQL aliases, a stricter grammar than storage names
// (no hyphens, since some dialects treat a bare hyphenated alias as an
// arithmetic expression without quoting).
var aliasRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var htmlPolicy = bluemonday.StrictPolicy()

// ErrInvalidIdentifier is returned by Identifier/Alias when the input does
// not match the required grammar.
type ErrInvalidIdentifier struct {
	Kind  string // "storage name" or "alias"
	Value string
}

func (e *ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("sanitize: invalid %s %q", e.Kind, e.Value)
}

// Identifier validates a column/table storage name against
// ^[A-Za-z_][A-Za-z0-9_-]*$. It never interpolates the input; the caller
// must reject the name on error, not attempt to fix it up.
func Identifier(name string) (string, error) {
	if !storageNameRe.MatchString(name) {
		return "", &ErrInvalidIdentifier{Kind: "storage name", Value: name}
	}
	return name, nil
}

// Alias validates a SQL alias against ^[A-Za-z_][A-Za-z0-9_]*$.
func Alias(name string) (string, error) {
	if !aliasRe.MatchString(name) {
		return "", &ErrInvalidIdentifier{Kind: "alias", Value: name}
	}
	return name, nil
}

// HTML strips tags and attributes from s while preserving its text content.
func HTML(s string) string {
	return htmlPolicy.Sanitize(s)
}

// Value recursively walks a decoded JSON value (string, float64, bool, nil,
// []any, map[string]any — the shapes encoding/json produces) stripping HTML
// from every string it finds, including map keys, to prevent a hostile key
// from injecting markup that a caller later renders unescaped.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return HTML(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[HTML(k)] = Value(e)
		}
		return out
	default:
		return v
	}
}
