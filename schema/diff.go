package schema

import (
	"reflect"
	"strings"
)

// Diff computes a pragmatic structural diff from a to b, suitable for
// feeding back into Apply. It emits "add" for keys present in b but not a,
// "remove" for keys present in a but not b, and "replace" for any
// differing primitive or array value.
//
// Array diffs are a whole-array replace, not a minimal edit script: if two
// arrays at the same path differ at all, the entire array is replaced.
// Round-tripping Apply(a, Diff(a, b)) reproduces b exactly; callers that
// need minimal edit scripts for arrays (collaborative editing) need an
// LCS-based diff instead.
func Diff(a, b any) []Op {
	return diffAt("", a, b)
}

func diffAt(path string, a, b any) []Op {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffMaps(path, am, bm)
	}

	if reflect.DeepEqual(a, b) {
		return nil
	}
	if a == nil {
		return []Op{{Op: "add", Path: path, Value: b}}
	}
	return []Op{{Op: "replace", Path: path, Value: b}}
}

func diffMaps(path string, a, b map[string]any) []Op {
	var ops []Op
	for k, av := range a {
		bv, ok := b[k]
		childPath := path + "/" + escapeToken(k)
		if !ok {
			ops = append(ops, Op{Op: "remove", Path: childPath})
			continue
		}
		ops = append(ops, diffAt(childPath, av, bv)...)
	}
	for k, bv := range b {
		if _, ok := a[k]; ok {
			continue
		}
		childPath := path + "/" + escapeToken(k)
		ops = append(ops, Op{Op: "add", Path: childPath, Value: bv})
	}
	return ops
}

func escapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}
