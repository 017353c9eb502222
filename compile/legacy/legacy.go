// Package legacy parses the historical where-string and sort-string
// grammars into the tree-based inputs the compile package consumes. It is a
// compatibility shim: the positional (field,op,value)~and(...) grammar has
// no nested groups, and new callers should build compile.Filter trees
// directly.
package legacy

import (
	"strings"

	"github.com/gridbase/gridbase/compile"
)

// ParseWhere tokenizes a "(field,op,value)~and(field,op,value)~or(...)"
// string into a filter tree. Connectives fold left, so "a~and b~or c"
// parses as ((a AND b) OR c). A malformed fragment is silently dropped.
func ParseWhere(s string) compile.Filter {
	segments := splitSegments(s)
	var tree *compile.Filter
	for _, seg := range segments {
		leaf, ok := parseLeaf(seg.body)
		if !ok {
			continue
		}
		if tree == nil {
			tree = &leaf
			continue
		}
		combined := compile.Filter{
			IsGroup:   true,
			LogicalOp: seg.op,
			Children:  []compile.Filter{*tree, leaf},
		}
		tree = &combined
	}
	if tree == nil {
		return compile.Filter{IsGroup: true, LogicalOp: compile.LogicalAnd}
	}
	return *tree
}

type segment struct {
	op   compile.LogicalOp
	body string
}

// splitSegments walks the string pulling out parenthesized fragments and the
// ~and/~or connective preceding each. The first segment's connective is
// ignored.
func splitSegments(s string) []segment {
	var out []segment
	op := compile.LogicalAnd
	rest := s
	for {
		start := strings.IndexByte(rest, '(')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(rest[start:], ')')
		if end < 0 {
			return out
		}
		out = append(out, segment{op: op, body: rest[start+1 : start+end]})
		rest = rest[start+end+1:]

		switch {
		case strings.HasPrefix(rest, "~or"):
			op = compile.LogicalOr
			rest = rest[len("~or"):]
		case strings.HasPrefix(rest, "~and"):
			op = compile.LogicalAnd
			rest = rest[len("~and"):]
		default:
			op = compile.LogicalAnd
		}
	}
}

// parseLeaf splits "field,op,value" into a filter leaf. The value may itself
// contain commas (in-lists), so only the first two commas split.
func parseLeaf(body string) (compile.Filter, bool) {
	parts := strings.SplitN(body, ",", 3)
	if len(parts) < 2 {
		return compile.Filter{}, false
	}
	field := strings.TrimSpace(parts[0])
	op := strings.TrimSpace(parts[1])
	if field == "" || op == "" {
		return compile.Filter{}, false
	}
	leaf := compile.Filter{ColumnRef: field, Op: op}
	if len(parts) == 3 {
		leaf.Value = strings.TrimSpace(parts[2])
	}
	return leaf, true
}

// ParseSort parses the "+f,-f,f:asc,f:desc" sort-string forms into a sort
// list. A bare field sorts ascending; empty fragments are dropped.
func ParseSort(s string) []compile.SortTerm {
	var out []compile.SortTerm
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term := compile.SortTerm{}
		switch {
		case strings.HasPrefix(part, "+"):
			term.ColumnRef = part[1:]
		case strings.HasPrefix(part, "-"):
			term.ColumnRef = part[1:]
			term.Desc = true
		case strings.HasSuffix(part, ":desc"):
			term.ColumnRef = strings.TrimSuffix(part, ":desc")
			term.Desc = true
		case strings.HasSuffix(part, ":asc"):
			term.ColumnRef = strings.TrimSuffix(part, ":asc")
		default:
			term.ColumnRef = part
		}
		if term.ColumnRef == "" {
			continue
		}
		out = append(out, term)
	}
	return out
}
