package schema

import "strings"

// pointerTokens splits a JSON Pointer (RFC 6901) into its reference tokens,
// unescaping ~1 -> / and ~0 -> ~ in that order. An empty pointer ("") yields
// the root; "/" yields the single empty-string token [""]; "/a/b" yields
// ["a", "b"].
func pointerTokens(pointer string) []string {
	if pointer == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		out[i] = p
	}
	return out
}
