// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// DedupeAndTrim trims every element and drops empty and repeated ones,
// keeping first-seen order. Broker and shard lists from the environment are
// passed through it so "a, b,a," means [a b].
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
