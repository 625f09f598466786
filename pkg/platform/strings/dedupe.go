// Package strings holds the string-slice helpers config parsing shares.
package strings

import "strings"

// DedupeAndTrim trims every element, drops blanks and repeats, and keeps
// first-seen order. Comma-separated env lists (Kafka brokers) pass through
// here before use.
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
