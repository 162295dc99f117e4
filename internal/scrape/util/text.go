package util

import "strings"

// CleanText collapses runs of whitespace (including non-breaking spaces,
// which IAAI markup is full of) into single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
