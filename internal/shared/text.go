package shared

import "strings"

// TruncateRunes returns s cut to at most n runes. Truncation happens on rune
// boundaries so multi-byte text never ends up split mid-character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ContainsAny reports whether s contains any of the given substrings.
// Matching is case-sensitive; callers lower-case both sides as needed.
func ContainsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
