// ABOUTME: Small string helpers shared by the pipeline and the CLI
// ABOUTME: Rune-safe truncation and first-line extraction
package util

import "strings"

// TruncateRunes returns s cut to at most n runes
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// FirstLine returns the first line of s, cut to at most n runes
func FirstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return TruncateRunes(strings.TrimRight(s, "\r"), n)
}
