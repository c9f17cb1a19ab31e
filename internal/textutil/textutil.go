// Package textutil provides bounded, UTF-8-safe string helpers for log
// fields and console output.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PreviewLen caps values such as prompts when they are logged.
const PreviewLen = 120

// Truncate caps s at limit bytes, backtracking to a valid UTF-8 boundary.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

// Preview returns s on a single line, capped at PreviewLen bytes, with an
// ellipsis when it was cut.
func Preview(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	if len(s) <= PreviewLen {
		return s
	}
	return Truncate(s, PreviewLen) + "…"
}

// ContainsNull reports whether s contains a null byte.
func ContainsNull(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
