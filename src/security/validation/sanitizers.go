package validation

import (
	"strings"
	"unicode"
)

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}

// SanitizeTitle strips unprintable characters and collapses runs of whitespace
// to a single space. Titles identify recurring families, so "Rent " and "Rent"
// must not end up as two families.
func SanitizeTitle(s string) string {
	return strings.Join(strings.Fields(StripUnprintable(s)), " ")
}
