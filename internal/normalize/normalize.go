// Package normalize folds entity text into a canonical searchable form.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips the combining marks left by compatibility
// decomposition, so accented and plain spellings index and query the same:
// "Chloé" -> "chloe", "ÅNGSTRÖM" -> "angstrom".
func Fold(s string) string {
	s = norm.NFKD.String(Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// Sanitize removes null bytes, which upset JSON encoding and SQLite. Pasted
// text from other tools occasionally carries them.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
