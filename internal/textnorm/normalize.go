// Package textnorm canonicalizes text for accent- and case-insensitive
// search. Comparison always happens on the folded form; context extraction
// always happens on the original text, using the offset map kept by Folded,
// because decomposition can change string length ahead of a match.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize returns a lowercase, accent-stripped form of s: canonical
// decomposition, removal of combining marks, then lowercasing. The result is
// only suitable for comparison, never for display. Normalize is idempotent.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
