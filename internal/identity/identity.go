// Package identity derives the normalized join key of an item name.
//
// Two names match iff their keys are equal. No edit-distance or fuzzy
// matching is performed: names that differ by a typo stay unmatched.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the join key of name: Unicode NFC, case-folded,
// whitespace runs collapsed to one space, leading and trailing punctuation,
// symbols and whitespace removed.
//
//	Normalize(" Sofa  Grand ") == Normalize("Sofa Grand.") == "sofa grand"
func Normalize(name string) string {
	// cases.Caser keeps state, so a fresh one is used per call.
	folded := cases.Fold().String(norm.NFC.String(name))
	key := strings.Join(strings.Fields(folded), " ")
	return strings.TrimFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// Match reports whether two names normalize to the same key.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
