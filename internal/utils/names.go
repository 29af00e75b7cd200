package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CollapseSpaces trims s and folds every run of whitespace into one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

// FoldKey lowercases s and strips diacritics so "Saída", "SAIDA" and a
// decomposed "Saída" compare equal.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, CollapseSpaces(s))
	if err != nil {
		out = CollapseSpaces(s)
	}
	return strings.ToLower(out)
}

// NFC returns s in canonical composed form.
func NFC(s string) string {
	return norm.NFC.String(s)
}
