// Package normalize turns raw spreadsheet cells into typed values: amounts
// with a currency, calendar dates and folded text used for keyword matching.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// StripAccents removes combining marks, so "Gestión" becomes "Gestion".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Fold upper-cases, strips accents and collapses whitespace. It is the form
// used to compare header cells against keywords.
func Fold(s string) string {
	s = StripAccents(s)
	s = strings.ToUpper(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanText trims a cell and collapses internal whitespace.
func CleanText(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

var placeholders = map[string]struct{}{}

func init() {
	for _, p := range []string{
		"", "nan", "nat", "none", "null", "-", "--", "s/d",
		"pendiente", "a confirmar", "a definir", "sin fecha",
	} {
		placeholders[p] = struct{}{}
	}
}

// IsPlaceholder reports whether a cell carries no value: blank, a pandas
// style null marker, or a "to be confirmed" note.
func IsPlaceholder(raw string) bool {
	_, ok := placeholders[strings.ToLower(CleanText(StripAccents(raw)))]
	return ok
}
