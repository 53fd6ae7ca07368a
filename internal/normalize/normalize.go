// Package normalize provides text normalization for indexing and display.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches runs of whitespace, including newlines carried over from markup.
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Text returns paragraph text in NFC form with whitespace collapsed.
// Chapter HTML is authored by hand and often carries soft line breaks and
// inconsistent unicode composition; the search index wants one canonical form.
func Text(s string) string {
	s = norm.NFC.String(s)
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slugify converts a string to a URL-safe slug.
// "Chapter Three: The Crossing" -> "chapter-three-the-crossing".
func Slugify(s string) string {
	// Decompose accented characters, then strip non-ASCII.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
