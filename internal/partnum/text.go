package partnum

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var anySpace = regexp.MustCompile(`\s+`)

// Text cleans a scraped or model-produced string. Entities are decoded and
// the result is NFKC folded with whitespace runs collapsed to one space.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = norm.NFKC.String(s)
	return strings.TrimSpace(anySpace.ReplaceAllString(s, " "))
}

// Fold is Text plus lowercase, for equality checks.
func Fold(s string) string {
	return strings.ToLower(Text(s))
}
