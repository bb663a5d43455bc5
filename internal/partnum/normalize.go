// Package partnum canonicalizes raw HPE part number strings.
package partnum

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

var (
	dashVariants = regexp.MustCompile(`[\x{2010}-\x{2015}\x{2212}]`)
	whitespace   = regexp.MustCompile(`\s+`)
	invalidChars = regexp.MustCompile(`[^A-Za-z0-9-]`)
	repeatDashes = regexp.MustCompile(`-{2,}`)

	sevenDigitBase = regexp.MustCompile(`^([0-9]{7})-?([A-Z0-9]{2,3})$`)
	compactAlpha   = regexp.MustCompile(`^([A-Z0-9]{5,7})([A-Z][A-Z0-9]{1,3})$`)
	dashedGeneral  = regexp.MustCompile(`^([A-Z0-9]{3,10})-([A-Z0-9]{1,4})$`)
	letterDigit    = regexp.MustCompile(`^[A-Z][0-9]$`)
)

// suffixExpansions lists truncated suffixes with a known full form.
var suffixExpansions = map[string]string{
	"B2": "B21",
}

// Normalize canonicalizes raw into a PartNumber. It is idempotent.
func Normalize(raw string) (model.PartNumber, error) {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if s == "" {
		return "", eris.Wrap(model.ErrInvalidPartNumber, "partnum: empty input")
	}

	s = dashVariants.ReplaceAllString(s, "-")
	s = whitespace.ReplaceAllString(s, "")
	s = invalidChars.ReplaceAllString(s, "")
	s = repeatDashes.ReplaceAllString(s, "-")
	s = strings.ToUpper(s)
	if strings.Trim(s, "-") == "" {
		return "", eris.Wrapf(model.ErrInvalidPartNumber, "partnum: no usable characters in %q", raw)
	}

	return model.PartNumber(canonical(s)), nil
}

// MustNormalize is Normalize for known-good literals. It panics on error.
func MustNormalize(raw string) model.PartNumber {
	pn, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return pn
}

func canonical(s string) string {
	for _, re := range []*regexp.Regexp{sevenDigitBase, compactAlpha, dashedGeneral} {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1] + "-" + expandSuffix(m[2])
		}
	}
	return s
}

func expandSuffix(suffix string) string {
	if full, ok := suffixExpansions[suffix]; ok {
		return full
	}
	if letterDigit.MatchString(suffix) {
		return suffix + "1"
	}
	return suffix
}

// Suffix returns the part after the last dash, or "" if pn has none.
func Suffix(pn model.PartNumber) string {
	s := string(pn)
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return ""
	}
	return s[i+1:]
}

// Sibling swaps the trailing suffix from for to. ok is false when pn does not
// end in "-"+from.
func Sibling(pn model.PartNumber, from, to string) (model.PartNumber, bool) {
	s := string(pn)
	if !strings.HasSuffix(s, "-"+from) {
		return pn, false
	}
	return model.PartNumber(strings.TrimSuffix(s, from) + to), true
}
