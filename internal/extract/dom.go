package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// load parses a page body. Empty input is not an error; callers treat an
// empty document as a not-found page.
func load(p Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.HTML))
	if err != nil {
		return nil, model.Tag(eris.Wrap(err, "extract: parse html"), model.ErrParse)
	}
	return doc, nil
}

// firstText returns the normalized text of the first selector that matches
// a non-empty element.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := partnum.Text(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr returns the first non-empty attr value among the selectors.
func firstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := s.Find(sel).First().Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// metaContent reads <meta name=...> or <meta property=...>.
func metaContent(doc *goquery.Document, name string) string {
	v := firstAttr(doc.Selection, "content",
		`meta[name="`+name+`"]`,
		`meta[property="`+name+`"]`)
	return partnum.Text(v)
}
