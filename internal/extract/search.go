package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// PartSurferBase resolves relative links on PartSurfer pages.
const PartSurferBase = "https://partsurfer.hpe.com/"

var (
	searchDescriptionSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_lblDescription",
		"#ctl00_BodyContentPlaceHolder_lblProductDescription",
		"span[id$='lblDescription']",
		".product-description",
	}
	searchImageSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_imgProduct",
		"img[id*='imgProduct']",
		"img.product-image",
	}
	searchNotFoundSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_lblNoResults",
		"#ctl00_BodyContentPlaceHolder_lblNoMatch",
		"#ctl00_BodyContentPlaceHolder_lblNoRecord",
		"#ctl00_BodyContentPlaceHolder_lblErrorMessage",
		".no-results",
	}
	searchMultipleSelector = "table[id*='gridMultipleResults'] tr, table[id*='gvPartList'] tr"

	// span ids used by older Search.aspx layouts
	searchFieldSpans = map[string]string{
		"category":     "span[id$='lblCategory']",
		"availability": "span[id$='lblAvailability']",
		"replaced by":  "span[id$='lblReplacedBy']",
		"substitute":   "span[id$='lblSubstitute']",
	}
)

// Search extracts PartSurfer Search.aspx pages.
type Search struct{}

var _ Extractor = Search{}

func (Search) Extract(p Page) (Record, error) {
	doc, err := load(p)
	if err != nil {
		return Record{}, err
	}
	base := p.URL
	if base == "" {
		base = PartSurferBase
	}

	details := detailsTable(doc.Selection)
	rec := &SearchRecord{
		Description: details["part description"],
		ImageURL:    Absolutize(firstAttr(doc.Selection, "src", searchImageSelectors...), base),
	}
	if rec.Description == "" {
		rec.Description = firstText(doc.Selection, searchDescriptionSelectors...)
	}
	if rec.Description == "" {
		rec.Description = details["description"]
	}
	rec.Category = strings.TrimSpace(strings.TrimPrefix(field(doc, details, "category"), "Keyword:"))
	rec.Availability = field(doc, details, "availability")
	rec.ReplacedBy = field(doc, details, "replaced by")
	rec.Substitute = field(doc, details, "substitute")
	rec.BOM, rec.HasBOM = bom(doc.Selection)

	out := Record{Search: rec}
	switch {
	case multipleResults(doc.Selection):
		out.MultipleResults = true
	case rec.Description == "" && !rec.HasBOM:
		out.NotFound = true
		if firstText(doc.Selection, searchNotFoundSelectors...) != "" {
			rec.ImageURL = ""
		}
	}
	return out, nil
}

func field(doc *goquery.Document, details map[string]string, label string) string {
	if v := details[label]; v != "" {
		return v
	}
	return firstText(doc.Selection, searchFieldSpans[label])
}

// detailsTable collects label/value pairs from rows shaped like
// <tr><th>Label</th><td>Value</td></tr> or <tr><td>Label:</td><td>Value</td></tr>.
// Labels are lowercased with trailing colons removed. The first value wins.
func detailsTable(s *goquery.Selection) map[string]string {
	out := make(map[string]string)
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var label, value string
		if th := tr.ChildrenFiltered("th"); th.Length() > 0 {
			label = th.First().Text()
			value = tr.ChildrenFiltered("td").First().Text()
		} else {
			tds := tr.ChildrenFiltered("td")
			if tds.Length() != 2 {
				return
			}
			label = tds.Eq(0).Text()
			value = tds.Eq(1).Text()
		}
		label = strings.ToLower(strings.TrimRight(partnum.Text(label), ": "))
		value = partnum.Text(value)
		if label == "" || value == "" {
			return
		}
		if _, seen := out[label]; !seen {
			out[label] = value
		}
	})
	return out
}

// bom reads the COMBOM grid. The first table row is the header. A populated
// gridCOMBOM span counts as a BOM even when no rows can be itemized.
func bom(s *goquery.Selection) ([]model.BOMItem, bool) {
	var items []model.BOMItem
	s.Find("table[id*='gridCOMBOM'] tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if t := partnum.Text(td.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) == 0 {
			return
		}
		item := model.BOMItem{PartNumber: cells[0]}
		if len(cells) > 1 {
			item.Description = cells[1]
		}
		if len(cells) > 2 {
			item.Quantity = cells[len(cells)-1]
		}
		items = append(items, item)
	})
	if len(items) > 0 {
		return items, true
	}
	has := false
	s.Find("span[id*='gridCOMBOM']").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		has = partnum.Text(span.Text()) != ""
		return !has
	})
	return nil, has
}

// multipleResults reports a result grid with more than one data row.
func multipleResults(s *goquery.Selection) bool {
	rows := 0
	s.Find(searchMultipleSelector).Each(func(i int, tr *goquery.Selection) {
		if tr.ChildrenFiltered("td").Length() > 0 {
			rows++
		}
	})
	return rows > 1
}
