package resolve

import (
	"strings"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/extract"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/provider"
)

// Row error texts.
const (
	errNotFound = "not found"
	errMultiple = "multiple results"
	errInvalid  = "invalid part number"
)

// fill sets *dst to v when *dst is empty. Merge never overwrites.
func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(v)
	}
}

func presetURL(row *model.Row, id model.ProviderID, queryURL string) {
	if id == model.ProviderBuy || queryURL == "" {
		return
	}
	fill(&row.Section(id).URL, extract.NormalizeURL(queryURL))
}

// merge folds one provider result into row, filling only empty fields.
func merge(row *model.Row, id model.ProviderID, res provider.Result) {
	presetURL(row, id, res.QueryURL)
	sec := row.Section(id)
	rec := res.Record

	switch {
	case rec.Search != nil:
		if rec.MultipleResults {
			sec.Error = errMultiple
			return
		}
		if rec.NotFound {
			fill(&sec.Error, errNotFound)
			return
		}
		s := rec.Search
		fill(&sec.Title, s.Description)
		fill(&sec.Image, extract.NormalizeURL(s.ImageURL))
		fill(&row.Title, s.Description)
		fill(&row.Category, s.Category)
		fill(&row.Availability, s.Availability)
		fill(&row.ImageURL, extract.NormalizeURL(s.ImageURL))
		fill(&row.ReplacedBy, s.ReplacedBy)
		fill(&row.Substitute, s.Substitute)
		if len(row.BOM) == 0 && len(s.BOM) > 0 {
			row.BOM = append([]model.BOMItem(nil), s.BOM...)
		}

	case rec.Photo != nil:
		p := rec.Photo
		fill(&sec.Title, p.Title)
		fill(&sec.Image, extract.NormalizeURL(p.ImageURL))
		if rec.NotFound || (p.Title == "" && p.ImageURL == "") {
			fill(&sec.Error, errNotFound)
			return
		}
		fill(&row.Title, p.Title)
		fill(&row.ImageURL, extract.NormalizeURL(p.ImageURL))

	case rec.Buy != nil:
		b := rec.Buy
		if rec.NotFound || b.Title == "" || b.URL == "" {
			fill(&sec.URL, model.BuyNotFoundURL)
			fill(&sec.Error, errNotFound)
			return
		}
		sku := b.SKU
		if sku == "" {
			sku = b.PartNumber
		}
		if sku != "" {
			sec.SKU = sku
		}
		if !model.IsHTTPURL(sec.URL) {
			sec.URL = extract.NormalizeURL(b.URL)
		}
		fill(&sec.Title, b.Title)
		fill(&sec.Image, extract.NormalizeURL(b.Image))
		if sec.Error == errNotFound {
			sec.Error = ""
		}
		fill(&row.Title, b.Title)
		fill(&row.Category, b.Category)
		fill(&row.ImageURL, extract.NormalizeURL(b.Image))
		if row.Evidence == "" {
			row.Evidence = res.HTML
		}
	}
}

// finalize settles the provider error columns once every provider ran: a
// provider without data reads "not found" unless it failed for another
// reason, and one with data carries no "not found" error.
func finalize(row *model.Row) {
	for _, id := range []model.ProviderID{model.ProviderSearch, model.ProviderPhoto, model.ProviderBuy} {
		sec := row.Section(id)
		if row.HasData(id) {
			if sec.Error == errNotFound {
				sec.Error = ""
			}
			continue
		}
		fill(&sec.Error, errNotFound)
		if id == model.ProviderBuy && !model.IsHTTPURL(sec.URL) {
			sec.URL = model.BuyNotFoundURL
		}
	}
}

// InvalidRow is the row reported for input that does not normalize to a
// part number.
func InvalidRow(raw string) *model.Row {
	row := model.NewRow(model.PartNumber(strings.TrimSpace(raw)))
	row.Status = model.StatusNotFound
	row.Search.Error = errInvalid
	row.Photo.Error = errInvalid
	row.Buy.Error = errInvalid
	row.Buy.URL = model.BuyNotFoundURL
	return row
}
