package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

var (
	cardSelectors = []string{
		".product-card",
		`[data-component="product-card"]`,
		".product-card__item",
		".product-grid__item",
		".search-result-item",
		".search-results__item",
		".product-tile",
	}
	cardTitleSelectors = []string{".product-card__title", ".product-card__name", ".product__title", "h3", "h2", "a"}
	cardLinkSelectors  = []string{"a[data-product-url]", `a[href*="/p/"]`, "a[href]"}
	cardImageAttrs     = []string{"data-product-image", "data-image", "data-src", "data-original", "data-large", "src"}
	cardSKUAttrs       = []string{"data-product-sku", "data-sku", "data-part-number", "data-product-id"}
	cardSKUSelectors   = []string{".product-card__sku", ".product__sku", ".product-card__details", ".product-card__meta", ".product-card__content"}

	cardPartNumber = regexp.MustCompile(`(?i)[A-Z0-9]{3,10}(?:-[A-Z0-9]{2,8})?`)
)

// Cards returns the product cards on a buy.hpe.com search results page in
// document order. Cards without a title or link are skipped.
func Cards(p Page) ([]BuyRecord, error) {
	doc, err := load(p)
	if err != nil {
		return nil, err
	}
	base := buyBase(p.URL)

	var (
		out  []BuyRecord
		seen = make(map[string]bool)
	)
	add := func(card *goquery.Selection) {
		rec, ok := cardRecord(card, base)
		if !ok || seen[rec.URL] {
			return
		}
		seen[rec.URL] = true
		out = append(out, rec)
	}
	doc.Find(strings.Join(cardSelectors, ", ")).Each(func(_ int, card *goquery.Selection) {
		add(card)
	})
	if len(out) == 0 {
		doc.Find(`a[href*="/p/"]`).Each(func(_ int, a *goquery.Selection) {
			add(a)
		})
	}
	return out, nil
}

// BestCard prefers the card whose SKU equals sku after normalization, then
// the first card.
func BestCard(cards []BuyRecord, sku string) (BuyRecord, bool) {
	if len(cards) == 0 {
		return BuyRecord{}, false
	}
	want, err := partnum.Normalize(sku)
	if err == nil {
		for _, c := range cards {
			if got, err := partnum.Normalize(c.SKU); err == nil && got == want {
				return c, true
			}
		}
	}
	return cards[0], true
}

// BuySearch extracts the best matching card from a search results page.
type BuySearch struct{}

var _ Extractor = BuySearch{}

func (BuySearch) Extract(p Page) (Record, error) {
	cards, err := Cards(p)
	if err != nil {
		return Record{}, err
	}
	best, ok := BestCard(cards, string(p.SKU))
	if !ok {
		return Record{Buy: &BuyRecord{}, NotFound: true}, nil
	}
	return Record{Buy: &best}, nil
}

func cardRecord(card *goquery.Selection, base string) (BuyRecord, bool) {
	title := ""
	for _, sel := range cardTitleSelectors {
		if t := sanitizeTitle(card.Find(sel).First().Text()); t != "" {
			title = t
			break
		}
	}
	if title == "" && goquery.NodeName(card) == "a" {
		title = sanitizeTitle(card.Text())
	}

	href := ""
	if v, ok := card.Attr("data-product-url"); ok {
		href = v
	} else if goquery.NodeName(card) == "a" {
		href, _ = card.Attr("href")
	}
	for _, sel := range cardLinkSelectors {
		if href != "" {
			break
		}
		link := card.Find(sel).First()
		if v, ok := link.Attr("data-product-url"); ok && v != "" {
			href = v
		} else {
			href, _ = link.Attr("href")
		}
	}
	link := Absolutize(href, base)
	if title == "" || link == "" {
		return BuyRecord{}, false
	}
	link = StripQuery(link)

	sku := cardSKU(card)
	return BuyRecord{
		Title:       title,
		SKU:         sku,
		PartNumber:  sku,
		URL:         link,
		Image:       cardImage(card, base),
		FetchedFrom: "search-card",
	}, true
}

func cardSKU(card *goquery.Selection) string {
	for _, attr := range cardSKUAttrs {
		if v, ok := card.Attr(attr); ok {
			if t := partnum.Text(v); t != "" {
				return t
			}
		}
	}
	for _, sel := range cardSKUSelectors {
		if t := skuCandidate(card.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return skuCandidate(card.Text())
}

// skuCandidate pulls the first part-number-shaped token out of free text.
func skuCandidate(text string) string {
	text = strings.ToUpper(partnum.Text(text))
	for _, m := range cardPartNumber.FindAllString(text, -1) {
		// words like "SERVER" match the shape but carry no digit
		if strings.ContainsAny(m, "0123456789") {
			if pn, err := partnum.Normalize(m); err == nil {
				return string(pn)
			}
		}
	}
	return ""
}

func cardImage(card *goquery.Selection, base string) string {
	img := card.Find("img").First()
	for _, attr := range cardImageAttrs {
		if v, ok := img.Attr(attr); ok {
			if abs := Absolutize(v, base); abs != "" {
				return abs
			}
		}
	}
	return ""
}
