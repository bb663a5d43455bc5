package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// BuyBase resolves relative links on buy.hpe.com pages.
const BuyBase = "https://buy.hpe.com/"

var (
	buyTitleSelectors = []string{
		"h1.pdp-product-name",
		"h1.product-detail__name",
		".product-detail__summary h1",
		".product__title",
		`[data-testid="pdp_productTitle"]`,
	}
	buyMetaTitleSelectors = []string{
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	}
	genericTitles = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^buy\s+hpe`),
		regexp.MustCompile(`(?i)^hewlett\s+packard\s+enterprise$`),
		regexp.MustCompile(`(?i)^hpe\s*(?:home|united\s+states)`),
	}
	buySKUAttrs = []struct{ selector, attr string }{
		{"[data-product-sku]", "data-product-sku"},
		{"[data-sku]", "data-sku"},
		{"[data-product-id]", "data-product-id"},
		{"[data-part-number]", "data-part-number"},
		{`meta[name="sku"]`, "content"},
		{`meta[itemprop="sku"]`, "content"},
		{`[itemprop="sku"]`, "content"},
	}
	buyImageSelectors = []string{
		"img[data-product-image]",
		".product-detail__gallery img",
		".product-image img",
		"article img",
		"img[loading]",
	}
	breadcrumbSelector = `[aria-label="Breadcrumb"], nav.breadcrumb, ol.breadcrumb, ul.breadcrumb`
)

// sanitizeTitle normalizes a candidate product title and rejects the
// storefront's generic page titles.
func sanitizeTitle(s string) string {
	t := partnum.Text(s)
	for _, re := range genericTitles {
		if re.MatchString(t) {
			return ""
		}
	}
	return t
}

// Buy extracts buy.hpe.com product pages. A page without a product title or
// a resolvable URL yields a NotFound record.
type Buy struct{}

var _ Extractor = Buy{}

func (Buy) Extract(p Page) (Record, error) {
	notFound := Record{Buy: &BuyRecord{}, NotFound: true}
	if strings.TrimSpace(string(p.HTML)) == "" {
		return notFound, nil
	}
	doc, err := load(p)
	if err != nil {
		return Record{}, err
	}
	base := buyBase(p.URL)

	ld, _ := productFromJSONLD(doc, base)
	title := domTitle(doc)
	if title == "" {
		title = metaTitle(doc)
	}
	if title == "" {
		title = ld.Title
	}
	if title == "" {
		return notFound, nil
	}

	sku := ld.SKU
	if sku == "" {
		sku = skuFromDOM(doc)
	}
	pn := ld.PartNumber
	if pn == "" {
		pn = sku
	}
	fallback := ld.URL
	if fallback == "" {
		fallback = p.URL
	}
	link := canonicalURL(doc, base, fallback)
	if link == "" {
		return notFound, nil
	}
	image := ld.Image
	if image == "" {
		image = buyImage(doc, base)
	}
	category := ld.Category
	if category == "" {
		category = metaContent(doc, "product:category")
	}
	if category == "" {
		category = metaContent(doc, "og:category")
	}
	if category == "" {
		category = breadcrumb(doc)
	}

	return Record{Buy: &BuyRecord{
		Title:       title,
		SKU:         sku,
		PartNumber:  pn,
		URL:         link,
		Image:       image,
		Category:    category,
		FetchedFrom: "product",
	}}, nil
}

// buyBase is the scheme and host of pageURL, or BuyBase.
func buyBase(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return BuyBase
	}
	return u.Scheme + "://" + u.Host + "/"
}

func domTitle(doc *goquery.Document) string {
	for _, sel := range buyTitleSelectors {
		if t := sanitizeTitle(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func metaTitle(doc *goquery.Document) string {
	for _, sel := range buyMetaTitleSelectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if t := sanitizeTitle(v); t != "" {
				return t
			}
		}
	}
	return ""
}

func skuFromDOM(doc *goquery.Document) string {
	for _, c := range buySKUAttrs {
		el := doc.Find(c.selector).First()
		if el.Length() == 0 {
			continue
		}
		v, ok := el.Attr(c.attr)
		if !ok && c.attr != "content" {
			v = el.Text()
		}
		if t := partnum.Text(v); t != "" {
			return t
		}
	}
	return partnum.Text(doc.Find(`[itemprop="sku"]`).First().Text())
}

func canonicalURL(doc *goquery.Document, base, fallback string) string {
	raw := firstAttr(doc.Selection, "href", `link[rel="canonical"]`)
	if raw == "" {
		raw = metaContent(doc, "og:url")
	}
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return ""
	}
	if abs := Absolutize(raw, base); abs != "" {
		return abs
	}
	return raw
}

func buyImage(doc *goquery.Document, base string) string {
	for _, sel := range buyImageSelectors {
		if src, ok := doc.Find(sel).First().Attr("src"); ok {
			if abs := Absolutize(src, base); abs != "" {
				return abs
			}
		}
	}
	return Absolutize(metaContent(doc, "og:image"), base)
}

func breadcrumb(doc *goquery.Document) string {
	var parts []string
	doc.Find(breadcrumbSelector).First().Find("a, span").Each(func(_ int, s *goquery.Selection) {
		if t := partnum.Text(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " > ")
}
