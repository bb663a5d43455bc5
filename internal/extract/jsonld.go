package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldProduct is the subset of a schema.org Product node the Buy extractor
// uses.
type ldProduct struct {
	Title      string
	SKU        string
	PartNumber string
	URL        string
	Image      string
	Category   string
}

// productFromJSONLD returns the first Product node found in any
// application/ld+json script, walking arrays and @graph containers.
// Malformed scripts are skipped.
func productFromJSONLD(doc *goquery.Document, base string) (ldProduct, bool) {
	var (
		out   ldProduct
		found bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return true
		}
		walkNodes(v, func(node map[string]any) bool {
			if !typeIs(node["@type"], "product") {
				return true
			}
			out = productFields(node, base)
			found = true
			return false
		})
		return !found
	})
	return out, found
}

// walkNodes calls fn for every object in v (depth-first through arrays and
// @graph) until fn returns false.
func walkNodes(v any, fn func(map[string]any) bool) bool {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if !walkNodes(e, fn) {
				return false
			}
		}
	case map[string]any:
		if !fn(t) {
			return false
		}
		if g, ok := t["@graph"].([]any); ok {
			return walkNodes(g, fn)
		}
	}
	return true
}

func productFields(node map[string]any, base string) ldProduct {
	id := firstString(node["sku"], node["productID"], node["productId"], node["mpn"], node["partNumber"], node["@id"])
	sku := firstString(node["sku"])
	if sku == "" {
		sku = id
	}
	var baseProductName any
	if bp, ok := node["baseProduct"].(map[string]any); ok {
		baseProductName = bp["productName"]
	}
	offer := pickOffer(firstNonNil(node["offers"], node["offer"]))
	var offerCategory any
	if offer != nil {
		offerCategory = offer["category"]
	}
	return ldProduct{
		Title:      sanitizeTitle(firstString(node["productName"], baseProductName, node["name"], node["headline"], node["title"])),
		SKU:        sku,
		PartNumber: firstString(id, sku),
		URL:        Absolutize(firstString(node["url"]), base),
		Image:      Absolutize(firstString(node["image"]), base),
		Category:   firstString(node["category"], node["categoryName"], offerCategory),
	}
}

func pickOffer(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok && typeIs(m["@type"], "offer") {
				return m
			}
		}
		if len(t) > 0 {
			return pickOffer(t[0])
		}
	case map[string]any:
		if nested, ok := t["offers"].([]any); ok {
			return pickOffer(nested)
		}
		return t
	}
	return nil
}

func typeIs(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, e := range t {
			if typeIs(e, want) {
				return true
			}
		}
	}
	return false
}

// firstString returns the first value that coerces to a non-empty string.
// Arrays yield their first non-empty entry and {"@value": x} objects yield x.
func firstString(vals ...any) string {
	for _, v := range vals {
		if s := coerceString(v); s != "" {
			return s
		}
	}
	return ""
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		return firstString(t...)
	case map[string]any:
		return coerceString(t["@value"])
	case float64, bool:
		return strings.TrimSpace(fmt.Sprint(t))
	}
	return ""
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
