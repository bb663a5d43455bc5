// Package provider binds a fetcher to an extractor for each catalog source.
package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/extract"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// Default upstream roots.
const (
	DefaultPartSurferURL = "https://partsurfer.hpe.com"
	DefaultBuyURL        = "https://buy.hpe.com"
	DefaultBuyLocale     = "us/en"
)

// Getter is the part of *fetcher.Fetcher providers depend on.
type Getter interface {
	Fetch(ctx context.Context, target string) (*fetcher.Response, error)
}

// Result is one provider lookup.
type Result struct {
	Record extract.Record
	// QueryURL is the page that was requested first. Rows show it even when
	// the lookup failed.
	QueryURL string
	// HTML is the body the record was extracted from.
	HTML string
}

// Provider looks up one part number at one source. A page that loads but
// does not describe the part is a NotFound record, not an error.
type Provider interface {
	ID() model.ProviderID
	Lookup(ctx context.Context, pn model.PartNumber) (Result, error)
}

// PartSurfer queries Search.aspx or ShowPhoto.aspx.
type PartSurfer struct {
	id        model.ProviderID
	get       Getter
	base      string
	path      string
	param     string
	extractor extract.Extractor
	// statuses, besides 404/410, that mean the part has no page
	missing []int
}

// NewSearch returns the Search.aspx provider. base defaults to
// DefaultPartSurferURL.
func NewSearch(get Getter, base string) *PartSurfer {
	return &PartSurfer{
		id:        model.ProviderSearch,
		get:       get,
		base:      baseOr(base, DefaultPartSurferURL),
		path:      "/Search.aspx",
		param:     "SearchText",
		extractor: extract.Search{},
	}
}

// NewPhoto returns the ShowPhoto.aspx provider. ShowPhoto answers 403 for
// unknown parts, so that status reads as not found.
func NewPhoto(get Getter, base string) *PartSurfer {
	return &PartSurfer{
		id:        model.ProviderPhoto,
		get:       get,
		base:      baseOr(base, DefaultPartSurferURL),
		path:      "/ShowPhoto.aspx",
		param:     "partnumber",
		extractor: extract.Photo{},
		missing:   []int{http.StatusForbidden},
	}
}

func (p *PartSurfer) ID() model.ProviderID { return p.id }

// URL is the page queried for pn.
func (p *PartSurfer) URL(pn model.PartNumber) string {
	return p.base + p.path + "?" + p.param + "=" + url.QueryEscape(string(pn))
}

func (p *PartSurfer) Lookup(ctx context.Context, pn model.PartNumber) (Result, error) {
	res := Result{QueryURL: p.URL(pn)}
	ctx = fetcher.WithMissing(fetcher.WithSKU(ctx, string(pn)), p.missing...)
	resp, err := p.get.Fetch(ctx, res.QueryURL)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			res.Record = notFound(p.id)
			return res, nil
		}
		return res, err
	}
	res.HTML = string(resp.Body)
	res.Record, err = p.extractor.Extract(extract.Page{HTML: resp.Body, URL: resp.FinalURL, SKU: pn})
	if err != nil {
		return res, eris.Wrapf(err, "provider: %s %s", p.id, pn)
	}
	return res, nil
}

func notFound(id model.ProviderID) extract.Record {
	switch id {
	case model.ProviderSearch:
		return extract.Record{Search: &extract.SearchRecord{}, NotFound: true}
	case model.ProviderPhoto:
		return extract.Record{Photo: &extract.PhotoRecord{}, NotFound: true}
	default:
		return extract.Record{Buy: &extract.BuyRecord{}, NotFound: true}
	}
}

func baseOr(base, def string) string {
	if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
		return base
	}
	return def
}
