package provider

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/extract"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// Buy queries buy.hpe.com: the product page first, then the search page.
type Buy struct {
	get    Getter
	base   string
	locale string
}

// NewBuy returns the Buy.HPE provider. Empty base and locale use the
// defaults.
func NewBuy(get Getter, base, locale string) *Buy {
	locale = strings.Trim(strings.TrimSpace(locale), "/")
	if locale == "" {
		locale = DefaultBuyLocale
	}
	return &Buy{get: get, base: baseOr(base, DefaultBuyURL), locale: locale}
}

func (b *Buy) ID() model.ProviderID { return model.ProviderBuy }

// ProductURL is the direct product page for pn.
func (b *Buy) ProductURL(pn model.PartNumber) string {
	return b.base + "/" + b.locale + "/p/" + url.PathEscape(strings.ToLower(string(pn)))
}

// SearchURL is the storefront search for pn.
func (b *Buy) SearchURL(pn model.PartNumber) string {
	return b.base + "/" + b.locale + "/search?q=" + url.QueryEscape(string(pn))
}

// Lookup resolves pn. A blocked or unavailable product page (403, 429, 503)
// falls back to the matching search card. A missing page (404, 410) is not
// found. When the product page was blocked and the search page offers no
// card, the blocking error is returned.
func (b *Buy) Lookup(ctx context.Context, pn model.PartNumber) (Result, error) {
	ctx = fetcher.WithSKU(ctx, string(pn))
	log := zap.L().With(zap.String("provider", string(model.ProviderBuy)), zap.String("pn", string(pn)))
	res := Result{QueryURL: b.ProductURL(pn), Record: notFound(model.ProviderBuy)}

	var blocked error
	page, err := b.product(ctx, pn, res.QueryURL)
	switch {
	case err == nil && page.ok():
		page.Record.Buy.FetchedFrom = "product"
		page.QueryURL = res.QueryURL
		return page, nil
	case err == nil, errors.Is(err, model.ErrNotFound):
	case fallsBack(err):
		log.Debug("product page unavailable, trying search", zap.Error(err))
		blocked = err
	default:
		return res, err
	}

	resp, err := b.get.Fetch(ctx, b.SearchURL(pn))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return res, nil
		}
		return res, err
	}
	if strings.TrimSpace(string(resp.Body)) == "" {
		return res, blocked
	}
	cards, err := extract.Cards(extract.Page{HTML: resp.Body, URL: resp.FinalURL, SKU: pn})
	if err != nil {
		return res, eris.Wrapf(err, "provider: Buy search %s", pn)
	}
	card, hasCard := extract.BestCard(cards, string(pn))
	if hasCard && card.SKU == "" {
		card.SKU, card.PartNumber = string(pn), string(pn)
	}
	fromCard := func() (Result, error) {
		res.Record = extract.Record{Buy: &card}
		res.HTML = string(resp.Body)
		return res, nil
	}

	switch {
	case hasCard && blocked != nil:
		return fromCard()
	case !hasCard:
		return res, blocked
	}

	page, err = b.product(ctx, pn, card.URL)
	switch {
	case err == nil && page.ok():
		page.Record.Buy.FetchedFrom = "search"
		page.QueryURL = res.QueryURL
		return page, nil
	case err == nil, fallsBack(err):
		return fromCard()
	case errors.Is(err, model.ErrNotFound):
		return res, nil
	default:
		return res, err
	}
}

func (b *Buy) product(ctx context.Context, pn model.PartNumber, target string) (Result, error) {
	resp, err := b.get.Fetch(ctx, target)
	if err != nil {
		return Result{}, err
	}
	rec, err := extract.Buy{}.Extract(extract.Page{HTML: resp.Body, URL: resp.FinalURL, SKU: pn})
	if err != nil {
		return Result{}, eris.Wrapf(err, "provider: Buy product %s", pn)
	}
	return Result{Record: rec, HTML: string(resp.Body)}, nil
}

func (r Result) ok() bool {
	return r.Record.Buy != nil && !r.Record.NotFound
}

func fallsBack(err error) bool {
	return errors.Is(err, model.ErrUpstreamBlocked) || fetcher.StatusOf(err) == 503
}
