// Package extract turns PartSurfer and buy.hpe.com pages into typed records.
package extract

import (
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// SearchRecord is what a PartSurfer Search.aspx page yields.
type SearchRecord struct {
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	Availability string          `json:"availability,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	ReplacedBy   string          `json:"replacedBy,omitempty"`
	Substitute   string          `json:"substitute,omitempty"`
	HasBOM       bool            `json:"hasBom"`
	BOM          []model.BOMItem `json:"bomItems,omitempty"`
}

// PhotoRecord is what a PartSurfer ShowPhoto.aspx page yields.
type PhotoRecord struct {
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// BuyRecord is a buy.hpe.com product, either from its product page or from a
// search result card.
type BuyRecord struct {
	Title       string `json:"title"`
	SKU         string `json:"sku,omitempty"`
	PartNumber  string `json:"partNumber,omitempty"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
	FetchedFrom string `json:"fetchedFrom,omitempty"` // product, search, search-card
}

// Record is a tagged union: exactly one of Search, Photo or Buy is set.
// Records are built by extractors and not modified afterwards.
type Record struct {
	Search *SearchRecord `json:"search,omitempty"`
	Photo  *PhotoRecord  `json:"photo,omitempty"`
	Buy    *BuyRecord    `json:"buy,omitempty"`

	NotFound        bool `json:"notFound"`
	MultipleResults bool `json:"multipleResults"`
	ManualCheck     bool `json:"manualCheck"`
}

// Provider reports which variant is set.
func (r Record) Provider() model.ProviderID {
	switch {
	case r.Search != nil:
		return model.ProviderSearch
	case r.Photo != nil:
		return model.ProviderPhoto
	case r.Buy != nil:
		return model.ProviderBuy
	}
	return ""
}

// Status classifies the record. A Search page with a bill of materials is
// ok, one with only a description is no_bom. Photo and Buy records are ok
// when they confirm the part.
func (r Record) Status() model.Status {
	if r.MultipleResults {
		return model.StatusMultiMatch
	}
	if r.NotFound {
		return model.StatusNotFound
	}
	switch {
	case r.Search != nil:
		if r.Search.HasBOM {
			return model.StatusOK
		}
		if r.Search.Description != "" {
			return model.StatusNoBOM
		}
	case r.Photo != nil:
		if r.Photo.Title != "" || r.Photo.ImageURL != "" {
			return model.StatusOK
		}
	case r.Buy != nil:
		if r.Buy.Title != "" && r.Buy.URL != "" {
			return model.StatusOK
		}
	}
	return model.StatusNotFound
}

// Title is the human-readable name carried by the record, if any.
func (r Record) Title() string {
	switch {
	case r.Search != nil:
		return r.Search.Description
	case r.Photo != nil:
		return r.Photo.Title
	case r.Buy != nil:
		return r.Buy.Title
	}
	return ""
}

// Image is the product image URL carried by the record, if any.
func (r Record) Image() string {
	switch {
	case r.Search != nil:
		return r.Search.ImageURL
	case r.Photo != nil:
		return r.Photo.ImageURL
	case r.Buy != nil:
		return r.Buy.Image
	}
	return ""
}

// Page is one fetched document handed to an extractor.
type Page struct {
	HTML []byte
	URL  string           // final URL, used to resolve relative links
	SKU  model.PartNumber // the part number that was queried
}

// Extractor parses one kind of page. Implementations return model.ErrParse
// (wrapped) when the document cannot be read at all; an unrecognized layout
// is a NotFound record, not an error.
type Extractor interface {
	Extract(p Page) (Record, error)
}
