package model

import "strings"

const (
	// ManualMarker fills every error column of a row that needs human review.
	ManualMarker = "CHECK MANUALLY"
	// BuyNotFoundURL replaces the Buy.HPE URL when no product page was found.
	BuyNotFoundURL = "Product Not Found"
)

// BOMItem is one line of a PartSurfer bill of materials.
type BOMItem struct {
	PartNumber  string `json:"part_number"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
}

// ProviderSection holds what one provider contributed to a row.
type ProviderSection struct {
	SKU   string `json:"sku"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// Row is the resolved output for one part number.
type Row struct {
	PartNumber      string     `json:"part_number"` // display value, may carry an annotation
	Canonical       PartNumber `json:"canonical"`
	Status          Status     `json:"status"`
	Title           string     `json:"title,omitempty"`
	Category        string     `json:"category,omitempty"`
	Availability    string     `json:"availability,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	ReplacedBy      string     `json:"replaced_by,omitempty"`
	Substitute      string     `json:"substitute,omitempty"`
	BOM             []BOMItem  `json:"bom,omitempty"`
	FetchedFrom     ProviderID `json:"fetched_from,omitempty"`
	AutoCorrectedTo PartNumber `json:"auto_corrected_to,omitempty"`
	ManualCheck     bool       `json:"manual_check"`

	Search ProviderSection `json:"search"`
	Photo  ProviderSection `json:"photo"`
	Buy    ProviderSection `json:"buy"`

	// Evidence is the raw page that produced the Buy.HPE section, kept for
	// the consistency arbiter. Never serialized.
	Evidence string `json:"-"`
}

// NewRow returns an empty row for pn with every provider SKU preset.
func NewRow(pn PartNumber) *Row {
	s := string(pn)
	return &Row{
		PartNumber: s,
		Canonical:  pn,
		Status:     StatusNotFound,
		Search:     ProviderSection{SKU: s},
		Photo:      ProviderSection{SKU: s},
		Buy:        ProviderSection{SKU: s},
	}
}

// Section returns a pointer to the provider section for id, or nil.
func (r *Row) Section(id ProviderID) *ProviderSection {
	switch id {
	case ProviderSearch:
		return &r.Search
	case ProviderPhoto:
		return &r.Photo
	case ProviderBuy:
		return &r.Buy
	}
	return nil
}

// MarkCheckManually flags the row for human review.
func (r *Row) MarkCheckManually() {
	r.PartNumber = string(r.Canonical) + " (" + ManualMarker + ")"
	r.Status = StatusCheckManually
	r.ManualCheck = true
	r.Search.Error = ManualMarker
	r.Photo.Error = ManualMarker
	r.Buy.Error = ManualMarker
	r.Buy.URL = BuyNotFoundURL
}

// IsHTTPURL reports whether v is an absolute http(s) URL.
func IsHTTPURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// HasData reports whether the section for id carries a usable signal.
func (r *Row) HasData(id ProviderID) bool {
	s := r.Section(id)
	if s == nil || !IsHTTPURL(s.URL) {
		return false
	}
	title := strings.TrimSpace(s.Title)
	if id == ProviderPhoto {
		return title != "" || strings.TrimSpace(s.Image) != ""
	}
	return title != ""
}

// AnyData reports whether any provider produced a usable signal.
func (r *Row) AnyData() bool {
	return r.HasData(ProviderSearch) || r.HasData(ProviderPhoto) || r.HasData(ProviderBuy)
}
