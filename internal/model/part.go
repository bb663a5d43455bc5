package model

// PartNumber is a canonical HPE part number (uppercase, single-dash separated,
// known suffix abbreviations expanded). Build values with partnum.Normalize.
type PartNumber string

func (p PartNumber) String() string { return string(p) }

// ProviderID identifies one upstream catalog source.
type ProviderID string

const (
	ProviderSearch ProviderID = "Search" // partsurfer.hpe.com Search.aspx
	ProviderPhoto  ProviderID = "Photo"  // partsurfer.hpe.com ShowPhoto.aspx
	ProviderBuy    ProviderID = "Buy"    // buy.hpe.com product and search pages
)

// Status is the resolution status of a provider result or of a whole row.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoBOM         Status = "no_bom"
	StatusNotFound      Status = "not_found"
	StatusMultiMatch    Status = "multi_match"
	StatusParseError    Status = "parse_error"
	StatusCheckManually Status = "check_manually"
)

// StatusSet is an immutable-by-convention set of statuses.
type StatusSet map[Status]struct{}

// NewStatusSet builds a set from the given statuses.
func NewStatusSet(statuses ...Status) StatusSet {
	s := make(StatusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

// Has reports whether st is in the set. A nil set contains nothing.
func (s StatusSet) Has(st Status) bool {
	_, ok := s[st]
	return ok
}

// Len returns the number of statuses in the set.
func (s StatusSet) Len() int { return len(s) }
