// Package route decides which catalog providers to try for a part number and
// which provider statuses allow falling through to the next one.
package route

import (
	"regexp"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

var (
	accessoryStyle = regexp.MustCompile(`^[A-Z0-9]*[0-9][A-Z0-9]*[A-Z]$`)
	optionKit      = regexp.MustCompile(`-B2[12]$`)
	sparePart      = regexp.MustCompile(`-00[12]$`)
)

// Plan is the ordered provider list and fallback statuses for one part number.
type Plan struct {
	Providers []model.ProviderID
	Fallback  model.StatusSet
}

// Route applies the default decision table. First match wins:
//
//	bare alphanumeric ending in a letter  -> [Photo]          {}
//	-B21 / -B22                           -> [Search]         {}
//	-001 / -002                           -> [Search, Photo]  {no_bom, not_found}
//	anything else                         -> [Search, Photo]  {not_found}
func Route(pn model.PartNumber) Plan {
	s := string(pn)
	switch {
	case accessoryStyle.MatchString(s):
		return photoOnly()
	case optionKit.MatchString(s):
		return Plan{
			Providers: []model.ProviderID{model.ProviderSearch},
			Fallback:  model.NewStatusSet(),
		}
	case sparePart.MatchString(s):
		return Plan{
			Providers: []model.ProviderID{model.ProviderSearch, model.ProviderPhoto},
			Fallback:  model.NewStatusSet(model.StatusNoBOM, model.StatusNotFound),
		}
	default:
		return Plan{
			Providers: []model.ProviderID{model.ProviderSearch, model.ProviderPhoto},
			Fallback:  model.NewStatusSet(model.StatusNotFound),
		}
	}
}

func photoOnly() Plan {
	return Plan{
		Providers: []model.ProviderID{model.ProviderPhoto},
		Fallback:  model.NewStatusSet(),
	}
}

// Router is Route plus a fixed set of part numbers forced to photo-only
// lookup. The set is read once at construction and never mutated.
type Router struct {
	photoOnly map[model.PartNumber]struct{}
}

// NewRouter builds a Router with the given extra photo-only part numbers.
func NewRouter(photoOnlyParts []model.PartNumber) *Router {
	r := &Router{photoOnly: make(map[model.PartNumber]struct{}, len(photoOnlyParts))}
	for _, pn := range photoOnlyParts {
		r.photoOnly[pn] = struct{}{}
	}
	return r
}

// Route returns the plan for pn.
func (r *Router) Route(pn model.PartNumber) Plan {
	if r != nil {
		if _, ok := r.photoOnly[pn]; ok {
			return photoOnly()
		}
	}
	return Route(pn)
}
