package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

func statuses(s model.StatusSet) []model.Status {
	var out []model.Status
	for _, st := range []model.Status{model.StatusOK, model.StatusNoBOM, model.StatusNotFound, model.StatusMultiMatch, model.StatusParseError} {
		if s.Has(st) {
			out = append(out, st)
		}
	}
	return out
}

func TestRoute(t *testing.T) {
	search, photo := model.ProviderSearch, model.ProviderPhoto
	tests := []struct {
		pn        model.PartNumber
		providers []model.ProviderID
		fallback  []model.Status
	}{
		{"AF573A", []model.ProviderID{photo}, nil},
		{"R2J63A", []model.ProviderID{photo}, nil},
		{"Q1J09B", []model.ProviderID{photo}, nil},
		{"123456-B21", []model.ProviderID{search}, nil},
		{"P00930-B22", []model.ProviderID{search}, nil},
		{"511778-001", []model.ProviderID{search, photo}, []model.Status{model.StatusNoBOM, model.StatusNotFound}},
		{"780428-002", []model.ProviderID{search, photo}, []model.Status{model.StatusNoBOM, model.StatusNotFound}},
		{"P00930-B23", []model.ProviderID{search, photo}, []model.Status{model.StatusNotFound}},
		{"ABCDEF", []model.ProviderID{search, photo}, []model.Status{model.StatusNotFound}},
		{"1234567", []model.ProviderID{search, photo}, []model.Status{model.StatusNotFound}},
	}
	for _, tt := range tests {
		t.Run(string(tt.pn), func(t *testing.T) {
			plan := Route(tt.pn)
			assert.Equal(t, tt.providers, plan.Providers)
			assert.Equal(t, tt.fallback, statuses(plan.Fallback))
		})
	}
}

func TestRoute_Deterministic(t *testing.T) {
	a := Route("511778-001")
	b := Route("511778-001")
	assert.Equal(t, a, b)
}

func TestRouter_PhotoOnlyOverride(t *testing.T) {
	r := NewRouter([]model.PartNumber{"AB-1234"})

	plan := r.Route("AB-1234")
	assert.Equal(t, []model.ProviderID{model.ProviderPhoto}, plan.Providers)
	assert.Equal(t, 0, plan.Fallback.Len())

	assert.Equal(t, Route("511778-001"), r.Route("511778-001"))

	var nilRouter *Router
	assert.Equal(t, Route("AF573A"), nilRouter.Route("AF573A"))
}
