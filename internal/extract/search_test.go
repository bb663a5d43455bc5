package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

const searchWithBOM = `<html><body>
<span id="ctl00_BodyContentPlaceHolder_lblDescription">HPE   Cable Kit</span>
<img id="ctl00_BodyContentPlaceHolder_imgProduct" src="/images/cable.jpg">
<table id="ctl00_BodyContentPlaceHolder_gridCOMBOM">
  <tr><th>Part Number</th><th>Description</th><th>Qty</th></tr>
  <tr><td>123456-001</td><td>Cable assembly</td><td>2</td></tr>
  <tr><td>654321-001</td><td>Bracket</td><td>1</td></tr>
</table>
</body></html>`

const searchNoBOM = `<html><body>
<span id="ctl00_BodyContentPlaceHolder_lblDescription">HPE Enclosure</span>
<table id="ctl00_BodyContentPlaceHolder_gridCOMBOM"><tr><th>Part Number</th></tr></table>
</body></html>`

const searchNotFound = `<html><body>
<span id="ctl00_BodyContentPlaceHolder_lblNoResults">No results found</span>
<img id="ctl00_BodyContentPlaceHolder_imgProduct" src="/images/placeholder.jpg">
</body></html>`

const searchDetails = `<html><body>
<table class="details">
  <tr><th>Description</th><td>Generic text</td></tr>
  <tr><th>Part Description</th><td>Synergy Composer Module</td></tr>
  <tr><th>Category</th><td>Keyword: Infrastructure</td></tr>
  <tr><td>Availability:</td><td>Available</td></tr>
  <tr><th>Replaced By</th><td>P12345-B21</td></tr>
</table>
</body></html>`

const searchMultiple = `<html><body>
<span id="ctl00_BodyContentPlaceHolder_lblDescription">First match</span>
<table id="ctl00_BodyContentPlaceHolder_gridMultipleResults">
  <tr><th>Part</th><th>Description</th></tr>
  <tr><td>A</td><td>one</td></tr>
  <tr><td>B</td><td>two</td></tr>
</table>
</body></html>`

func extractSearch(t *testing.T, html string) Record {
	t.Helper()
	rec, err := Search{}.Extract(Page{HTML: []byte(html), SKU: "511778-001"})
	require.NoError(t, err)
	require.NotNil(t, rec.Search)
	return rec
}

func TestSearch_WithBOM(t *testing.T) {
	rec := extractSearch(t, searchWithBOM)

	assert.Equal(t, model.StatusOK, rec.Status())
	assert.Equal(t, model.ProviderSearch, rec.Provider())
	assert.Equal(t, "HPE Cable Kit", rec.Search.Description)
	assert.Equal(t, "https://partsurfer.hpe.com/images/cable.jpg", rec.Search.ImageURL)
	assert.True(t, rec.Search.HasBOM)
	assert.Equal(t, []model.BOMItem{
		{PartNumber: "123456-001", Description: "Cable assembly", Quantity: "2"},
		{PartNumber: "654321-001", Description: "Bracket", Quantity: "1"},
	}, rec.Search.BOM)
}

func TestSearch_NoBOM(t *testing.T) {
	rec := extractSearch(t, searchNoBOM)
	assert.Equal(t, model.StatusNoBOM, rec.Status())
	assert.Equal(t, "HPE Enclosure", rec.Search.Description)
	assert.False(t, rec.Search.HasBOM)
}

func TestSearch_NotFound(t *testing.T) {
	rec := extractSearch(t, searchNotFound)
	assert.True(t, rec.NotFound)
	assert.Equal(t, model.StatusNotFound, rec.Status())
	assert.Empty(t, rec.Search.Description)
	assert.Empty(t, rec.Search.ImageURL)
}

func TestSearch_DetailsTable(t *testing.T) {
	rec := extractSearch(t, searchDetails)
	assert.Equal(t, "Synergy Composer Module", rec.Search.Description)
	assert.Equal(t, "Infrastructure", rec.Search.Category)
	assert.Equal(t, "Available", rec.Search.Availability)
	assert.Equal(t, "P12345-B21", rec.Search.ReplacedBy)
	assert.Equal(t, model.StatusNoBOM, rec.Status())
}

func TestSearch_MultipleResults(t *testing.T) {
	rec := extractSearch(t, searchMultiple)
	assert.True(t, rec.MultipleResults)
	assert.Equal(t, model.StatusMultiMatch, rec.Status())
}

func TestSearch_BOMSpan(t *testing.T) {
	rec := extractSearch(t, `<span id="x_gridCOMBOM_lbl">1 item</span>`)
	assert.True(t, rec.Search.HasBOM)
	assert.Empty(t, rec.Search.BOM)
	assert.Equal(t, model.StatusOK, rec.Status())
}

func TestSearch_EmptyPage(t *testing.T) {
	rec := extractSearch(t, "")
	assert.True(t, rec.NotFound)
}
