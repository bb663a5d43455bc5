package arbiter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

func TestParseAnswer(t *testing.T) {
	raw := "Here you go:\n```json\n" +
		`{"title":"  HPE 1.2TB&nbsp;SAS ","marketing_description":"Fast\n drive","sku":"872479-B21","lang":"en","evidenceSnippet":"<h1>HPE","charStart":4,"charEnd":12.0,"confidence":0.75}` +
		"\n```"

	ans, err := ParseAnswer(raw)
	require.NoError(t, err)
	assert.Equal(t, "HPE 1.2TB SAS", ans.Title)
	assert.Equal(t, "Fast drive", ans.MarketingDescription)
	assert.Equal(t, "872479-B21", ans.SKU)
	assert.Equal(t, "en", ans.Lang)
	assert.Equal(t, "<h1>HPE", ans.EvidenceSnippet)
	require.NotNil(t, ans.CharStart)
	assert.Equal(t, 4, *ans.CharStart)
	assert.Equal(t, 12, *ans.CharEnd)
	assert.Equal(t, 0.75, ans.Confidence)
}

func TestParseAnswer_Confidence(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`{"confidence":0.4}`, 0.4},
		{`{"confidence":"0.8"}`, 0.8},
		{`{"confidence":"0.9 (high)"}`, 0.9},
		{`{"confidence":-0.2}`, 0},
		{`{"confidence":1.7}`, 1},
		{`{"confidence":"high"}`, 0},
		{`{"confidence":null}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ans, err := ParseAnswer(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ans.Confidence)
		})
	}
}

func TestParseAnswer_EvidenceCapped(t *testing.T) {
	ans, err := ParseAnswer(`{"evidenceSnippet":"` + strings.Repeat("x", 600) + `","charStart":"3"}`)
	require.NoError(t, err)
	assert.Len(t, ans.EvidenceSnippet, MaxEvidence)
	assert.Nil(t, ans.CharStart)
}

func TestParseAnswer_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", "null", `["a"]`} {
		_, err := ParseAnswer(raw)
		assert.ErrorIs(t, err, model.ErrParse, "raw %q", raw)
	}
}
