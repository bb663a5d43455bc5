package arbiter

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// MaxEvidence caps an oracle's evidence snippet, in characters.
const MaxEvidence = 512

var (
	jsonFence  = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	leadingNum = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// ParseAnswer decodes an oracle reply into a normalized answer. The reply may
// wrap its JSON object in a ```json fence.
func ParseAnswer(raw string) (model.OracleAnswer, error) {
	text := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return model.OracleAnswer{}, model.Tag(eris.Wrap(err, "arbiter: decode oracle reply"), model.ErrParse)
	}
	if payload == nil {
		return model.OracleAnswer{}, model.Tag(eris.New("arbiter: oracle reply is not an object"), model.ErrParse)
	}

	return model.OracleAnswer{
		Title:                textOf(payload["title"]),
		MarketingDescription: textOf(payload["marketing_description"]),
		SKU:                  textOf(payload["sku"]),
		Lang:                 textOf(payload["lang"]),
		EvidenceSnippet:      capRunes(textOf(payload["evidenceSnippet"]), MaxEvidence),
		CharStart:            intOf(payload["charStart"]),
		CharEnd:              intOf(payload["charEnd"]),
		Confidence:           confidenceOf(payload["confidence"]),
	}, nil
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return partnum.Text(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func capRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func intOf(v any) *int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func confidenceOf(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		m := leadingNum.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return clamp01(f)
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
