package arbiter

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// MaxSnippet caps the page HTML handed to the oracles, in characters.
const MaxSnippet = 20000

const systemMessage = "You are validating structured data extracted from a Hewlett Packard Enterprise (HPE) product page.\n" +
	"Only confirm facts that explicitly appear in the provided HTML snippet. Do not invent or infer details.\n" +
	"If a field cannot be verified from the snippet, return it as an empty string."

var (
	scriptBlock = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style.*?</style>`)
)

// Evidence is what the arbiter checks: a page and the candidate values
// extracted from it.
type Evidence struct {
	HTML                 string `json:"html"`
	ExpectedSKU          string `json:"sku"`
	CandidateTitle       string `json:"title"`
	CandidateDescription string `json:"description"`
	URL                  string `json:"url"`
}

// Prompt is the rendered request every oracle receives.
type Prompt struct {
	System  string
	User    string
	Snippet string
	Hash    string
}

// Snippet strips script and style blocks from html, trims it and caps it at
// MaxSnippet characters.
func Snippet(html string) string {
	s := strings.TrimSpace(html)
	if s == "" {
		return ""
	}
	s = scriptBlock.ReplaceAllString(s, " ")
	s = styleBlock.ReplaceAllString(s, " ")
	if r := []rune(s); len(r) > MaxSnippet {
		s = string(r[:MaxSnippet])
	}
	return strings.TrimSpace(s)
}

// BuildPrompt renders ev into a Prompt. ok is false when no snippet is left
// after sanitizing.
func BuildPrompt(ev Evidence) (Prompt, bool) {
	snippet := Snippet(ev.HTML)
	if snippet == "" {
		return Prompt{}, false
	}
	sum := sha256.Sum256([]byte(snippet))

	sku := strings.TrimSpace(ev.ExpectedSKU)
	if sku == "" {
		sku = "UNKNOWN"
	}
	lines := []string{"Target SKU: " + sku}
	if t := textOf(ev.CandidateTitle); t != "" {
		lines = append(lines, "Candidate Title: "+t)
	}
	if d := textOf(ev.CandidateDescription); d != "" {
		lines = append(lines, "Candidate Marketing Description: "+d)
	}
	if ev.URL != "" {
		lines = append(lines, "Page URL: "+ev.URL)
	}
	lines = append(lines,
		"",
		"HTML SNIPPET START",
		snippet,
		"HTML SNIPPET END",
		"",
		`Respond with a JSON object containing the keys: "title", "marketing_description", "sku", "lang", "evidenceSnippet", "charStart", "charEnd", "confidence". `,
		`Values must come directly from the snippet. "confidence" must be a number between 0 and 1. `+
			"Return empty strings when information is missing. "+
			"If the snippet is insufficient, set all textual fields to empty strings and confidence to 0.",
	)

	return Prompt{
		System:  systemMessage,
		User:    strings.Join(lines, "\n"),
		Snippet: snippet,
		Hash:    hex.EncodeToString(sum[:]),
	}, true
}
