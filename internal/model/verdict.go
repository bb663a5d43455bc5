package model

// OracleAnswer is the normalized payload one extraction oracle returned.
type OracleAnswer struct {
	Oracle               string  `json:"oracle"`
	Model                string  `json:"model,omitempty"`
	Title                string  `json:"title"`
	MarketingDescription string  `json:"marketing_description"`
	SKU                  string  `json:"sku"`
	Lang                 string  `json:"lang,omitempty"`
	EvidenceSnippet      string  `json:"evidence_snippet,omitempty"`
	CharStart            *int    `json:"char_start,omitempty"`
	CharEnd              *int    `json:"char_end,omitempty"`
	Confidence           float64 `json:"confidence"`
}

// Verdict is the arbiter's decision for one evidence snippet.
type Verdict struct {
	Enabled          bool           `json:"enabled"`
	FinalTitle       string         `json:"final_title,omitempty"`
	FinalDescription string         `json:"final_description"`
	Confidence       float64        `json:"confidence"`
	Agreement        float64        `json:"agreement"`
	ManualCheck      bool           `json:"manual_check"`
	Reason           string         `json:"reason,omitempty"`
	PromptHash       string         `json:"prompt_hash,omitempty"`
	EvidenceSnippet  string         `json:"evidence_snippet,omitempty"`
	CharStart        *int           `json:"char_start,omitempty"`
	CharEnd          *int           `json:"char_end,omitempty"`
	Answers          []OracleAnswer `json:"answers,omitempty"`
}
