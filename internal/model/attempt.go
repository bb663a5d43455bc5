package model

import "time"

// Outcome classifies a single HTTP attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetryable Outcome = "retryable"
	OutcomeTerminal  Outcome = "terminal"
)

// ProviderAttempt records one HTTP call made by a fetcher.
type ProviderAttempt struct {
	ID         string        `json:"id"`
	RunID      string        `json:"run_id,omitempty"`
	Timestamp  time.Time     `json:"ts"`
	SKU        string        `json:"sku,omitempty"`
	Provider   string        `json:"provider"`
	Method     string        `json:"method"`
	URL        string        `json:"url"`
	HTTPStatus int           `json:"http"`
	Bytes      int           `json:"bytes"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"durationMs"`
	Attempt    int           `json:"attempt"`
	Retries    int           `json:"retries"`
	UAID       string        `json:"uaId,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
}
