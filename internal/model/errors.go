package model

import (
	"context"
	"errors"
)

// Error taxonomy. Callers wrap these with eris and match with errors.Is.
var (
	ErrInvalidPartNumber = errors.New("invalid part number")
	ErrLiveModeDisabled  = errors.New("live mode disabled")
	ErrUpstreamTransient = errors.New("upstream transient failure")
	ErrUpstreamTerminal  = errors.New("upstream terminal failure")
	ErrUpstreamBlocked   = errors.New("upstream blocked request")
	ErrParse             = errors.New("parse error")
	ErrNotFound          = errors.New("not found")
	ErrMultiMatch        = errors.New("multiple results")
	ErrManualReview      = errors.New("manual review required")
)

// Stable error codes used in row error columns and API bodies.
const (
	CodeInvalidPartNumber = "invalid_part_number"
	CodeLiveModeDisabled  = "live_mode_disabled"
	CodeUpstreamTransient = "upstream_transient"
	CodeUpstreamTerminal  = "upstream_terminal"
	CodeUpstreamBlocked   = "upstream_blocked"
	CodeParse             = "parse_error"
	CodeNotFound          = "not_found"
	CodeMultiMatch        = "multi_match"
	CodeManualReview      = "manual_review_required"
	CodeCanceled          = "canceled"
	CodeInternal          = "internal"
)

var codeTable = []struct {
	err  error
	code string
}{
	{ErrInvalidPartNumber, CodeInvalidPartNumber},
	{ErrLiveModeDisabled, CodeLiveModeDisabled},
	// Blocked is checked before transient: a 429 carries both.
	{ErrUpstreamBlocked, CodeUpstreamBlocked},
	{ErrUpstreamTransient, CodeUpstreamTransient},
	{ErrUpstreamTerminal, CodeUpstreamTerminal},
	{ErrParse, CodeParse},
	{ErrNotFound, CodeNotFound},
	{ErrMultiMatch, CodeMultiMatch},
	{ErrManualReview, CodeManualReview},
}

// Code maps err to its taxonomy code. Unknown errors map to CodeInternal and
// nil maps to the empty string.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCanceled
	}
	return CodeInternal
}

// TaggedError attaches one or more taxonomy sentinels to an underlying error
// while keeping the original message.
type TaggedError struct {
	Err  error
	Tags []error
}

func (e *TaggedError) Error() string { return e.Err.Error() }

// Unwrap exposes both the cause and the tags to errors.Is.
func (e *TaggedError) Unwrap() []error {
	out := make([]error, 0, len(e.Tags)+1)
	out = append(out, e.Err)
	return append(out, e.Tags...)
}

// Tag returns err annotated with the given sentinels.
func Tag(err error, tags ...error) error {
	if err == nil {
		return nil
	}
	return &TaggedError{Err: err, Tags: tags}
}
