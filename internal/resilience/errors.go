package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// TransientError wraps an upstream failure that is safe to retry (429, 5xx,
// network timeout). It matches model.ErrUpstreamTransient under errors.Is.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is reports the taxonomy sentinels this error stands for. A 429 is both
// transient and blocked.
func (e *TransientError) Is(target error) bool {
	switch target {
	case model.ErrUpstreamTransient:
		return true
	case model.ErrUpstreamBlocked:
		return IsBlockedHTTPStatus(e.StatusCode)
	}
	return false
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is
// tagged transient, or if it matches common transient network patterns
// (timeouts, connection resets, DNS failures). An attempt deadline counts as
// transient; the caller's own cancellation is handled by Do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, model.ErrUpstreamTransient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"unexpected eof",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true for 408, 429 and every 5xx.
func IsTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		(statusCode >= 500 && statusCode <= 599)
}

// IsBlockedHTTPStatus returns true for the statuses that mean the upstream is
// refusing this client (403, 429).
func IsBlockedHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests
}

// Classify maps an attempt error to its telemetry outcome.
func Classify(err error) model.Outcome {
	switch {
	case err == nil:
		return model.OutcomeSuccess
	case IsTransient(err):
		return model.OutcomeRetryable
	default:
		return model.OutcomeTerminal
	}
}
