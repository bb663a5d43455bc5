package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and additive
// jitter: delay(n) = Base * Multiplier^n + U[JitterMin, JitterMax].
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Base is the delay before the first retry, before jitter. Default: 500ms.
	Base time.Duration

	// MaxBackoff caps the exponential part. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterMin and JitterMax bound the uniform jitter added to every delay.
	// Both zero disables jitter.
	JitterMin time.Duration
	JitterMax time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)

	// Clock drives the backoff timer. Default: SystemClock.
	Clock Clock
}

// DefaultRetryConfig matches the catalog fetch defaults: 3 attempts, 500ms
// doubling, 100-500ms jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
		Multiplier:  2.0,
		JitterMin:   100 * time.Millisecond,
		JitterMax:   500 * time.Millisecond,
		Clock:       SystemClock,
	}
}

// Do executes fn with retry logic according to cfg. fn receives the
// zero-based attempt number. Only errors accepted by ShouldRetry (IsTransient
// by default) are retried. Context cancellation stops retries immediately and
// the last attempt's error is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// DoVal is Do for functions that return a value. The zero value is returned
// on failure.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-cfg.Clock.After(Backoff(attempt, cfg)):
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Base <= 0 {
		cfg.Base = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterMin < 0 {
		cfg.JitterMin = 0
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return cfg
}

// Backoff returns the sleep before retrying after the given zero-based
// attempt.
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	cfg = applyDefaults(cfg)
	delay := float64(cfg.Base) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	d := time.Duration(delay)
	if span := cfg.JitterMax - cfg.JitterMin; span > 0 {
		d += cfg.JitterMin + time.Duration(rand.Int64N(int64(span)+1))
	} else {
		d += cfg.JitterMin
	}
	return d
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(provider, target string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying fetch",
			zap.String("provider", provider),
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
