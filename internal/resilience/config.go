package resilience

import (
	"time"
)

// FromFetchConfig converts fetch settings to a RetryConfig. retries is the
// number of retries after the first attempt; non-positive millisecond values
// keep the defaults.
func FromFetchConfig(retries, baseMs, jitterMinMs, jitterMaxMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if retries >= 0 {
		cfg.MaxAttempts = retries + 1
	}
	if baseMs > 0 {
		cfg.Base = time.Duration(baseMs) * time.Millisecond
	}
	if jitterMinMs > 0 {
		cfg.JitterMin = time.Duration(jitterMinMs) * time.Millisecond
	}
	if jitterMaxMs > 0 {
		cfg.JitterMax = time.Duration(jitterMaxMs) * time.Millisecond
	}
	return cfg
}

// FromBreakerConfig converts config values to a BreakerConfig.
func FromBreakerConfig(threshold, cooldownSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}
