package resilience

import (
	"time"
)

// FromLimits converts config values to a CallerConfig. Zero values keep the
// Caller defaults.
func FromLimits(name string, maxConcurrent, requestsPerMinute, maxRetries, baseDelayMs int) CallerConfig {
	cfg := CallerConfig{
		Name:              name,
		MaxConcurrent:     maxConcurrent,
		RequestsPerMinute: requestsPerMinute,
		MaxRetries:        maxRetries,
	}
	if baseDelayMs > 0 {
		cfg.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
	}
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig. It
// returns nil when the threshold is zero, which disables the breaker.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) *CircuitBreakerConfig {
	if failureThreshold <= 0 {
		return nil
	}
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = failureThreshold
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return &cfg
}
