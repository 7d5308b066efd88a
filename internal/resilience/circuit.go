// Package resilience wraps outbound provider calls with concurrency limits,
// a requests-per-minute quota, rate-limit retries and an optional circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the position of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen rejects a call without sending it to the provider.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig tunes a CircuitBreaker. Zero fields take the
// DefaultCircuitBreakerConfig values.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive tripping failures open the circuit.
	FailureThreshold int
	// ResetTimeout is the time spent open before probes are let through.
	ResetTimeout time.Duration
	// HalfOpenMaxProbes successful probes close the circuit. At most this
	// many probes are in flight at once; other calls are rejected.
	HalfOpenMaxProbes int
	// ShouldTrip reports whether err counts as a provider failure.
	ShouldTrip func(err error) bool
	// OnStateChange observes transitions. It runs with the breaker locked
	// and must not call back into it.
	OnStateChange func(from, to CircuitState)
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      30 * time.Second,
		HalfOpenMaxProbes: 1,
	}
}

// defaultShouldTrip counts outages only: 5xx, network failures and
// deadlines. Rate limits, cancellations and per-URL 4xx leave the circuit
// alone.
func defaultShouldTrip(err error) bool {
	if err == nil || IsRateLimited(err) || errors.Is(err, context.Canceled) {
		return false
	}
	return IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

// CircuitBreaker stops calling a provider that keeps failing.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int // probes in flight while half-open
	successes int // successful probes since half-open

	nowFunc func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = def.HalfOpenMaxProbes
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = defaultShouldTrip
	}
	return &CircuitBreaker{cfg: cfg, nowFunc: time.Now}
}

// ExecuteVal runs fn unless the circuit rejects the call, then records the
// outcome.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	probe, err := cb.admit()
	if err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err, probe)
	return val, err
}

// State reports the current state. An open circuit whose reset timeout has
// passed reports half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.cooled() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures, cb.probes, cb.successes = 0, 0, 0
	cb.moveTo(CircuitClosed)
}

func (cb *CircuitBreaker) cooled() bool {
	return cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.ResetTimeout
}

// admit decides whether a call may proceed and whether it is a probe.
func (cb *CircuitBreaker) admit() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if !cb.cooled() {
			wait := cb.cfg.ResetTimeout - cb.nowFunc().Sub(cb.openedAt)
			return false, eris.Wrapf(ErrCircuitOpen, "retry in %s", wait.Round(time.Second))
		}
		cb.probes, cb.successes = 0, 0
		cb.moveTo(CircuitHalfOpen)
	}
	if cb.state == CircuitHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxProbes {
			return false, eris.Wrap(ErrCircuitOpen, "probe in flight")
		}
		cb.probes++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) record(err error, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe && cb.probes > 0 {
		cb.probes--
	}
	tripped := err != nil && cb.cfg.ShouldTrip(err)

	switch cb.state {
	case CircuitClosed:
		if !tripped {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.open()
		}
	case CircuitHalfOpen:
		if !probe {
			return
		}
		if tripped {
			cb.open()
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.HalfOpenMaxProbes {
			cb.failures, cb.successes = 0, 0
			cb.moveTo(CircuitClosed)
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.nowFunc()
	cb.successes = 0
	cb.moveTo(CircuitOpen)
}

func (cb *CircuitBreaker) moveTo(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
