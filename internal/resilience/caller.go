package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/compliance-cli/internal/metrics"
)

// CallerConfig configures a Caller for one external provider.
type CallerConfig struct {
	// Name labels logs and metrics (e.g. "perplexity", "firecrawl").
	Name string

	// MaxConcurrent caps simultaneous in-flight calls. Default: 5.
	MaxConcurrent int

	// RequestsPerMinute is the rolling quota, replenished continuously.
	// Zero disables the quota.
	RequestsPerMinute int

	// MaxRetries is the number of retries after a rate-limited attempt.
	// Zero disables retries.
	MaxRetries int

	// BaseDelay is the first retry delay; attempt n waits BaseDelay × 2^n.
	// Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps a single retry delay. Default: 30s.
	MaxDelay time.Duration

	// Breaker enables a circuit breaker around each attempt when non-nil.
	Breaker *CircuitBreakerConfig

	// OnRetry observes each retry wait in addition to the default log line.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Caller wraps outbound calls to a single provider with a concurrency
// ceiling, a requests-per-minute token bucket and rate-limit retries. The
// limiter state is owned here; callers never touch it.
type Caller struct {
	name    string
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	retry   RetryConfig
	breaker *CircuitBreaker
}

// NewCaller creates a Caller from cfg.
func NewCaller(cfg CallerConfig) *Caller {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, cfg.MaxConcurrent)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.MaxConcurrent)
	}

	name := cfg.Name
	logRetry := RetryLogger(name, "call")
	onRetry := func(attempt int, delay time.Duration, err error) {
		logRetry(attempt, delay, err)
		metrics.ProviderRetries.WithLabelValues(name).Inc()
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}
	}

	c := &Caller{
		name:    name,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter: limiter,
		retry: RetryConfig{
			MaxAttempts:    cfg.MaxRetries + 1,
			InitialBackoff: cfg.BaseDelay,
			MaxBackoff:     cfg.MaxDelay,
			Multiplier:     2.0,
			ShouldRetry:    IsRateLimited,
			OnRetry:        onRetry,
		},
	}
	if cfg.Breaker != nil {
		bc := *cfg.Breaker
		observe := bc.OnStateChange
		bc.OnStateChange = func(from, to CircuitState) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			zap.L().Warn("circuit breaker state change",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observe != nil {
				observe(from, to)
			}
		}
		c.breaker = NewCircuitBreaker(bc)
	}
	return c
}

// Name returns the provider label.
func (c *Caller) Name() string { return c.name }

// Call runs fn under c's limits.
//
//   - success returns (value, true, nil);
//   - rate-limit errors are retried with exponential backoff; once retries are
//     exhausted Call logs the failure and returns (zero, false, nil) so fan-out
//     code can treat the item as failed without aborting its siblings;
//   - every other error is returned immediately without a retry.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	return call(ctx, c, op, c.retry, fn)
}

// CallOnce is Call with a single attempt. It still waits for a concurrency
// slot and quota, and reports a rate-limited attempt as (zero, false, nil).
func CallOnce[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	once := c.retry
	once.MaxAttempts = 1
	return call(ctx, c, op, once, fn)
}

func call[T any](ctx context.Context, c *Caller, op string, retry RetryConfig, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T

	attempt := func(ctx context.Context) (T, error) {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return zero, eris.Wrapf(err, "%s: acquire slot", c.name)
		}
		defer c.sem.Release(1)

		if err := c.limiter.Wait(ctx); err != nil {
			return zero, eris.Wrapf(err, "%s: wait for quota", c.name)
		}

		metrics.ProviderCalls.WithLabelValues(c.name, op).Inc()
		if c.breaker != nil {
			return ExecuteVal(ctx, c.breaker, fn)
		}
		return fn(ctx)
	}

	val, err := DoVal(ctx, retry, attempt)
	if err == nil {
		return val, true, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, false, eris.Wrapf(ctxErr, "%s: %s canceled", c.name, op)
	}

	if IsRateLimited(err) {
		metrics.ProviderExhausted.WithLabelValues(c.name).Inc()
		zap.L().Warn("rate limit retries exhausted",
			zap.String("service", c.name),
			zap.String("operation", op),
			zap.Int("attempts", retry.MaxAttempts),
			zap.Error(err),
		)
		return zero, false, nil
	}

	metrics.ProviderErrors.WithLabelValues(c.name).Inc()
	return zero, false, err
}
