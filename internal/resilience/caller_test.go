package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_RetriesRateLimitThenSucceeds(t *testing.T) {
	var waits []time.Duration
	c := NewCaller(CallerConfig{
		Name:       "test",
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		OnRetry: func(_ int, delay time.Duration, _ error) {
			waits = append(waits, delay)
		},
	})

	calls := 0
	v, ok, err := Call(context.Background(), c, "search", func(_ context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", &RateLimitError{Provider: "test"}
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "done", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestCall_ExhaustedRateLimitReturnsNotOK(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxRetries: 2, BaseDelay: time.Millisecond})

	calls := 0
	v, ok, err := Call(context.Background(), c, "scrape", func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("HTTP 429: slow down")
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, 3, calls)
}

func TestCall_OtherErrorPropagatesWithoutRetry(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxRetries: 3, BaseDelay: time.Millisecond})

	calls := 0
	_, ok, err := Call(context.Background(), c, "scrape", func(_ context.Context) (int, error) {
		calls++
		return 0, &AuthError{Provider: "test", StatusCode: 401, Err: errors.New("bad key")}
	})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestCall_ZeroRetries(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test"})

	calls := 0
	_, ok, err := Call(context.Background(), c, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{Provider: "test"}
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestCallOnce_DoesNotRetryRateLimit(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxRetries: 3, BaseDelay: time.Millisecond})

	calls := 0
	_, ok, err := CallOnce(context.Background(), c, "scrape", func(_ context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{Provider: "test"}
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	v, ok, err := CallOnce(context.Background(), c, "scrape", func(_ context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestCallOnce_WaitsForQuota(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxConcurrent: 1, RequestsPerMinute: 1})

	_, ok, err := Call(context.Background(), c, "scrape", func(_ context.Context) (int, error) {
		return 0, &RateLimitError{Provider: "test"}
	})
	require.NoError(t, err)
	require.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	called := false
	_, ok, err = CallOnce(ctx, c, "scrape", func(_ context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, called, "the bucket is empty for a minute")
	assert.Contains(t, err.Error(), "wait for quota")
}

func TestCall_RespectsMaxConcurrent(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxConcurrent: 2})

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = Call(context.Background(), c, "op", func(_ context.Context) (int, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return 1, nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestCall_CanceledContext(t *testing.T) {
	c := NewCaller(CallerConfig{Name: "test", MaxConcurrent: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := Call(ctx, c, "op", func(_ context.Context) (int, error) {
		return 1, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestCall_BreakerOpensOnOutage(t *testing.T) {
	c := NewCaller(CallerConfig{
		Name:    "test",
		Breaker: FromCircuitConfig(2, 60),
	})

	outage := NewTransientError(errors.New("unavailable"), 503)
	for i := 0; i < 2; i++ {
		_, _, err := Call(context.Background(), c, "op", func(_ context.Context) (int, error) {
			return 0, outage
		})
		require.Error(t, err)
	}

	called := false
	_, ok, err := Call(context.Background(), c, "op", func(_ context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestCall_BreakerStateObserved(t *testing.T) {
	var seen []CircuitState
	bc := FromCircuitConfig(1, 60)
	bc.OnStateChange = func(_, to CircuitState) { seen = append(seen, to) }
	c := NewCaller(CallerConfig{Name: "observed", Breaker: bc})

	_, _, err := Call(context.Background(), c, "op", func(_ context.Context) (int, error) {
		return 0, NewTransientError(errors.New("unavailable"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, []CircuitState{CircuitOpen}, seen)
}

func TestFromLimits(t *testing.T) {
	cfg := FromLimits("perplexity", 5, 50, 3, 250)
	assert.Equal(t, "perplexity", cfg.Name)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 50, cfg.RequestsPerMinute)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)

	assert.Zero(t, FromLimits("x", 0, 0, 0, 0).BaseDelay)
}

func TestFromCircuitConfig(t *testing.T) {
	assert.Nil(t, FromCircuitConfig(0, 30))

	cfg := FromCircuitConfig(4, 10)
	require.NotNil(t, cfg)
	assert.Equal(t, 4, cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.ResetTimeout)
}
