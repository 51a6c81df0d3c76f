package downstream

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_downstream_retries_total",
		Help: "Total number of retry attempts by target and fault class",
	}, []string{"target", "class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_downstream_retry_backoff_seconds",
		Help:    "Backoff duration for retries by target",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"target"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_downstream_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by target",
	}, []string{"target"})
)

// RetryPolicy holds the configuration for retry logic.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseBackoff scales the exponential backoff: the wait before
	// retry n is BaseBackoff * 2^n.
	BaseBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the default retry configuration:
// three retries with waits of 2, 4 and 8 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// Only retryable fault classes are retried, and only up to maxAttempts
// total executions. It respects context cancellation and adds jitter to
// avoid thundering herds. The terminal error is the last fault as-is so
// callers keep its classification.
func retryWithBackoff(ctx context.Context, target string, policy RetryPolicy, maxAttempts int, logger zerolog.Logger, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		fault, ok := AsFault(err)
		if !ok || !fault.Retryable() {
			return lastErr
		}

		// Breaker may have opened between attempts; no point waiting.
		if fault.Class == ClassCircuitOpen {
			return lastErr
		}

		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(target, string(fault.Class)).Inc()

		backoff := policy.BaseBackoff << uint(attempt)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}

		// Add jitter (±20% randomness).
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(target).Observe(jitter.Seconds())

		logger.Debug().
			Str("class", string(fault.Class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(jitter):
		}
	}

	if maxAttempts > 1 {
		retryExhaustedTotal.WithLabelValues(target).Inc()
		logger.Warn().
			Int("max_attempts", maxAttempts).
			Msg("Retry attempts exhausted")
	}

	return lastErr
}
