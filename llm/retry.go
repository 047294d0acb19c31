package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
}

// DefaultRetryConfig retries transient failures three times with exponential
// backoff starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retrier repeats provider calls that fail with a retryable *LLMError.
type Retrier struct {
	config RetryConfig
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(config RetryConfig) *Retrier {
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}
	return &Retrier{config: config}
}

// RetryOperation represents an operation that can be retried
type RetryOperation[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs operation until it succeeds, fails permanently, the retry
// budget is spent or ctx is done.
func Execute[T any](ctx context.Context, r *Retrier, operation RetryOperation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := operation(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsRetryableError(err) || attempt == r.config.MaxRetries {
			break
		}

		delay := r.delay(attempt, err)
		log.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying llm call")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	if IsRetryableError(lastErr) {
		return zero, fmt.Errorf("llm call failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
	}
	return zero, lastErr
}

func (r *Retrier) delay(attempt int, err error) time.Duration {
	if llmErr, ok := AsLLMError(err); ok && llmErr.RetryAfter > 0 {
		return time.Duration(llmErr.RetryAfter) * time.Second
	}

	d := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))
	// +/-25% jitter
	d += 0.25 * d * (rand.Float64()*2 - 1)
	if max := float64(r.config.MaxDelay); max > 0 && d > max {
		d = max
	}
	if d < float64(r.config.InitialDelay) {
		d = float64(r.config.InitialDelay)
	}
	return time.Duration(d)
}
