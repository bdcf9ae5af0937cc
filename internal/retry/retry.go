// Package retry provides generic exponential-backoff retry, used by the
// x402 client for the relay-rate-limited-503 case and by the Stacks API
// client for transient upstream failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/aibtc/wallet-core/pkg/apperr"
)

// Sentinel errors an operation can wrap to mark itself retryable.
var (
	ErrRetryable   = apperr.New(apperr.KindUpstreamFailure, "retryable error")
	ErrTimeout     = apperr.New(apperr.KindUpstreamFailure, "operation timed out")
	ErrRateLimited = apperr.New(apperr.KindUpstreamFailure, "rate limited")
)

// Config configures backoff behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig is 4 attempts (1 initial + 3 retries) with delays 1s, 2s, 4s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
}

// Do executes operation with DefaultConfig's exponential backoff.
func Do[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return DoWithConfig(ctx, DefaultConfig(), operation)
}

// DoWithConfig executes operation, retrying while IsRetryable(err) and
// cfg.MaxAttempts has not been exhausted.
func DoWithConfig[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxAttempts-1 {
			delay := calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay applies exponential backoff with jitter in [delay/2, delay)
// to avoid synchronized retries across concurrent callers.
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	half := delay / 2
	return half + rand.N(half) //nolint:gosec // G404: jitter does not need cryptographic randomness
}

// IsRetryable reports whether err should trigger another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ParseRetryAfter parses a Retry-After header value in seconds.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// WrapRetryable marks err as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
