// Package retry provides the single backoff policy shared by every
// external call site: embedding, vector store writes and generation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/logger"
)

// DefaultMaxDelay caps a single backoff sleep.
const DefaultMaxDelay = 10 * time.Second

// Policy is an immutable exponential backoff configuration.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// BaseDelay is the sleep before the first retry. It doubles each retry.
	BaseDelay time.Duration

	// MaxDelay caps each sleep. Zero means DefaultMaxDelay.
	MaxDelay time.Duration

	// Jitter is the +/- fraction applied to each sleep (0.2 = 20%).
	Jitter float64
}

// FromSettings builds the policy from the pipeline settings.
func FromSettings(s domain.RAGSettings) Policy {
	return Policy{
		MaxAttempts: s.RetryMaxAttempts,
		BaseDelay:   s.RetryBackoffBase,
		MaxDelay:    s.RetryBackoffMax,
		Jitter:      0.2,
	}
}

// Backoff returns the sleep before retry number n (1 = first retry).
func (p Policy) Backoff(n int) time.Duration {
	if n <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	// Avoid overflowing the shift.
	if n > 30 {
		n = 30
	}
	d := p.BaseDelay * time.Duration(1<<uint(n-1))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration(spread * (2*rand.Float64() - 1))
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Run calls fn until it succeeds, fails with a non-retryable error, the
// attempts are exhausted, or ctx is done. The last error is returned
// wrapped, so errors.Is and errors.As still see the original.
func (p Policy) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do is Run for calls that return a value.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%s: %w (last error: %w)", op, err, lastErr)
			}
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := p.Backoff(attempt)
		logger.Debug("%s: attempt %d/%d failed, retrying in %v: %v", op, attempt, attempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w (last error: %w)", op, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, lastErr)
}

// IsRetryable reports whether err is a transient upstream failure.
// Rate limits, timeouts and errors flagged retryable by an adapter qualify.
// Cancellation of the caller's context never does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}

	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
