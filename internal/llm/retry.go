package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy wraps a fallible external call with bounded, idempotent
// retries. Zero value means a single attempt and no waiting.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries (first call included).
	MaxAttempts int
	// Backoff returns the wait before attempt n (n starts at 1 for the
	// first retry). Nil means no wait.
	Backoff func(n int) time.Duration
}

// DefaultRetryPolicy suits rate-limited model APIs: 3 attempts with
// exponential backoff starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(n int) time.Duration {
			return 500 * time.Millisecond << (n - 1)
		},
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done.
// Context cancellation is never retried.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for n := 1; n <= attempts; n++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if n == attempts {
			break
		}
		if p.Backoff != nil {
			select {
			case <-time.After(p.Backoff(n)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
