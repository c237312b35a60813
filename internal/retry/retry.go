// Package retry provides the bounded-retry policy used around oracle calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds an operation to MaxAttempts tries with jittered exponential
// backoff between them. Retryable decides whether an error is worth another
// attempt; a nil Retryable retries everything.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Retryable       func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     4,
		InitialInterval: time.Second,
	}
}

// Do runs op under the policy. The final error is returned once the attempt
// budget is exhausted or the context ends.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := p.InitialInterval
	if interval <= 0 {
		interval = time.Second
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxElapsedTime = 0 // bounded by attempts, not wall clock

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.Retry(wrapped, bo)
}
