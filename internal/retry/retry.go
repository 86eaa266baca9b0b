// Package retry implements a small retry policy used by every flaky
// network call in the pipeline.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how a call site retries. Retriable decides whether an
// error is worth another attempt; a nil Retriable retries everything.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // delay grows linearly with the attempt number
	Retriable   func(error) bool
}

// Do runs fn until it succeeds, the attempts are exhausted, a non-retriable
// error occurs, or the context is cancelled.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if p.Retriable != nil && !p.Retriable(err) {
				return err
			}
			if attempt == p.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
			}

			delay := p.Delay
			if p.Backoff {
				delay = time.Duration(attempt) * p.Delay
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
