package game

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// RetryPolicy bounds the round-creation conflict loop. Backoff maps
// a 1-based attempt number to a wait; the default grows linearly.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

func LinearRetryPolicy(maxAttempts int, base time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * base
		},
	}
}

// sleep waits for the attempt's backoff or until ctx is done.
func (p RetryPolicy) sleep(ctx context.Context, clock clockwork.Clock, attempt int) error {
	if p.Backoff == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(p.Backoff(attempt)):
		return nil
	}
}
