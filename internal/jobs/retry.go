package jobs

import (
	"context"
	"errors"
	"time"

	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

// releaseTimeout bounds compensating writes made after the run context is gone
const releaseTimeout = 5 * time.Second

// retryPolicy retries transient item failures with linear backoff
type retryPolicy struct {
	maxAttempts int
	backoff     time.Duration
}

func newRetryPolicy(maxRetries int, backoff time.Duration) retryPolicy {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return retryPolicy{maxAttempts: maxRetries, backoff: backoff}
}

// do runs fn until it succeeds, returns a non-retryable error, or the attempts
// are used up. The wait before attempt n+1 is n*backoff.
func (p retryPolicy) do(ctx context.Context, action string, field zap.Field, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isRetryable(err) || attempt >= p.maxAttempts {
			return err
		}

		zap.L().Warn("Retrying "+action,
			field,
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, store.ErrTransient) || errors.Is(err, store.ErrConcurrentModification)
}

// releaseContext outlives cancellation of ctx so claims can still be undone
func releaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
}
