package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const retryBaseDelay = 25 * time.Millisecond

// isRetryable reports whether err is a transient store conflict worth
// another transaction attempt: a serialization failure or a deadlock.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// withRetry runs fn up to attempts times, retrying only on transient
// store conflicts with jittered backoff between attempts. Exhaustion is
// reported as ErrConflict wrapping the last failure. onRetry, if set,
// is invoked once per retry.
func withRetry(ctx context.Context, attempts int, onRetry func(), fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if onRetry != nil {
				onRetry()
			}
			delay := retryBaseDelay<<uint(i-1) + time.Duration(rand.Int63n(int64(retryBaseDelay)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}
